package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// HolidayCalendar reports whether a date is a public holiday.
type HolidayCalendar func(date Date) bool

type monthDay struct {
	month time.Month
	day   int
}

var fixedPublicHolidays = map[monthDay]struct{}{
	{time.January, 1}:   {},
	{time.May, 5}:       {},
	{time.June, 6}:      {},
	{time.August, 15}:   {},
	{time.October, 3}:   {},
	{time.October, 9}:   {},
	{time.December, 25}: {},
}

// FixedPublicHolidays is the default calendar of fixed-date public holidays.
func FixedPublicHolidays(date Date) bool {
	_, ok := fixedPublicHolidays[monthDay{month: date.Month(), day: date.Day()}]
	return ok
}

// DayKey maps a date to the weekday key used by pricing policy rows.
func DayKey(date Date) string {
	return weekdayKeys[date.Weekday()]
}

// BandCharge is the minutes and price billed at one rate band.
type BandCharge struct {
	Band        RateBand
	Minutes     int
	HourlyRate  int64
	Price       int64
	PolicyStart int
	PolicyEnd   int
}

// PriceQuote is a minute-weighted price breakdown.
type PriceQuote struct {
	Resource        ResourceID
	Date            Date
	Start           int
	End             int
	DayKey          string
	Bands           []BandCharge
	TotalMinutes    int
	UnpricedMinutes int
	Total           int64
}

// priceWindow walks the window minute by minute. At each minute the first policy in
// declared order that covers it wins; bands with end <= start wrap past midnight.
// Minutes no policy covers are not billed and are counted in UnpricedMinutes.
func priceWindow(window Interval, policies []PricingPolicy, rates map[RateBand]int64) (PriceQuote, error) {
	quote := PriceQuote{Start: window.Start, End: window.End}
	if window.Duration() <= 0 {
		return quote, ErrInvalidDuration
	}

	minutesByBand := make(map[RateBand]int)
	bandOrder := make([]RateBand, 0, len(policies)+1)
	firstPolicy := make(map[RateBand]PricingPolicy)
	for minute := window.Start; minute < window.End; minute++ {
		minuteOfDay := minute % MinutesPerDay
		var matched *PricingPolicy
		for index := range policies {
			if policies[index].CoversMinute(minuteOfDay) {
				matched = &policies[index]
				break
			}
		}
		if matched == nil {
			quote.UnpricedMinutes++
			continue
		}
		band := matched.Band
		if _, seen := minutesByBand[band]; !seen {
			bandOrder = append(bandOrder, band)
			firstPolicy[band] = *matched
		}
		minutesByBand[band]++
	}

	for _, band := range bandOrder {
		minutes := minutesByBand[band]
		if minutes == 0 {
			continue
		}
		rate, err := hourlyRate(rates, band)
		if err != nil {
			return PriceQuote{}, err
		}
		charge := BandCharge{
			Band:       band,
			Minutes:    minutes,
			HourlyRate: rate,
			Price:      proratedPrice(rate, minutes),
		}
		if policy, ok := firstPolicy[band]; ok {
			charge.PolicyStart = policy.Start
			charge.PolicyEnd = policy.End
		}
		quote.Bands = append(quote.Bands, charge)
		quote.TotalMinutes += minutes
		quote.Total += charge.Price
	}
	return quote, nil
}

// hourlyRate falls back to the base rate for bands the resource does not price.
func hourlyRate(rates map[RateBand]int64, band RateBand) (int64, error) {
	if rate, ok := rates[band]; ok {
		return rate, nil
	}
	if rate, ok := rates[RateBandBase]; ok {
		return rate, nil
	}
	return 0, ErrHourlyRateNotFound
}

// proratedPrice is round(rate * minutes / 60), half away from zero.
func proratedPrice(hourlyRate int64, minutes int) int64 {
	return decimal.NewFromInt(hourlyRate).
		Mul(decimal.NewFromInt(int64(minutes))).
		Div(decimal.NewFromInt(60)).
		Round(0).
		IntPart()
}

package booking

import (
	"context"
	"errors"
	"testing"
)

func TestPriceWindowSplitsAcrossBands(test *testing.T) {
	test.Parallel()
	policies := []PricingPolicy{
		{Start: mustMinutes(test, "09:00"), End: mustMinutes(test, "12:00"), Band: RateBandBase},
		{Start: mustMinutes(test, "12:00"), End: mustMinutes(test, "18:00"), Band: RateBandDiscount},
	}
	rates := map[RateBand]int64{RateBandBase: 30000, RateBandDiscount: 24000}
	quote, err := priceWindow(Interval{Start: mustMinutes(test, "11:00"), End: mustMinutes(test, "13:00")}, policies, rates)
	if err != nil {
		test.Fatalf("price failed: %v", err)
	}
	if len(quote.Bands) != 2 {
		test.Fatalf("expected two bands, got %+v", quote.Bands)
	}
	if quote.Bands[0].Band != RateBandBase || quote.Bands[0].Minutes != 60 || quote.Bands[0].Price != 30000 {
		test.Fatalf("unexpected first band %+v", quote.Bands[0])
	}
	if quote.Bands[1].Band != RateBandDiscount || quote.Bands[1].Minutes != 60 || quote.Bands[1].Price != 24000 {
		test.Fatalf("unexpected second band %+v", quote.Bands[1])
	}
	if quote.Total != 54000 || quote.TotalMinutes != 120 {
		test.Fatalf("expected 54000 for 120 minutes, got %d for %d", quote.Total, quote.TotalMinutes)
	}
}

func TestPriceWindowOvernightBand(test *testing.T) {
	test.Parallel()
	policies := []PricingPolicy{
		{Start: mustMinutes(test, "06:00"), End: mustMinutes(test, "22:00"), Band: RateBandBase},
		{Start: mustMinutes(test, "22:00"), End: mustMinutes(test, "02:00"), Band: RateBandSurcharge},
	}
	rates := map[RateBand]int64{RateBandBase: 30000, RateBandSurcharge: 36000}
	window := NewInterval(mustMinutes(test, "23:00"), 120)
	quote, err := priceWindow(window, policies, rates)
	if err != nil {
		test.Fatalf("price failed: %v", err)
	}
	if len(quote.Bands) != 1 || quote.Bands[0].Band != RateBandSurcharge || quote.Bands[0].Minutes != 120 {
		test.Fatalf("expected 120 overnight minutes, got %+v", quote.Bands)
	}
	if quote.Total != 72000 {
		test.Fatalf("expected 72000, got %d", quote.Total)
	}
}

func TestPriceWindowFirstListedPolicyWins(test *testing.T) {
	test.Parallel()
	policies := []PricingPolicy{
		{Start: mustMinutes(test, "10:00"), End: mustMinutes(test, "11:00"), Band: RateBandDiscount},
		{Start: mustMinutes(test, "09:00"), End: mustMinutes(test, "12:00"), Band: RateBandSurcharge},
	}
	rates := map[RateBand]int64{RateBandBase: 30000, RateBandDiscount: 24000, RateBandSurcharge: 36000}
	quote, err := priceWindow(NewInterval(mustMinutes(test, "09:30"), 90), policies, rates)
	if err != nil {
		test.Fatalf("price failed: %v", err)
	}
	minutes := map[RateBand]int{}
	for _, band := range quote.Bands {
		minutes[band.Band] = band.Minutes
	}
	if minutes[RateBandSurcharge] != 30 || minutes[RateBandDiscount] != 60 {
		test.Fatalf("expected 30 surcharge and 60 discount minutes, got %v", minutes)
	}
	if quote.Bands[0].Band != RateBandSurcharge {
		test.Fatalf("expected bands in first-seen order, got %+v", quote.Bands)
	}
}

func TestPriceWindowSkipsUncoveredMinutes(test *testing.T) {
	test.Parallel()
	rates := map[RateBand]int64{RateBandBase: 30000, RateBandDiscount: 24000, RateBandSurcharge: 36000}
	policies := []PricingPolicy{
		{Start: mustMinutes(test, "09:00"), End: mustMinutes(test, "12:00"), Band: RateBandDiscount},
	}
	quote, err := priceWindow(Interval{Start: mustMinutes(test, "11:00"), End: mustMinutes(test, "13:00")}, policies, rates)
	if err != nil {
		test.Fatalf("price failed: %v", err)
	}
	if quote.Total != 24000 || quote.TotalMinutes != 60 || quote.UnpricedMinutes != 60 {
		test.Fatalf("expected 24000 for 60 priced and 60 unpriced minutes, got %+v", quote)
	}
	if len(quote.Bands) != 1 || quote.Bands[0].Band != RateBandDiscount {
		test.Fatalf("expected a single discount band, got %+v", quote.Bands)
	}

	quote, err = priceWindow(NewInterval(mustMinutes(test, "13:00"), 60), policies, rates)
	if err != nil {
		test.Fatalf("price failed: %v", err)
	}
	if quote.Total != 0 || len(quote.Bands) != 0 || quote.UnpricedMinutes != 60 {
		test.Fatalf("expected an unbilled window, got %+v", quote)
	}
}

func TestPriceWindowUnknownBandUsesBaseRate(test *testing.T) {
	test.Parallel()
	policies := []PricingPolicy{
		{Start: mustMinutes(test, "09:00"), End: mustMinutes(test, "10:00"), Band: RateBand("member_price")},
	}
	quote, err := priceWindow(NewInterval(mustMinutes(test, "09:00"), 60), policies, map[RateBand]int64{RateBandBase: 20000})
	if err != nil {
		test.Fatalf("price failed: %v", err)
	}
	if quote.Total != 20000 || len(quote.Bands) != 1 || quote.Bands[0].HourlyRate != 20000 {
		test.Fatalf("expected base rate for an unpriced band, got %+v", quote)
	}

	discountOnly := []PricingPolicy{{Start: 0, End: 60, Band: RateBandDiscount}}
	if _, err := priceWindow(NewInterval(0, 30), discountOnly, map[RateBand]int64{}); !errors.Is(err, ErrHourlyRateNotFound) {
		test.Fatalf("expected missing rate, got %v", err)
	}
}

func TestCalculatePriceUsesDayPolicies(test *testing.T) {
	test.Parallel()
	store := newBayFixture(test)
	store.policies["tue"] = []PricingPolicy{
		{DayKey: "tue", Start: mustMinutes(test, "09:00"), End: mustMinutes(test, "12:00"), Band: RateBandBase},
		{DayKey: "tue", Start: mustMinutes(test, "12:00"), End: mustMinutes(test, "18:00"), Band: RateBandDiscount},
	}
	service := newService(test, store)
	quote, err := service.CalculatePrice(context.Background(), PriceRequest{
		Branch:   mustBranchID(test, testBranch),
		Kind:     ResourceKindBay,
		Resource: mustResourceID(test, "1"),
		Date:     mustDate(test, testDate),
		Start:    mustMinutes(test, "11:00"),
		Duration: 120,
	})
	if err != nil {
		test.Fatalf("price failed: %v", err)
	}
	if quote.Total != 54000 || quote.DayKey != "tue" {
		test.Fatalf("expected 54000 on tue, got %d on %s", quote.Total, quote.DayKey)
	}
}

func TestCalculatePricePrefersHolidayPolicies(test *testing.T) {
	test.Parallel()
	store := newBayFixture(test)
	store.policies[HolidayDayKey] = []PricingPolicy{
		{DayKey: HolidayDayKey, Start: 0, End: 0, Band: RateBandSurcharge},
	}
	store.policies["mon"] = []PricingPolicy{
		{DayKey: "mon", Start: 0, End: 0, Band: RateBandDiscount},
	}
	service := newService(test, store, WithHolidayCalendar(func(date Date) bool {
		return date.String() == testDate
	}))
	request := PriceRequest{
		Branch:   mustBranchID(test, testBranch),
		Kind:     ResourceKindBay,
		Resource: mustResourceID(test, "1"),
		Date:     mustDate(test, testDate),
		Start:    mustMinutes(test, "10:00"),
		Duration: 60,
	}
	quote, err := service.CalculatePrice(context.Background(), request)
	if err != nil {
		test.Fatalf("price failed: %v", err)
	}
	if quote.DayKey != HolidayDayKey || quote.Total != 36000 {
		test.Fatalf("expected holiday surcharge, got %+v", quote)
	}

	request.Date = mustDate(test, "2025-03-17")
	quote, err = service.CalculatePrice(context.Background(), request)
	if err != nil {
		test.Fatalf("price failed: %v", err)
	}
	if quote.DayKey != "mon" || quote.Total != 24000 {
		test.Fatalf("expected monday discount, got %+v", quote)
	}
}

func TestFixedPublicHolidays(test *testing.T) {
	test.Parallel()
	if !FixedPublicHolidays(mustDate(test, "2025-08-15")) {
		test.Fatalf("expected 08-15 to be a holiday")
	}
	if FixedPublicHolidays(mustDate(test, "2025-08-16")) {
		test.Fatalf("expected 08-16 to be a regular day")
	}
	if got := DayKey(mustDate(test, "2025-03-16")); got != "sun" {
		test.Fatalf("expected sun, got %s", got)
	}
}

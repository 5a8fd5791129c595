package httpapi

import (
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
)

type sessionPayload struct {
	Duration   int `json:"duration"`
	BreakAfter int `json:"break_after"`
}

type windowPayload struct {
	Kind     string           `json:"kind" binding:"required"`
	Resource string           `json:"resource"`
	Member   string           `json:"member"`
	Date     string           `json:"date" binding:"required"`
	Start    string           `json:"start"`
	Duration int              `json:"duration"`
	Sessions []sessionPayload `json:"sessions"`
}

type ledgerPayload struct {
	Member   string `json:"member" binding:"required"`
	Kind     string `json:"kind" binding:"required"`
	Unit     string `json:"unit" binding:"required"`
	Resource string `json:"resource"`
	Required int64  `json:"required"`
	AsOf     string `json:"as_of"`
}

type commitPayload struct {
	windowPayload
	MemberName     string `json:"member_name"`
	MemberPhone    string `json:"member_phone"`
	PaymentMethod  string `json:"payment_method" binding:"required"`
	Contract       string `json:"contract"`
	TotalAmount    int64  `json:"total_amount"`
	DiscountAmount int64  `json:"discount_amount"`
}

type intervalResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type bookedResponse struct {
	Resource      string `json:"resource"`
	ReservationID string `json:"reservation_id,omitempty"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

type issueResponse struct {
	Reason               string           `json:"reason"`
	Priority             int              `json:"priority"`
	Message              string           `json:"message"`
	Session              int              `json:"session,omitempty"`
	Conflicts            []bookedResponse `json:"conflicts,omitempty"`
	ClosestValidDuration int              `json:"closest_valid_duration,omitempty"`
	ValidDurations       []int            `json:"valid_durations,omitempty"`
	MaxDuration          int              `json:"max_duration,omitempty"`
	LimitingFactors      []string         `json:"limiting_factors,omitempty"`
}

type availabilityResponse struct {
	Status          string             `json:"status"`
	Resource        string             `json:"resource"`
	Date            string             `json:"date"`
	Start           string             `json:"start"`
	End             string             `json:"end"`
	Sessions        []intervalResponse `json:"sessions"`
	Reason          string             `json:"reason,omitempty"`
	Detail          string             `json:"detail,omitempty"`
	Issues          []issueResponse    `json:"issues,omitempty"`
	MaxDuration     int                `json:"max_duration"`
	LimitingFactors []string           `json:"limiting_factors,omitempty"`
}

type startOptionResponse struct {
	Start     string             `json:"start"`
	End       string             `json:"end"`
	Resources []string           `json:"resources"`
	Sessions  []intervalResponse `json:"sessions"`
}

type denialResponse struct {
	Resource string `json:"resource"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail,omitempty"`
}

type deniedStartResponse struct {
	Start   string           `json:"start"`
	Denials []denialResponse `json:"denials"`
}

type openStartsResponse struct {
	Date        string                `json:"date"`
	Closed      bool                  `json:"closed"`
	Available   []startOptionResponse `json:"available"`
	Unavailable []deniedStartResponse `json:"unavailable"`
}

type contractResponse struct {
	Contract   string `json:"contract"`
	Balance    int64  `json:"balance"`
	Unit       string `json:"unit"`
	Kind       string `json:"kind"`
	Resource   string `json:"resource,omitempty"`
	ExpiryDate string `json:"expiry_date,omitempty"`
}

type ledgerResponse struct {
	Required     int64              `json:"required"`
	Unit         string             `json:"unit"`
	MaxAvailable int64              `json:"max_available"`
	Sufficient   []contractResponse `json:"sufficient"`
	Insufficient []contractResponse `json:"insufficient"`
	Expired      []contractResponse `json:"expired"`
}

type bandResponse struct {
	Band        string `json:"band"`
	Minutes     int    `json:"minutes"`
	HourlyRate  int64  `json:"hourly_rate"`
	Price       int64  `json:"price"`
	PolicyStart string `json:"policy_start"`
	PolicyEnd   string `json:"policy_end"`
}

type priceResponse struct {
	Resource        string         `json:"resource"`
	Date            string         `json:"date"`
	Start           string         `json:"start"`
	End             string         `json:"end"`
	DayKey          string         `json:"day_key"`
	Bands           []bandResponse `json:"bands"`
	TotalMinutes    int            `json:"total_minutes"`
	UnpricedMinutes int            `json:"unpriced_minutes"`
	Total           int64          `json:"total"`
}

type commitResponse struct {
	ReservationID string             `json:"reservation_id,omitempty"`
	State         string             `json:"state"`
	Contract      string             `json:"contract,omitempty"`
	Unit          string             `json:"unit,omitempty"`
	Charged       int64              `json:"charged"`
	BeforeBalance int64              `json:"before_balance"`
	AfterBalance  int64              `json:"after_balance"`
	NetAmount     int64              `json:"net_amount"`
	Sessions      []intervalResponse `json:"sessions,omitempty"`
	WrittenIDs    []string           `json:"written_ids,omitempty"`
}

// target resolves the identity fields shared by every window payload.
type target struct {
	branch   booking.BranchID
	kind     booking.ResourceKind
	resource booking.ResourceID
	member   booking.MemberID
	date     booking.Date
}

func parseTarget(branchRaw string, payload windowPayload) (target, error) {
	branch, err := booking.NewBranchID(branchRaw)
	if err != nil {
		return target{}, err
	}
	kind, err := booking.ParseResourceKind(payload.Kind)
	if err != nil {
		return target{}, err
	}
	date, err := booking.NewDate(payload.Date)
	if err != nil {
		return target{}, err
	}
	parsed := target{branch: branch, kind: kind, date: date}
	if strings.TrimSpace(payload.Resource) != "" {
		if parsed.resource, err = booking.NewResourceID(payload.Resource); err != nil {
			return target{}, err
		}
	}
	if strings.TrimSpace(payload.Member) != "" {
		if parsed.member, err = booking.NewMemberID(payload.Member); err != nil {
			return target{}, err
		}
	}
	return parsed, nil
}

// plan prefers explicit sessions and falls back to a single session of duration.
func (payload windowPayload) plan() (booking.SessionPlan, error) {
	if len(payload.Sessions) == 0 {
		if payload.Duration <= 0 {
			return nil, fmt.Errorf("%w: duration or sessions required", booking.ErrInvalidDuration)
		}
		return booking.SingleSession(payload.Duration), nil
	}
	plan := make(booking.SessionPlan, 0, len(payload.Sessions))
	for _, session := range payload.Sessions {
		plan = append(plan, booking.Session{DurationMinutes: session.Duration, BreakAfterMinutes: session.BreakAfter})
	}
	return plan, plan.Validate()
}

func (payload windowPayload) start() (int, error) {
	if strings.TrimSpace(payload.Start) == "" {
		return 0, fmt.Errorf("%w: start required", booking.ErrInvalidTime)
	}
	return booking.ToMinutes(payload.Start)
}

func parseLedgerUnit(raw string) (booking.LedgerUnit, error) {
	unit := booking.LedgerUnit(strings.ToLower(strings.TrimSpace(raw)))
	switch unit {
	case booking.LedgerUnitCurrency, booking.LedgerUnitMinutes:
		return unit, nil
	default:
		return "", fmt.Errorf("%w: %q", booking.ErrInvalidLedgerUnit, raw)
	}
}

func toIntervals(intervals []booking.Interval) []intervalResponse {
	response := make([]intervalResponse, 0, len(intervals))
	for _, interval := range intervals {
		response = append(response, intervalResponse{
			Start: clockString(interval.Start),
			End:   clockString(interval.End),
		})
	}
	return response
}

func toFactors(factors []booking.LimitingFactor) []string {
	if len(factors) == 0 {
		return nil
	}
	response := make([]string, 0, len(factors))
	for _, factor := range factors {
		response = append(response, string(factor))
	}
	return response
}

func toAvailability(result booking.AvailabilityResult) availabilityResponse {
	response := availabilityResponse{
		Status:          string(result.Status),
		Resource:        result.Resource.String(),
		Date:            result.Date.String(),
		Start:           clockString(result.Start),
		End:             clockString(result.End),
		Sessions:        toIntervals(result.Sessions),
		Reason:          string(result.Reason),
		Detail:          result.Detail,
		MaxDuration:     result.MaxDuration,
		LimitingFactors: toFactors(result.LimitingFactors),
	}
	for _, issue := range result.Issues {
		converted := issueResponse{
			Reason:               string(issue.Reason),
			Priority:             issue.Priority,
			Message:              issue.Message,
			Session:              issue.Session,
			ClosestValidDuration: issue.ClosestValidDuration,
			ValidDurations:       issue.ValidDurations,
			MaxDuration:          issue.MaxDuration,
			LimitingFactors:      toFactors(issue.LimitingFactors),
		}
		for _, conflict := range issue.Conflicts {
			converted.Conflicts = append(converted.Conflicts, bookedResponse{
				Resource:      conflict.ResourceID.String(),
				ReservationID: conflict.ReservationID,
				Start:         clockString(conflict.Start),
				End:           clockString(conflict.End),
			})
		}
		response.Issues = append(response.Issues, converted)
	}
	return response
}

func toOpenStarts(result booking.OpenStarts) openStartsResponse {
	response := openStartsResponse{
		Date:        result.Date.String(),
		Closed:      result.Closed,
		Available:   make([]startOptionResponse, 0, len(result.Available)),
		Unavailable: make([]deniedStartResponse, 0, len(result.Unavailable)),
	}
	for _, option := range result.Available {
		resources := make([]string, 0, len(option.Resources))
		for _, resource := range option.Resources {
			resources = append(resources, resource.String())
		}
		response.Available = append(response.Available, startOptionResponse{
			Start:     option.StartTime,
			End:       clockString(option.End),
			Resources: resources,
			Sessions:  toIntervals(option.Sessions),
		})
	}
	for _, denied := range result.Unavailable {
		denials := make([]denialResponse, 0, len(denied.Denials))
		for _, denial := range denied.Denials {
			denials = append(denials, denialResponse{Resource: denial.Resource.String(), Reason: string(denial.Reason), Detail: denial.Detail})
		}
		response.Unavailable = append(response.Unavailable, deniedStartResponse{Start: denied.StartTime, Denials: denials})
	}
	return response
}

func toContracts(entries []booking.LedgerEntry) []contractResponse {
	response := make([]contractResponse, 0, len(entries))
	for _, entry := range entries {
		contract := contractResponse{
			Contract: entry.ContractID.String(),
			Balance:  entry.Balance,
			Unit:     string(entry.Unit),
			Kind:     entry.Kind.String(),
			Resource: entry.Resource.String(),
		}
		if entry.ExpiryDate != nil {
			contract.ExpiryDate = entry.ExpiryDate.String()
		}
		response = append(response, contract)
	}
	return response
}

func toLedger(validation booking.LedgerValidation) ledgerResponse {
	return ledgerResponse{
		Required:     validation.Required,
		Unit:         string(validation.Unit),
		MaxAvailable: validation.MaxAvailable(),
		Sufficient:   toContracts(validation.Sufficient),
		Insufficient: toContracts(validation.Insufficient),
		Expired:      toContracts(validation.Expired),
	}
}

func toPrice(quote booking.PriceQuote) priceResponse {
	bands := make([]bandResponse, 0, len(quote.Bands))
	for _, band := range quote.Bands {
		bands = append(bands, bandResponse{
			Band:        string(band.Band),
			Minutes:     band.Minutes,
			HourlyRate:  band.HourlyRate,
			Price:       band.Price,
			PolicyStart: clockString(band.PolicyStart),
			PolicyEnd:   clockString(band.PolicyEnd),
		})
	}
	return priceResponse{
		Resource:        quote.Resource.String(),
		Date:            quote.Date.String(),
		Start:           clockString(quote.Start),
		End:             clockString(quote.End),
		DayKey:          quote.DayKey,
		Bands:           bands,
		TotalMinutes:    quote.TotalMinutes,
		UnpricedMinutes: quote.UnpricedMinutes,
		Total:           quote.Total,
	}
}

func toCommit(result booking.CommitResult) commitResponse {
	return commitResponse{
		ReservationID: result.ReservationID.String(),
		State:         string(result.State),
		Contract:      result.Contract.String(),
		Unit:          string(result.Unit),
		Charged:       result.Charged,
		BeforeBalance: result.BeforeBalance,
		AfterBalance:  result.AfterBalance,
		NetAmount:     result.Record.NetAmount,
		Sessions:      toIntervals(result.Record.Sessions),
		WrittenIDs:    result.WrittenIDs,
	}
}

// clockString renders an end of day close as 24:00 instead of wrapping.
func clockString(minutes int) string {
	if minutes == booking.MinutesPerDay {
		return "24:00"
	}
	return booking.ToTimeString(minutes)
}

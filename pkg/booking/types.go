package booking

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// BranchID identifies a branch (store) and scopes every data API query.
type BranchID struct{ value string }

// NewBranchID validates a branch identifier.
func NewBranchID(raw string) (BranchID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return BranchID{}, ErrInvalidBranchID
	}
	return BranchID{value: trimmed}, nil
}

func (branchID BranchID) String() string { return branchID.value }

// IsZero reports whether the id is unset.
func (branchID BranchID) IsZero() bool { return branchID.value == "" }

// ResourceID identifies a bay or an instructor.
type ResourceID struct{ value string }

// NewResourceID validates a resource identifier.
func NewResourceID(raw string) (ResourceID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ResourceID{}, ErrInvalidResourceID
	}
	return ResourceID{value: trimmed}, nil
}

func (resourceID ResourceID) String() string { return resourceID.value }

// IsZero reports whether the id is unset.
func (resourceID ResourceID) IsZero() bool { return resourceID.value == "" }

// MemberID identifies a member.
type MemberID struct{ value string }

// NewMemberID validates a member identifier.
func NewMemberID(raw string) (MemberID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return MemberID{}, ErrInvalidMemberID
	}
	return MemberID{value: trimmed}, nil
}

func (memberID MemberID) String() string { return memberID.value }

// IsZero reports whether the id is unset.
func (memberID MemberID) IsZero() bool { return memberID.value == "" }

// ContractID identifies a prepaid contract (ledger).
type ContractID struct{ value string }

// NewContractID validates a contract identifier.
func NewContractID(raw string) (ContractID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ContractID{}, ErrInvalidContractID
	}
	return ContractID{value: trimmed}, nil
}

func (contractID ContractID) String() string { return contractID.value }

// IsZero reports whether the id is unset.
func (contractID ContractID) IsZero() bool { return contractID.value == "" }

// ReservationID identifies a stored reservation.
type ReservationID struct{ value string }

// NewReservationID validates a reservation identifier.
func NewReservationID(raw string) (ReservationID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ReservationID{}, ErrInvalidReservationID
	}
	return ReservationID{value: trimmed}, nil
}

func (reservationID ReservationID) String() string { return reservationID.value }

// IsZero reports whether the id is unset.
func (reservationID ReservationID) IsZero() bool { return reservationID.value == "" }

// Date is a calendar day without a time component.
type Date struct{ value time.Time }

// NewDate parses YYYY-MM-DD.
func NewDate(raw string) (Date, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return Date{value: parsed}, nil
}

// DateOf returns the calendar day of moment in its own location.
func DateOf(moment time.Time) Date {
	year, month, day := moment.Date()
	return Date{value: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (date Date) String() string {
	if date.value.IsZero() {
		return ""
	}
	return date.value.Format(dateLayout)
}

// Compact renders the date as yymmdd.
func (date Date) Compact() string { return date.value.Format("060102") }

// IsZero reports whether the date is unset.
func (date Date) IsZero() bool { return date.value.IsZero() }

// Before reports whether date is strictly earlier than other.
func (date Date) Before(other Date) bool { return date.value.Before(other.value) }

// Equal reports whether both dates are the same day.
func (date Date) Equal(other Date) bool { return date.value.Equal(other.value) }

// Weekday returns the day of week.
func (date Date) Weekday() time.Weekday { return date.value.Weekday() }

// Month returns the month of the year.
func (date Date) Month() time.Month { return date.value.Month() }

// Day returns the day of the month.
func (date Date) Day() int { return date.value.Day() }

// ResourceKind tags a bookable resource.
type ResourceKind string

// Supported resource kinds.
const (
	ResourceKindInstructor ResourceKind = "instructor"
	ResourceKindBay        ResourceKind = "bay"
)

// ParseResourceKind validates a resource kind.
func ParseResourceKind(raw string) (ResourceKind, error) {
	switch ResourceKind(strings.ToLower(strings.TrimSpace(raw))) {
	case ResourceKindInstructor:
		return ResourceKindInstructor, nil
	case ResourceKindBay:
		return ResourceKindBay, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidResourceKind, raw)
	}
}

func (kind ResourceKind) String() string { return string(kind) }

// ResourceStatus says whether a resource accepts bookings.
type ResourceStatus string

// Resource statuses.
const (
	ResourceStatusAvailable ResourceStatus = "available"
	ResourceStatusSuspended ResourceStatus = "suspended"
)

// RateBand selects which hourly rate of a resource applies.
type RateBand string

// Rate bands used by pricing policies.
const (
	RateBandBase      RateBand = "base_price"
	RateBandDiscount  RateBand = "discount_price"
	RateBandSurcharge RateBand = "extracharge_price"
)

// Default resource limits.
const (
	DefaultGranularityMinutes      = 5
	DefaultInstructorMinimum       = 30
	DefaultInstructorSystemCap     = 90
	DefaultBayMaximum              = 999
	DefaultInstructorWorkStart     = 9 * 60
	DefaultInstructorWorkEnd       = 18 * 60
	maxReportedValidDurationsCount = 10
)

// WorkingHours are an instructor's hours for one date.
type WorkingHours struct {
	Start  int
	End    int
	DayOff bool
}

// ResourceProfile describes one bookable resource. It is fetched fresh for every request.
type ResourceProfile struct {
	ID                    ResourceID
	Kind                  ResourceKind
	Name                  string
	Status                ResourceStatus
	MinDurationMinutes    int
	MaxDurationMinutes    int
	GranularityMinutes    int
	BufferMinutes         int
	ProhibitedMemberTypes []string
	HourlyRates           map[RateBand]int64
}

// Granularity returns the duration step, defaulting to five minutes.
func (profile ResourceProfile) Granularity() int {
	if profile.GranularityMinutes <= 0 {
		return DefaultGranularityMinutes
	}
	return profile.GranularityMinutes
}

// MaxDuration returns the hard cap on a single session.
func (profile ResourceProfile) MaxDuration() int {
	if profile.MaxDurationMinutes > 0 {
		return profile.MaxDurationMinutes
	}
	if profile.Kind == ResourceKindInstructor {
		return DefaultInstructorSystemCap
	}
	return DefaultBayMaximum
}

// Prohibits reports whether memberType may not book this resource.
func (profile ResourceProfile) Prohibits(memberType string) bool {
	normalized := strings.TrimSpace(memberType)
	if normalized == "" {
		return false
	}
	for _, prohibited := range profile.ProhibitedMemberTypes {
		if strings.TrimSpace(prohibited) == normalized {
			return true
		}
	}
	return false
}

// ParseMemberTypeList splits a comma-delimited prohibition list.
func ParseMemberTypeList(raw string) []string {
	parts := strings.Split(raw, ",")
	memberTypes := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			memberTypes = append(memberTypes, trimmed)
		}
	}
	return memberTypes
}

// ScheduleWindow holds a branch's hours for a date.
type ScheduleWindow struct {
	Date          Date
	BusinessStart int
	BusinessEnd   int
	IsHoliday     bool
}

// BookedInterval is an existing, non-cancelled booking.
type BookedInterval struct {
	ResourceID    ResourceID
	ReservationID string
	Start         int
	End           int
}

// Interval returns the booking as a minute range.
func (booked BookedInterval) Interval() Interval {
	return Interval{Start: booked.Start, End: booked.End}
}

// Session is one lesson in a chained plan.
type Session struct {
	DurationMinutes   int
	BreakAfterMinutes int
}

// SessionPlan is an ordered sequence of sessions.
type SessionPlan []Session

// SingleSession returns the one-session plan used by bays and plain requests.
func SingleSession(duration int) SessionPlan {
	return SessionPlan{{DurationMinutes: duration}}
}

// Validate rejects empty plans and non-positive durations.
func (plan SessionPlan) Validate() error {
	if len(plan) == 0 {
		return fmt.Errorf("%w: no sessions", ErrInvalidSessionPlan)
	}
	for index, session := range plan {
		if session.DurationMinutes <= 0 {
			return fmt.Errorf("%w: session %d duration must be positive", ErrInvalidDuration, index+1)
		}
		if session.BreakAfterMinutes < 0 {
			return fmt.Errorf("%w: session %d break must not be negative", ErrInvalidSessionPlan, index+1)
		}
	}
	return nil
}

// TotalSpan is sessions plus breaks between them; the last trailing break is ignored.
func (plan SessionPlan) TotalSpan() int {
	total := 0
	for index, session := range plan {
		total += session.DurationMinutes
		if index < len(plan)-1 {
			total += session.BreakAfterMinutes
		}
	}
	return total
}

// LessonMinutes is the amount of lesson time consumed, breaks excluded.
func (plan SessionPlan) LessonMinutes() int {
	total := 0
	for _, session := range plan {
		total += session.DurationMinutes
	}
	return total
}

// Intervals lays the plan out from start.
func (plan SessionPlan) Intervals(start int) []Interval {
	intervals := make([]Interval, 0, len(plan))
	cursor := start
	for _, session := range plan {
		interval := NewInterval(cursor, session.DurationMinutes)
		intervals = append(intervals, interval)
		cursor = interval.End + session.BreakAfterMinutes
	}
	return intervals
}

// LedgerUnit is what a contract balance counts.
type LedgerUnit string

// Ledger units.
const (
	LedgerUnitCurrency LedgerUnit = "currency"
	LedgerUnitMinutes  LedgerUnit = "minutes"
)

// LedgerScope narrows which contracts may pay for a reservation.
type LedgerScope struct {
	Kind ResourceKind
	Unit LedgerUnit
	// Resource restricts instructor-bound contracts; zero matches any resource.
	Resource ResourceID
}

// Validate checks the scope is complete.
func (scope LedgerScope) Validate() error {
	if scope.Kind != ResourceKindBay && scope.Kind != ResourceKindInstructor {
		return ErrInvalidResourceKind
	}
	if scope.Unit != LedgerUnitCurrency && scope.Unit != LedgerUnitMinutes {
		return ErrInvalidLedgerUnit
	}
	return nil
}

// LedgerEntry is the latest balance of one contract.
type LedgerEntry struct {
	ContractID ContractID
	Balance    int64
	Unit       LedgerUnit
	Kind       ResourceKind
	// Resource is set for contracts bound to a single instructor.
	Resource   ResourceID
	ExpiryDate *Date
}

// ExpiredOn reports whether the entry is unusable on asOf. No expiry means never.
func (entry LedgerEntry) ExpiredOn(asOf Date) bool {
	if entry.ExpiryDate == nil || entry.ExpiryDate.IsZero() {
		return false
	}
	return entry.ExpiryDate.Before(asOf)
}

// Matches reports whether the entry falls in scope.
func (entry LedgerEntry) Matches(scope LedgerScope) bool {
	if entry.Unit != scope.Unit || entry.Kind != scope.Kind {
		return false
	}
	if entry.Resource.IsZero() || scope.Resource.IsZero() {
		return true
	}
	return entry.Resource == scope.Resource
}

// PricingPolicy is one time-of-day rate band row for a day key.
type PricingPolicy struct {
	DayKey string
	Start  int
	End    int
	Band   RateBand
}

// Span returns the band's length with end <= start rolled into the next day.
func (policy PricingPolicy) Span() int {
	span := policy.End - policy.Start
	if span <= 0 {
		span += MinutesPerDay
	}
	return span
}

// CoversMinute reports whether minuteOfDay falls inside the band.
func (policy PricingPolicy) CoversMinute(minuteOfDay int) bool {
	offset := ((minuteOfDay-policy.Start)%MinutesPerDay + MinutesPerDay) % MinutesPerDay
	return offset < policy.Span()
}

// PaymentMethod selects how a reservation is paid for.
type PaymentMethod string

// Payment methods.
const (
	PaymentPrepaidCredit    PaymentMethod = "prepaid_credit"
	PaymentTimePass         PaymentMethod = "time_pass"
	PaymentLessonPass       PaymentMethod = "lesson_pass"
	PaymentCard             PaymentMethod = "card"
	PaymentCorporateWelfare PaymentMethod = "corporate_welfare"
)

// ParsePaymentMethod validates a payment method.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch method {
	case PaymentPrepaidCredit, PaymentTimePass, PaymentLessonPass, PaymentCard, PaymentCorporateWelfare:
		return method, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, raw)
	}
}

// LedgerUnit returns the unit the method draws from, or false when it does not touch a ledger.
func (method PaymentMethod) LedgerUnit() (LedgerUnit, bool) {
	switch method {
	case PaymentPrepaidCredit:
		return LedgerUnitCurrency, true
	case PaymentTimePass, PaymentLessonPass:
		return LedgerUnitMinutes, true
	default:
		return "", false
	}
}

// ReservationRecord is the row written for a committed booking.
type ReservationRecord struct {
	ReservationID  ReservationID
	Branch         BranchID
	ResourceID     ResourceID
	Kind           ResourceKind
	Date           Date
	Start          int
	End            int
	Member         MemberID
	MemberName     string
	MemberPhone    string
	PaymentMethod  PaymentMethod
	Contract       ContractID
	TotalAmount    int64
	DiscountAmount int64
	NetAmount      int64
	ChargedAmount  int64
	Sessions       []Interval
	CreatedAt      time.Time
}

// LedgerDeduction is the audit row written when a contract is debited.
type LedgerDeduction struct {
	Branch        BranchID
	Member        MemberID
	Contract      ContractID
	ReservationID ReservationID
	Kind          ResourceKind
	Unit          LedgerUnit
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	ExpiryDate    *Date
	Date          Date
	CreatedAt     time.Time
}

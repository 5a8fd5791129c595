package booking

import (
	"context"
	"fmt"
	"time"
)

// Service answers availability, ledger and pricing questions and commits reservations.
// It keeps no per-request state and is safe for concurrent use.
type Service struct {
	store    Store
	nowFn    func() time.Time
	logger   OperationLogger
	locker   SlotLocker
	notifier Notifier
	holidays HolidayCalendar
}

// NewService wires a Service. now must return the branch's local wall clock.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now, holidays: FixedPublicHolidays}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// AvailabilityRequest asks whether one window (or one lesson plan) can be booked.
type AvailabilityRequest struct {
	Branch   BranchID
	Kind     ResourceKind
	Resource ResourceID
	// Member is optional; when set, member-type restrictions apply.
	Member   MemberID
	Date     Date
	Start    int
	Duration int
	// Plan overrides Duration for chained lessons.
	Plan SessionPlan
}

func (request AvailabilityRequest) plan() SessionPlan {
	if len(request.Plan) > 0 {
		return request.Plan
	}
	return SingleSession(request.Duration)
}

// CheckAvailability evaluates a single window and reports every failed rule.
func (service *Service) CheckAvailability(ctx context.Context, request AvailabilityRequest) (AvailabilityResult, error) {
	result, err := service.checkAvailability(ctx, request)
	outcome := ""
	if err == nil {
		outcome = string(result.Status)
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationCheckAvailability,
		Branch:    request.Branch,
		Resource:  request.Resource,
		Member:    request.Member,
		Date:      request.Date,
		Outcome:   outcome,
		Error:     err,
	})
	return result, err
}

func (service *Service) checkAvailability(ctx context.Context, request AvailabilityRequest) (AvailabilityResult, error) {
	plan := request.plan()
	if err := validateTarget(request.Branch, request.Kind, request.Resource); err != nil {
		return AvailabilityResult{}, err
	}
	if request.Start < 0 || request.Start >= MinutesPerDay {
		return AvailabilityResult{}, fmt.Errorf("%w: start %d", ErrInvalidTime, request.Start)
	}
	if err := validatePlan(request.Kind, plan); err != nil {
		return AvailabilityResult{}, err
	}
	if err := service.validateDate(request.Date); err != nil {
		return AvailabilityResult{}, err
	}

	schedule, err := service.loadScheduleContext(ctx, scheduleQuery{
		branch:   request.Branch,
		kind:     request.Kind,
		resource: request.Resource,
		date:     request.Date,
	})
	if err != nil && !isHoliday(err) {
		return AvailabilityResult{}, err
	}
	resourceSchedule, ok := schedule.Resource(request.Resource)
	if !ok {
		return AvailabilityResult{}, WrapError(operationCheckAvailability, errorSubjectResource, errorCodeLoad, ErrResourceNotFound)
	}
	if err != nil {
		resourceSchedule.Window.IsHoliday = true
	}
	memberType, err := service.memberType(ctx, request.Branch, request.Member)
	if err != nil {
		return AvailabilityResult{}, err
	}
	return checkWindow(windowCheck{
		schedule:      resourceSchedule,
		earliestStart: schedule.EarliestStart,
		memberType:    memberType,
		start:         request.Start,
		plan:          plan,
	}), nil
}

// SearchRequest asks for every open start time on a date.
type SearchRequest struct {
	Branch BranchID
	Kind   ResourceKind
	// Resource is optional for bays; a zero value searches every bay of the branch.
	Resource ResourceID
	Member   MemberID
	Date     Date
	Plan     SessionPlan
}

// FindOpenStarts enumerates 5-minute aligned starts and buckets them by availability.
func (service *Service) FindOpenStarts(ctx context.Context, request SearchRequest) (OpenStarts, error) {
	result, err := service.findOpenStarts(ctx, request)
	service.logOperation(ctx, OperationLog{
		Operation: operationFindOpenStarts,
		Branch:    request.Branch,
		Resource:  request.Resource,
		Member:    request.Member,
		Date:      request.Date,
		Outcome:   fmt.Sprintf("%d available", len(result.Available)),
		Error:     err,
	})
	return result, err
}

func (service *Service) findOpenStarts(ctx context.Context, request SearchRequest) (OpenStarts, error) {
	if request.Branch.IsZero() {
		return OpenStarts{}, ErrInvalidBranchID
	}
	switch request.Kind {
	case ResourceKindBay:
	case ResourceKindInstructor:
		if request.Resource.IsZero() {
			return OpenStarts{}, fmt.Errorf("%w: instructor is required", ErrInvalidResourceID)
		}
	default:
		return OpenStarts{}, ErrInvalidResourceKind
	}
	if err := validatePlan(request.Kind, request.Plan); err != nil {
		return OpenStarts{}, err
	}
	if err := service.validateDate(request.Date); err != nil {
		return OpenStarts{}, err
	}

	schedule, err := service.loadScheduleContext(ctx, scheduleQuery{
		branch:   request.Branch,
		kind:     request.Kind,
		resource: request.Resource,
		date:     request.Date,
	})
	if isHoliday(err) {
		return OpenStarts{Date: request.Date, Closed: true}, nil
	}
	if err != nil {
		return OpenStarts{}, err
	}
	memberType, err := service.memberType(ctx, request.Branch, request.Member)
	if err != nil {
		return OpenStarts{}, err
	}
	return findOpenStarts(schedule, memberType, request.Plan), nil
}

// LedgerRequest asks which of a member's contracts can cover an amount.
type LedgerRequest struct {
	Branch   BranchID
	Member   MemberID
	Scope    LedgerScope
	Required int64
	// AsOf defaults to today.
	AsOf Date
}

// ValidateLedger classifies the member's contracts. It never picks one.
func (service *Service) ValidateLedger(ctx context.Context, request LedgerRequest) (LedgerValidation, error) {
	result, err := service.validateLedger(ctx, request)
	service.logOperation(ctx, OperationLog{
		Operation: operationValidateLedger,
		Branch:    request.Branch,
		Resource:  request.Scope.Resource,
		Member:    request.Member,
		Date:      request.AsOf,
		Outcome:   fmt.Sprintf("%d sufficient", len(result.Sufficient)),
		Error:     err,
	})
	return result, err
}

func (service *Service) validateLedger(ctx context.Context, request LedgerRequest) (LedgerValidation, error) {
	if request.Branch.IsZero() {
		return LedgerValidation{}, ErrInvalidBranchID
	}
	if request.Member.IsZero() {
		return LedgerValidation{}, ErrInvalidMemberID
	}
	if err := request.Scope.Validate(); err != nil {
		return LedgerValidation{}, err
	}
	if request.Required <= 0 {
		return LedgerValidation{}, fmt.Errorf("%w: required amount must be positive", ErrInvalidAmount)
	}
	asOf := request.AsOf
	if asOf.IsZero() {
		asOf = DateOf(service.nowFn())
	}
	entries, err := service.store.LedgerEntries(ctx, request.Branch, request.Member)
	if err != nil {
		return LedgerValidation{}, WrapError(operationValidateLedger, errorSubjectLedger, errorCodeLoad, err)
	}
	return classifyLedger(entries, request.Scope, request.Required, asOf)
}

// PriceRequest asks for the price of a window.
type PriceRequest struct {
	Branch   BranchID
	Kind     ResourceKind
	Resource ResourceID
	Date     Date
	Start    int
	Duration int
}

// CalculatePrice returns the minute-weighted price per rate band.
func (service *Service) CalculatePrice(ctx context.Context, request PriceRequest) (PriceQuote, error) {
	quote, err := service.calculatePrice(ctx, request)
	service.logOperation(ctx, OperationLog{
		Operation: operationCalculatePrice,
		Branch:    request.Branch,
		Resource:  request.Resource,
		Date:      request.Date,
		Outcome:   fmt.Sprintf("%d", quote.Total),
		Error:     err,
	})
	return quote, err
}

func (service *Service) calculatePrice(ctx context.Context, request PriceRequest) (PriceQuote, error) {
	if err := validateTarget(request.Branch, request.Kind, request.Resource); err != nil {
		return PriceQuote{}, err
	}
	if request.Date.IsZero() {
		return PriceQuote{}, ErrInvalidDate
	}
	if request.Start < 0 || request.Start >= MinutesPerDay {
		return PriceQuote{}, fmt.Errorf("%w: start %d", ErrInvalidTime, request.Start)
	}
	if request.Duration <= 0 || request.Duration > MinutesPerDay {
		return PriceQuote{}, fmt.Errorf("%w: %d", ErrInvalidDuration, request.Duration)
	}
	profile, err := service.store.ResourceProfile(ctx, request.Branch, request.Kind, request.Resource)
	if err != nil {
		return PriceQuote{}, WrapError(operationCalculatePrice, errorSubjectResource, errorCodeLoad, err)
	}
	return service.quote(ctx, request.Branch, profile, request.Date, NewInterval(request.Start, request.Duration))
}

// quote loads the day's policies (holiday rows first when the date is a public holiday) and prices window.
func (service *Service) quote(ctx context.Context, branch BranchID, profile ResourceProfile, date Date, window Interval) (PriceQuote, error) {
	dayKey := DayKey(date)
	var policies []PricingPolicy
	if service.holidays != nil && service.holidays(date) {
		holidayPolicies, err := service.store.PricingPolicies(ctx, branch, HolidayDayKey)
		if err != nil {
			return PriceQuote{}, WrapError(operationCalculatePrice, errorSubjectPricing, errorCodeLoad, err)
		}
		if len(holidayPolicies) > 0 {
			dayKey = HolidayDayKey
			policies = holidayPolicies
		}
	}
	if policies == nil {
		weekdayPolicies, err := service.store.PricingPolicies(ctx, branch, dayKey)
		if err != nil {
			return PriceQuote{}, WrapError(operationCalculatePrice, errorSubjectPricing, errorCodeLoad, err)
		}
		policies = weekdayPolicies
	}
	quote, err := priceWindow(window, policies, profile.HourlyRates)
	if err != nil {
		return PriceQuote{}, WrapError(operationCalculatePrice, errorSubjectPricing, errorCodeLoad, err)
	}
	quote.Resource = profile.ID
	quote.Date = date
	quote.DayKey = dayKey
	return quote, nil
}

// CommitReservation writes the reservation and draws the chosen contract. When the
// reservation was stored but the deduction failed, the result carries the reservation id
// and the error is a PartialCommitError. Session rows left behind by a failed multi-row
// insert are reported as a PartialInsertError with state CommitStatePartiallyInserted.
func (service *Service) CommitReservation(ctx context.Context, request CommitRequest) (CommitResult, error) {
	result, err := service.commitReservation(ctx, request)
	status := ""
	if KindOf(err) == KindPartialCommit {
		status = operationStatusPartial
	}
	service.logOperation(ctx, OperationLog{
		Operation:     operationCommitReservation,
		Branch:        request.Branch,
		Resource:      request.Resource,
		Member:        request.Member,
		Date:          request.Date,
		ReservationID: result.ReservationID,
		Outcome:       string(result.State),
		Status:        status,
		Error:         err,
	})
	if err == nil {
		service.notify(ctx, result.Record)
	}
	return result, err
}

func (service *Service) commitReservation(ctx context.Context, request CommitRequest) (CommitResult, error) {
	if len(request.Plan) == 0 {
		return CommitResult{State: CommitStateAborted}, fmt.Errorf("%w: no sessions", ErrInvalidSessionPlan)
	}
	if err := request.validate(); err != nil {
		return CommitResult{State: CommitStateAborted}, err
	}
	if err := service.validateDate(request.Date); err != nil {
		return CommitResult{State: CommitStateAborted}, err
	}
	if service.locker == nil {
		return service.commit(ctx, request)
	}
	release, err := service.locker.LockSlot(ctx, request.Branch, request.Resource, request.Date)
	if err != nil {
		return CommitResult{State: CommitStateAborted}, WrapError(operationCommitReservation, errorSubjectLock, errorCodeAcquire, err)
	}
	result, commitErr := service.commit(ctx, request)
	if releaseErr := release(context.WithoutCancel(ctx)); releaseErr != nil {
		service.logOperation(ctx, OperationLog{
			Operation:     operationCommitReservation,
			Branch:        request.Branch,
			Resource:      request.Resource,
			Date:          request.Date,
			ReservationID: result.ReservationID,
			Outcome:       errorCodeRelease,
			Error:         WrapError(operationCommitReservation, errorSubjectLock, errorCodeRelease, releaseErr),
		})
	}
	return result, commitErr
}

func (service *Service) notify(ctx context.Context, record ReservationRecord) {
	if service.notifier == nil {
		return
	}
	if err := service.notifier.ReservationCommitted(ctx, record); err != nil {
		service.logOperation(ctx, OperationLog{
			Operation:     operationCommitReservation,
			Branch:        record.Branch,
			Resource:      record.ResourceID,
			Member:        record.Member,
			Date:          record.Date,
			ReservationID: record.ReservationID,
			Outcome:       errorCodeNotify,
			Error:         WrapError(operationCommitReservation, errorSubjectReservation, errorCodeNotify, err),
		})
	}
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func validateTarget(branch BranchID, kind ResourceKind, resource ResourceID) error {
	if branch.IsZero() {
		return ErrInvalidBranchID
	}
	if kind != ResourceKindBay && kind != ResourceKindInstructor {
		return ErrInvalidResourceKind
	}
	if resource.IsZero() {
		return ErrInvalidResourceID
	}
	return nil
}

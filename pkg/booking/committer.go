package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CommitState is the terminal state of a commit attempt.
type CommitState string

// Commit states.
const (
	CommitStateAborted              CommitState = "aborted"
	CommitStateFailed               CommitState = "failed"
	CommitStateInsertedDeductFailed CommitState = "inserted_deduct_failed"
	CommitStatePartiallyInserted    CommitState = "partially_inserted"
	CommitStateCommitted            CommitState = "committed"
)

// CommitRequest asks for a reservation to be written and paid for.
type CommitRequest struct {
	Branch        BranchID
	Kind          ResourceKind
	Resource      ResourceID
	Member        MemberID
	MemberName    string
	MemberPhone   string
	Date          Date
	Start         int
	Plan          SessionPlan
	PaymentMethod PaymentMethod
	// Contract is required for payment methods that draw from a ledger.
	Contract ContractID
	// TotalAmount is priced by the engine for bays when left at zero.
	TotalAmount    int64
	DiscountAmount int64
}

// CommitResult reports what was written.
type CommitResult struct {
	ReservationID ReservationID
	State         CommitState
	Contract      ContractID
	Unit          LedgerUnit
	Charged       int64
	BeforeBalance int64
	AfterBalance  int64
	Record        ReservationRecord
	// WrittenIDs lists the session rows left behind by a partially inserted reservation.
	WrittenIDs []string
}

func (request CommitRequest) validate() error {
	if request.Branch.IsZero() {
		return ErrInvalidBranchID
	}
	if request.Resource.IsZero() {
		return ErrInvalidResourceID
	}
	if request.Member.IsZero() {
		return ErrInvalidMemberID
	}
	if request.Kind != ResourceKindBay && request.Kind != ResourceKindInstructor {
		return ErrInvalidResourceKind
	}
	if request.Start < 0 || request.Start >= MinutesPerDay {
		return fmt.Errorf("%w: start %d", ErrInvalidTime, request.Start)
	}
	if err := validatePlan(request.Kind, request.Plan); err != nil {
		return err
	}
	if request.TotalAmount < 0 || request.DiscountAmount < 0 {
		return ErrInvalidAmount
	}
	switch request.PaymentMethod {
	case PaymentCard, PaymentCorporateWelfare:
	case PaymentPrepaidCredit:
		if request.Kind != ResourceKindBay {
			return fmt.Errorf("%w: prepaid credit pays for bays only", ErrInvalidPaymentMethod)
		}
	case PaymentTimePass:
		if request.Kind != ResourceKindBay {
			return fmt.Errorf("%w: time pass pays for bays only", ErrInvalidPaymentMethod)
		}
	case PaymentLessonPass:
		if request.Kind != ResourceKindInstructor {
			return fmt.Errorf("%w: lesson pass pays for lessons only", ErrInvalidPaymentMethod)
		}
	default:
		return ErrInvalidPaymentMethod
	}
	if _, drawsLedger := request.PaymentMethod.LedgerUnit(); drawsLedger && request.Contract.IsZero() {
		return fmt.Errorf("%w: %s requires a contract", ErrInvalidContractID, request.PaymentMethod)
	}
	return nil
}

func (request CommitRequest) ledgerScope() (LedgerScope, bool) {
	unit, drawsLedger := request.PaymentMethod.LedgerUnit()
	if !drawsLedger {
		return LedgerScope{}, false
	}
	scope := LedgerScope{Kind: request.Kind, Unit: unit}
	if request.Kind == ResourceKindInstructor {
		scope.Resource = request.Resource
	}
	return scope, true
}

// requiredDraw is lesson minutes for minute ledgers and the net amount for currency ledgers.
func requiredDraw(unit LedgerUnit, plan SessionPlan, net int64) int64 {
	if unit == LedgerUnitMinutes {
		return int64(plan.LessonMinutes())
	}
	return net
}

// ledgerDate is the day a contract must still be valid on: the booked date, or today when later.
func (service *Service) ledgerDate(request CommitRequest) Date {
	today := DateOf(service.nowFn())
	if request.Date.Before(today) {
		return today
	}
	return request.Date
}

// ReservationIDFor derives the deterministic reservation id yymmdd_<resource>_<hhmm>.
func ReservationIDFor(date Date, resource ResourceID, start int) ReservationID {
	return ReservationID{value: strings.Join([]string{
		date.Compact(),
		resource.String(),
		strings.ReplaceAll(ToTimeString(start), ":", ""),
	}, reservationIDDelimiter)}
}

// disambiguate appends _hhmmss of the commit clock to a colliding id.
func disambiguate(reservationID ReservationID, hour int, minute int, second int) ReservationID {
	return ReservationID{value: fmt.Sprintf("%s%s%02d%02d%02d", reservationID.value, reservationIDDelimiter, hour, minute, second)}
}

// commit runs DuplicateCheck, insert and deduction. The caller holds the slot lock.
func (service *Service) commit(ctx context.Context, request CommitRequest) (CommitResult, error) {
	result := CommitResult{State: CommitStateAborted, Contract: request.Contract}

	schedule, err := service.loadScheduleContext(ctx, scheduleQuery{
		branch:   request.Branch,
		kind:     request.Kind,
		resource: request.Resource,
		date:     request.Date,
	})
	if err != nil {
		return result, err
	}
	resourceSchedule, ok := schedule.Resource(request.Resource)
	if !ok {
		return result, WrapError(operationCommitReservation, errorSubjectResource, errorCodeLoad, ErrResourceNotFound)
	}
	memberType, err := service.memberType(ctx, request.Branch, request.Member)
	if err != nil {
		return result, err
	}
	verdict := checkWindow(windowCheck{
		schedule:      resourceSchedule,
		earliestStart: schedule.EarliestStart,
		memberType:    memberType,
		start:         request.Start,
		plan:          request.Plan,
	})
	if !verdict.Available() {
		if verdict.Reason == ReasonTimeConflict {
			return result, WrapError(operationCommitReservation, errorSubjectReservation, errorCodeDuplicate,
				fmt.Errorf("%w: %s", ErrDuplicateReservation, verdict.Detail))
		}
		return result, WrapError(operationCommitReservation, errorSubjectReservation, string(verdict.Reason),
			fmt.Errorf("%w: %s", ErrSlotUnavailable, verdict.Detail))
	}

	total := request.TotalAmount
	if total == 0 && request.Kind == ResourceKindBay {
		quote, err := service.quote(ctx, request.Branch, resourceSchedule.Profile, request.Date, NewInterval(request.Start, request.Plan.TotalSpan()))
		if err != nil {
			return result, err
		}
		total = quote.Total
	}
	net := total - request.DiscountAmount
	if net < 0 {
		net = 0
	}

	scope, drawsLedger := request.ledgerScope()
	required := net
	if drawsLedger {
		required = requiredDraw(scope.Unit, request.Plan, net)
		entry, err := service.store.LedgerEntry(ctx, request.Branch, request.Member, request.Contract, scope)
		if err != nil {
			return result, WrapError(operationCommitReservation, errorSubjectLedger, errorCodeLoad, err)
		}
		if err := checkContract(entry, required, service.ledgerDate(request)); err != nil {
			return result, WrapError(operationCommitReservation, errorSubjectLedger, errorCodeLoad, err)
		}
		result.Unit = scope.Unit
	}

	now := service.nowFn()
	record := ReservationRecord{
		ReservationID:  ReservationIDFor(request.Date, request.Resource, request.Start),
		Branch:         request.Branch,
		ResourceID:     request.Resource,
		Kind:           request.Kind,
		Date:           request.Date,
		Start:          verdict.Start,
		End:            verdict.End,
		Member:         request.Member,
		MemberName:     request.MemberName,
		MemberPhone:    request.MemberPhone,
		PaymentMethod:  request.PaymentMethod,
		Contract:       request.Contract,
		TotalAmount:    total,
		DiscountAmount: request.DiscountAmount,
		NetAmount:      net,
		ChargedAmount:  required,
		Sessions:       verdict.Sessions,
		CreatedAt:      now,
	}

	err = service.store.InsertReservation(ctx, record)
	if errors.Is(err, ErrReservationIDConflict) && !errors.Is(err, ErrPartialInsert) {
		record.ReservationID = disambiguate(record.ReservationID, now.Hour(), now.Minute(), now.Second())
		err = service.store.InsertReservation(ctx, record)
	}
	var partial PartialInsertError
	if errors.As(err, &partial) {
		result.State = CommitStatePartiallyInserted
		result.ReservationID = record.ReservationID
		result.Record = record
		result.WrittenIDs = partial.WrittenIDs
		return result, WrapError(operationCommitReservation, errorSubjectReservation, errorCodeInsert, err)
	}
	if err != nil {
		result.State = CommitStateFailed
		if errors.Is(err, ErrDuplicateReservation) {
			return result, WrapError(operationCommitReservation, errorSubjectReservation, errorCodeDuplicate, err)
		}
		return result, WrapError(operationCommitReservation, errorSubjectReservation, errorCodeInsert, err)
	}
	result.ReservationID = record.ReservationID
	result.Record = record
	result.Charged = required

	if !drawsLedger {
		result.State = CommitStateCommitted
		return result, nil
	}

	before, after, err := service.deduct(ctx, request, scope, record, required)
	if err != nil {
		result.State = CommitStateInsertedDeductFailed
		return result, PartialCommitError{
			ReservationID: record.ReservationID,
			Err:           WrapError(operationCommitReservation, errorSubjectLedger, errorCodeDeduct, err),
		}
	}
	result.State = CommitStateCommitted
	result.BeforeBalance = before
	result.AfterBalance = after
	return result, nil
}

// deduct re-reads the contract, re-validates it and writes the before/after audit row.
func (service *Service) deduct(ctx context.Context, request CommitRequest, scope LedgerScope, record ReservationRecord, required int64) (int64, int64, error) {
	entry, err := service.store.LedgerEntry(ctx, request.Branch, request.Member, request.Contract, scope)
	if err != nil {
		return 0, 0, err
	}
	if err := checkContract(entry, required, service.ledgerDate(request)); err != nil {
		return 0, 0, err
	}
	deduction := LedgerDeduction{
		Branch:        request.Branch,
		Member:        request.Member,
		Contract:      request.Contract,
		ReservationID: record.ReservationID,
		Kind:          request.Kind,
		Unit:          scope.Unit,
		Amount:        required,
		BalanceBefore: entry.Balance,
		BalanceAfter:  entry.Balance - required,
		ExpiryDate:    entry.ExpiryDate,
		Date:          request.Date,
		CreatedAt:     service.nowFn(),
	}
	if err := service.store.InsertLedgerDeduction(ctx, deduction); err != nil {
		return 0, 0, err
	}
	return deduction.BalanceBefore, deduction.BalanceAfter, nil
}

func validatePlan(kind ResourceKind, plan SessionPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if kind == ResourceKindBay && len(plan) != 1 {
		return fmt.Errorf("%w: bay reservations have exactly one session", ErrUnsupportedForResource)
	}
	if plan.TotalSpan() > MinutesPerDay {
		return fmt.Errorf("%w: plan spans more than a day", ErrInvalidDuration)
	}
	return nil
}

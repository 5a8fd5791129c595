package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Domain-level error values returned by the booking service.
var (
	ErrInvalidBranchID        = errors.New("invalid branch id")
	ErrInvalidResourceID      = errors.New("invalid resource id")
	ErrInvalidMemberID        = errors.New("invalid member id")
	ErrInvalidContractID      = errors.New("invalid contract id")
	ErrInvalidReservationID   = errors.New("invalid reservation id")
	ErrInvalidResourceKind    = errors.New("invalid resource kind")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidTime            = errors.New("invalid time of day")
	ErrInvalidDuration        = errors.New("invalid duration")
	ErrInvalidSessionPlan     = errors.New("invalid session plan")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrInvalidLedgerUnit      = errors.New("invalid ledger unit")
	ErrDateInPast             = errors.New("date is in the past")
	ErrInvalidServiceConfig   = errors.New("invalid service config")
	ErrScheduleNotFound       = errors.New("business hours not found")
	ErrResourceNotFound       = errors.New("resource not found")
	ErrMemberNotFound         = errors.New("member not found")
	ErrHoliday                = errors.New("closed on this date")
	ErrSlotUnavailable        = errors.New("requested window is unavailable")
	ErrDuplicateReservation   = errors.New("duplicate reservation")
	ErrReservationIDConflict  = errors.New("reservation id already taken")
	ErrSlotLocked             = errors.New("slot is locked by another commit")
	ErrNoContracts            = errors.New("member has no contracts")
	ErrNoMatchingContracts    = errors.New("no contracts match the resource scope")
	ErrContractsExpired       = errors.New("all matching contracts are expired")
	ErrContractNotFound       = errors.New("contract not found")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrUpstreamUnavailable    = errors.New("data api unavailable")
	ErrPartialCommit          = errors.New("reservation stored but ledger deduction failed")
	ErrPartialInsert          = errors.New("reservation rows partially stored")
	ErrPricingPolicyNotFound  = errors.New("pricing policy not found")
	ErrHourlyRateNotFound     = errors.New("hourly rate not configured")
	ErrUnsupportedForResource = errors.New("operation not supported for resource kind")
)

// ErrorKind groups errors into the categories callers branch on.
type ErrorKind string

// Known error kinds.
const (
	KindUnknown             ErrorKind = "unknown"
	KindInputValidation     ErrorKind = "input_validation"
	KindNotFound            ErrorKind = "not_found"
	KindPolicyViolation     ErrorKind = "policy_violation"
	KindResourceConflict    ErrorKind = "resource_conflict"
	KindLedgerInsufficient  ErrorKind = "ledger_insufficient"
	KindLedgerExpired       ErrorKind = "ledger_expired"
	KindLedgerMissing       ErrorKind = "ledger_missing"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindPartialCommit       ErrorKind = "partial_commit"
)

var errorKinds = []struct {
	target error
	kind   ErrorKind
}{
	{ErrPartialCommit, KindPartialCommit},
	{ErrPartialInsert, KindPartialCommit},
	{ErrInvalidBranchID, KindInputValidation},
	{ErrInvalidResourceID, KindInputValidation},
	{ErrInvalidMemberID, KindInputValidation},
	{ErrInvalidContractID, KindInputValidation},
	{ErrInvalidReservationID, KindInputValidation},
	{ErrInvalidResourceKind, KindInputValidation},
	{ErrInvalidDate, KindInputValidation},
	{ErrInvalidTime, KindInputValidation},
	{ErrInvalidDuration, KindInputValidation},
	{ErrInvalidSessionPlan, KindInputValidation},
	{ErrInvalidAmount, KindInputValidation},
	{ErrInvalidPaymentMethod, KindInputValidation},
	{ErrInvalidLedgerUnit, KindInputValidation},
	{ErrDateInPast, KindInputValidation},
	{ErrUnsupportedForResource, KindInputValidation},
	{ErrScheduleNotFound, KindNotFound},
	{ErrResourceNotFound, KindNotFound},
	{ErrMemberNotFound, KindNotFound},
	{ErrPricingPolicyNotFound, KindNotFound},
	{ErrHourlyRateNotFound, KindNotFound},
	{ErrHoliday, KindPolicyViolation},
	{ErrSlotUnavailable, KindPolicyViolation},
	{ErrDuplicateReservation, KindResourceConflict},
	{ErrReservationIDConflict, KindResourceConflict},
	{ErrSlotLocked, KindResourceConflict},
	{ErrInsufficientBalance, KindLedgerInsufficient},
	{ErrContractsExpired, KindLedgerExpired},
	{ErrNoContracts, KindLedgerMissing},
	{ErrNoMatchingContracts, KindLedgerMissing},
	{ErrContractNotFound, KindLedgerMissing},
	{ErrUpstreamUnavailable, KindUpstreamUnavailable},
}

// KindOf classifies err. PartialCommit wins over whatever caused the deduction to fail.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, candidate := range errorKinds {
		if errors.Is(err, candidate.target) {
			return candidate.kind
		}
	}
	return KindUnknown
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}

// InsufficientBalanceError reports the shortfall against the largest usable contract.
type InsufficientBalanceError struct {
	Required     int64
	MaxAvailable int64
	Unit         LedgerUnit
}

func (insufficient InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%v: required %d %s, max available %d (short %d)",
		ErrInsufficientBalance, insufficient.Required, insufficient.Unit, insufficient.MaxAvailable, insufficient.Shortfall())
}

// Shortfall is how much the largest contract is missing.
func (insufficient InsufficientBalanceError) Shortfall() int64 {
	return insufficient.Required - insufficient.MaxAvailable
}

// Is matches ErrInsufficientBalance.
func (insufficient InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// PartialCommitError is returned when the reservation row exists but the ledger was not debited.
type PartialCommitError struct {
	ReservationID ReservationID
	Err           error
}

func (partial PartialCommitError) Error() string {
	return fmt.Sprintf("%v: reservation %s: %v", ErrPartialCommit, partial.ReservationID, partial.Err)
}

// Unwrap exposes both the partial-commit marker and the deduction cause.
func (partial PartialCommitError) Unwrap() []error {
	return []error{ErrPartialCommit, partial.Err}
}

// PartialInsertError is returned by stores that write one row per session without a transaction
// when a later row fails. WrittenIDs lists the rows already stored.
type PartialInsertError struct {
	ReservationID ReservationID
	WrittenIDs    []string
	Err           error
}

func (partial PartialInsertError) Error() string {
	return fmt.Sprintf("%v: reservation %s: wrote %s: %v",
		ErrPartialInsert, partial.ReservationID, strings.Join(partial.WrittenIDs, ","), partial.Err)
}

// Unwrap exposes both the partial-insert marker and the row failure.
func (partial PartialInsertError) Unwrap() []error {
	return []error{ErrPartialInsert, partial.Err}
}

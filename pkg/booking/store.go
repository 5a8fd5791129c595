package booking

import "context"

// Store reads and writes the branch's booking tables. Every method is scoped to a branch.
type Store interface {
	// BusinessHours returns ErrScheduleNotFound when the date has no record.
	BusinessHours(ctx context.Context, branch BranchID, date Date) (ScheduleWindow, error)
	// WorkingHours reports false when the instructor has no weekly row for the date.
	WorkingHours(ctx context.Context, branch BranchID, instructor ResourceID, date Date) (WorkingHours, bool, error)
	// ResourceProfile returns ErrResourceNotFound when the resource does not exist.
	ResourceProfile(ctx context.Context, branch BranchID, kind ResourceKind, resource ResourceID) (ResourceProfile, error)
	ResourceProfiles(ctx context.Context, branch BranchID, kind ResourceKind) ([]ResourceProfile, error)
	// BookedIntervals excludes cancelled bookings. A zero resource loads every resource of kind.
	BookedIntervals(ctx context.Context, branch BranchID, kind ResourceKind, resource ResourceID, date Date) ([]BookedInterval, error)
	// MemberType returns ErrMemberNotFound when the member does not exist.
	MemberType(ctx context.Context, branch BranchID, member MemberID) (string, error)
	// LedgerEntries returns the latest balance of every contract the member holds.
	LedgerEntries(ctx context.Context, branch BranchID, member MemberID) ([]LedgerEntry, error)
	// LedgerEntry returns ErrContractNotFound when the contract has no balance row in scope.
	LedgerEntry(ctx context.Context, branch BranchID, member MemberID, contract ContractID, scope LedgerScope) (LedgerEntry, error)
	PricingPolicies(ctx context.Context, branch BranchID, dayKey string) ([]PricingPolicy, error)
	// InsertReservation returns ErrReservationIDConflict when the id is taken and
	// ErrDuplicateReservation when the store's slot constraint rejects the row.
	InsertReservation(ctx context.Context, record ReservationRecord) error
	InsertLedgerDeduction(ctx context.Context, deduction LedgerDeduction) error
}

// SlotLocker serializes commits for one resource and date.
type SlotLocker interface {
	// LockSlot returns ErrSlotLocked when another commit holds the slot.
	LockSlot(ctx context.Context, branch BranchID, resource ResourceID, date Date) (func(context.Context) error, error)
}

// Notifier is told about every committed reservation.
type Notifier interface {
	ReservationCommitted(ctx context.Context, record ReservationRecord) error
}

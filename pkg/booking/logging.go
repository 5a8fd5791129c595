package booking

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes one caller-facing booking operation.
type OperationLog struct {
	Operation     string
	Branch        BranchID
	Resource      ResourceID
	Member        MemberID
	Date          Date
	ReservationID ReservationID
	Outcome       string
	Status        string
	Error         error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithSlotLocker serializes commits on the same resource and date.
func WithSlotLocker(locker SlotLocker) ServiceOption {
	return func(service *Service) {
		service.locker = locker
	}
}

// WithNotifier announces committed reservations.
func WithNotifier(notifier Notifier) ServiceOption {
	return func(service *Service) {
		service.notifier = notifier
	}
}

// WithHolidayCalendar replaces the public holiday calendar used by pricing.
func WithHolidayCalendar(calendar HolidayCalendar) ServiceOption {
	return func(service *Service) {
		service.holidays = calendar
	}
}

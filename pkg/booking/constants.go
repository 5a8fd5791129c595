package booking

const (
	operationCheckAvailability = "check_availability"
	operationFindOpenStarts    = "find_open_starts"
	operationValidateLedger    = "validate_ledger"
	operationCalculatePrice    = "calculate_price"
	operationCommitReservation = "commit_reservation"
	operationLoadSchedule      = "load_schedule"

	operationStatusOK      = "ok"
	operationStatusError   = "error"
	operationStatusPartial = "partial"

	errorSubjectSchedule    = "schedule"
	errorSubjectResource    = "resource"
	errorSubjectMember      = "member"
	errorSubjectLedger      = "ledger"
	errorSubjectPricing     = "pricing"
	errorSubjectReservation = "reservation"
	errorSubjectLock        = "lock"

	errorCodeLoad      = "load"
	errorCodeInsert    = "insert"
	errorCodeDeduct    = "deduct"
	errorCodeDuplicate = "duplicate"
	errorCodeAcquire   = "acquire"
	errorCodeRelease   = "release"
	errorCodeNotify    = "notify"

	// HolidayDayKey selects pricing policies defined for public holidays.
	HolidayDayKey = "holiday"

	reservationIDDelimiter = "_"
)

var weekdayKeys = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

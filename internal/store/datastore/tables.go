package datastore

import "github.com/MarkoPoloResearchLab/teetime/pkg/booking"

const (
	tableSchedule         = "v2_schedule_adjusted_ts"
	tableBays             = "v2_ts_info"
	tableBayBookings      = "v2_priced_TS"
	tableMembers          = "v3_members"
	tableTimePassLedger   = "v2_bill_times"
	tableCreditLedger     = "v2_bills"
	tableInstructors      = "v2_staff_pro"
	tableInstructorHours  = "v2_weekly_schedule_pro"
	tableLessons          = "v2_LS_orders"
	tableLessonLedger     = "v3_LS_countings"
	tablePricingPolicies  = "v2_ts_pricing_policy"
	statusBayAvailable    = "예약가능"
	statusBaySuspended    = "예약중지"
	statusCancelled       = "예약취소"
	statusPaid            = "결제완료"
	scheduleClosed        = "close"
	holidayDayOfWeek      = "공휴일"
	defaultBookingType    = "일반"
	defaultBillType       = "타석이용"
	defaultLessonBillType = "레슨차감"
	dateLayout            = "2006-01-02"
	timestampLayout       = "2006-01-02 15:04:05"

	errorOperationDataStore = "datastore"
	errorCodeGet            = "get"
	errorCodeAdd            = "add"
	errorCodeInvalid        = "invalid"
	errorCodeDuplicate      = "duplicate"
)

var dayOfWeekByKey = map[string]string{
	"mon":                 "월",
	"tue":                 "화",
	"wed":                 "수",
	"thu":                 "목",
	"fri":                 "금",
	"sat":                 "토",
	"sun":                 "일",
	booking.HolidayDayKey: holidayDayOfWeek,
}

var dayOffMarkers = map[string]struct{}{
	"휴무":   {},
	"y":    {},
	"yes":  {},
	"1":    {},
	"true": {},
}

// ledgerTable describes where one kind of contract keeps its running balance.
type ledgerTable struct {
	name          string
	idField       string
	contractField string
	balanceField  string
	expiryField   string
	resourceField string
	unit          booking.LedgerUnit
	kind          booking.ResourceKind
}

var (
	creditLedger = ledgerTable{
		name:          tableCreditLedger,
		idField:       "bill_id",
		contractField: "contract_history_id",
		balanceField:  "bill_balance_after",
		expiryField:   "contract_credit_expiry_date",
		unit:          booking.LedgerUnitCurrency,
		kind:          booking.ResourceKindBay,
	}
	timePassLedger = ledgerTable{
		name:          tableTimePassLedger,
		idField:       "bill_min_id",
		contractField: "contract_history_id",
		balanceField:  "bill_balance_min_after",
		expiryField:   "contract_TS_min_expiry_date",
		unit:          booking.LedgerUnitMinutes,
		kind:          booking.ResourceKindBay,
	}
	lessonLedger = ledgerTable{
		name:          tableLessonLedger,
		idField:       "LS_counting_id",
		contractField: "LS_contract_id",
		balanceField:  "LS_balance_min_after",
		expiryField:   "LS_expiry_date",
		resourceField: "pro_id",
		unit:          booking.LedgerUnitMinutes,
		kind:          booking.ResourceKindInstructor,
	}
	ledgerTables = []ledgerTable{creditLedger, timePassLedger, lessonLedger}
)

func ledgerTableFor(scope booking.LedgerScope) (ledgerTable, bool) {
	for _, table := range ledgerTables {
		if table.unit == scope.Unit && table.kind == scope.Kind {
			return table, true
		}
	}
	return ledgerTable{}, false
}

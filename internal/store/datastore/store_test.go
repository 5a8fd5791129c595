package datastore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/teetime/internal/dataapi"
	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
)

type fakeClient struct {
	mu     sync.Mutex
	rows   map[string][]dataapi.Row
	getErr error
	addErr error
	// addErr applies once more than failAfter adds have been made.
	failAfter int
	gets      []dataapi.Request
	adds      []dataapi.Request
}

func newFakeClient() *fakeClient {
	return &fakeClient{rows: make(map[string][]dataapi.Row)}
}

func (client *fakeClient) Get(_ context.Context, request dataapi.Request) ([]dataapi.Row, error) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.gets = append(client.gets, request)
	if client.getErr != nil {
		return nil, client.getErr
	}
	return client.rows[request.Table], nil
}

func (client *fakeClient) Add(_ context.Context, request dataapi.Request) (dataapi.Response, error) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.adds = append(client.adds, request)
	if client.addErr != nil && len(client.adds) > client.failAfter {
		return dataapi.Response{}, client.addErr
	}
	return dataapi.Response{Success: true}, nil
}

func mustBranch(test *testing.T) booking.BranchID {
	test.Helper()
	branch, err := booking.NewBranchID("b-1")
	if err != nil {
		test.Fatalf("branch: %v", err)
	}
	return branch
}

func mustResource(test *testing.T, raw string) booking.ResourceID {
	test.Helper()
	resource, err := booking.NewResourceID(raw)
	if err != nil {
		test.Fatalf("resource: %v", err)
	}
	return resource
}

func mustDate(test *testing.T, raw string) booking.Date {
	test.Helper()
	date, err := booking.NewDate(raw)
	if err != nil {
		test.Fatalf("date: %v", err)
	}
	return date
}

func mustMember(test *testing.T) booking.MemberID {
	test.Helper()
	member, err := booking.NewMemberID("m-1")
	if err != nil {
		test.Fatalf("member: %v", err)
	}
	return member
}

func branchScoped(request dataapi.Request) bool {
	for _, condition := range request.Where {
		if condition.Field == dataapi.BranchField && condition.Operator == "=" && condition.Value == "b-1" {
			return true
		}
	}
	return false
}

func TestBusinessHoursParsesScheduleRow(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.rows[tableSchedule] = []dataapi.Row{{"ts_date": "2025-03-11", "business_start": "06:00:00", "business_end": "00:00:00", "is_holiday": ""}}
	store := New(client)

	window, err := store.BusinessHours(context.Background(), mustBranch(test), mustDate(test, "2025-03-11"))
	if err != nil {
		test.Fatalf("business hours: %v", err)
	}
	if window.BusinessStart != 360 || window.BusinessEnd != 0 || window.IsHoliday {
		test.Fatalf("unexpected window %+v", window)
	}
	if !branchScoped(client.gets[0]) {
		test.Fatalf("expected branch scoped request, got %+v", client.gets[0])
	}
}

func TestBusinessHoursHolidayAndMissing(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.rows[tableSchedule] = []dataapi.Row{{"is_holiday": "CLOSE"}}
	store := New(client)
	window, err := store.BusinessHours(context.Background(), mustBranch(test), mustDate(test, "2025-05-05"))
	if err != nil || !window.IsHoliday {
		test.Fatalf("expected holiday window, got %+v (%v)", window, err)
	}

	empty := New(newFakeClient())
	_, err = empty.BusinessHours(context.Background(), mustBranch(test), mustDate(test, "2025-05-06"))
	if !errors.Is(err, booking.ErrScheduleNotFound) || booking.KindOf(err) != booking.KindNotFound {
		test.Fatalf("expected schedule not found, got %v", err)
	}
}

func TestWorkingHoursVariants(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		rows      []dataapi.Row
		wantFound bool
		want      booking.WorkingHours
	}{
		{name: "no row", wantFound: false},
		{name: "day off", rows: []dataapi.Row{{"is_day_off": "휴무"}}, wantFound: true, want: booking.WorkingHours{DayOff: true}},
		{name: "hours", rows: []dataapi.Row{{"work_start": "10:00:00", "work_end": "14:30:00", "is_day_off": "N"}}, wantFound: true, want: booking.WorkingHours{Start: 600, End: 870}},
	}
	for _, testCase := range testCases {
		client := newFakeClient()
		client.rows[tableInstructorHours] = testCase.rows
		hours, found, err := New(client).WorkingHours(context.Background(), mustBranch(test), mustResource(test, "pro-7"), mustDate(test, "2025-03-11"))
		if err != nil {
			test.Fatalf("%s: %v", testCase.name, err)
		}
		if found != testCase.wantFound || hours != testCase.want {
			test.Fatalf("%s: expected %+v/%t, got %+v/%t", testCase.name, testCase.want, testCase.wantFound, hours, found)
		}
	}
}

func TestResourceProfileMapsBayColumns(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.rows[tableBays] = []dataapi.Row{{
		"ts_id":                  "3",
		"ts_status":              statusBaySuspended,
		"ts_min_minimum":         "30",
		"ts_min_maximum":         120.0,
		"ts_buffer":              "10",
		"member_type_prohibited": "주니어, 법인",
		"base_price":             "30000",
		"discount_price":         24000.0,
	}}
	profile, err := New(client).ResourceProfile(context.Background(), mustBranch(test), booking.ResourceKindBay, mustResource(test, "3"))
	if err != nil {
		test.Fatalf("profile: %v", err)
	}
	if profile.Status != booking.ResourceStatusSuspended || profile.MinDurationMinutes != 30 || profile.MaxDurationMinutes != 120 || profile.BufferMinutes != 10 {
		test.Fatalf("unexpected profile %+v", profile)
	}
	if !profile.Prohibits("법인") || profile.Prohibits("정회원") {
		test.Fatalf("unexpected prohibition list %v", profile.ProhibitedMemberTypes)
	}
	if profile.HourlyRates[booking.RateBandBase] != 30000 || profile.HourlyRates[booking.RateBandDiscount] != 24000 {
		test.Fatalf("unexpected rates %v", profile.HourlyRates)
	}
	if _, ok := profile.HourlyRates[booking.RateBandSurcharge]; ok {
		test.Fatalf("missing surcharge column must not produce a rate")
	}
}

func TestResourceProfileNotFound(test *testing.T) {
	test.Parallel()
	_, err := New(newFakeClient()).ResourceProfile(context.Background(), mustBranch(test), booking.ResourceKindInstructor, mustResource(test, "pro-9"))
	if !errors.Is(err, booking.ErrResourceNotFound) {
		test.Fatalf("expected resource not found, got %v", err)
	}
}

func TestResourceProfilesInstructorDefaults(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.rows[tableInstructors] = []dataapi.Row{
		{"pro_id": "pro-7", "pro_name": "Kim", "min_service_min": "20", "svc_time_unit": "10"},
		{"pro_id": "pro-8", "pro_name": "Lee"},
	}
	profiles, err := New(client).ResourceProfiles(context.Background(), mustBranch(test), booking.ResourceKindInstructor)
	if err != nil {
		test.Fatalf("profiles: %v", err)
	}
	if len(profiles) != 2 {
		test.Fatalf("expected two profiles, got %d", len(profiles))
	}
	if profiles[0].MinDurationMinutes != 20 || profiles[0].GranularityMinutes != 10 {
		test.Fatalf("unexpected first profile %+v", profiles[0])
	}
	if profiles[1].MinDurationMinutes != booking.DefaultInstructorMinimum || profiles[1].GranularityMinutes != booking.DefaultGranularityMinutes {
		test.Fatalf("expected defaults, got %+v", profiles[1])
	}
	for _, condition := range client.gets[0].Where {
		if condition.Field == "pro_id" {
			test.Fatalf("listing must not filter by resource")
		}
	}
}

func TestBookedIntervalsSkipsCancelled(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.rows[tableBayBookings] = []dataapi.Row{
		{"ts_id": "3", "reservation_id": "r-1", "ts_start": "10:00:00", "ts_end": "11:00:00", "ts_status": statusPaid},
		{"ts_id": "3", "reservation_id": "r-2", "ts_start": "12:00:00", "ts_end": "13:00:00", "ts_status": statusCancelled},
		{"ts_id": "3", "reservation_id": "r-3", "ts_start": "23:00:00", "ts_end": "00:00:00", "ts_status": statusPaid},
	}
	intervals, err := New(client).BookedIntervals(context.Background(), mustBranch(test), booking.ResourceKindBay, mustResource(test, "3"), mustDate(test, "2025-03-11"))
	if err != nil {
		test.Fatalf("intervals: %v", err)
	}
	if len(intervals) != 2 || intervals[0].ReservationID != "r-1" || intervals[1].End != booking.MinutesPerDay {
		test.Fatalf("unexpected intervals %+v", intervals)
	}
	request := client.gets[0]
	excluded := false
	for _, condition := range request.Where {
		if condition.Field == "ts_status" && condition.Operator == "<>" && condition.Value == statusCancelled {
			excluded = true
		}
	}
	if !excluded {
		test.Fatalf("expected cancelled rows excluded in the query, got %+v", request.Where)
	}
}

func TestBookedIntervalsReadsLessonsForInstructors(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.rows[tableLessons] = []dataapi.Row{{"pro_id": "pro-7", "LS_id": "l-1", "LS_start_time": "10:00:00", "LS_end_time": "10:30:00", "LS_status": statusPaid}}
	intervals, err := New(client).BookedIntervals(context.Background(), mustBranch(test), booking.ResourceKindInstructor, mustResource(test, "pro-7"), mustDate(test, "2025-03-11"))
	if err != nil {
		test.Fatalf("intervals: %v", err)
	}
	if len(intervals) != 1 || intervals[0].Start != 600 || intervals[0].End != 630 {
		test.Fatalf("unexpected intervals %+v", intervals)
	}
	if client.gets[0].Table != tableLessons {
		test.Fatalf("expected lesson table, got %s", client.gets[0].Table)
	}
}

func TestMemberType(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.rows[tableMembers] = []dataapi.Row{{"member_id": "m-1", "member_type": "정회원"}}
	memberType, err := New(client).MemberType(context.Background(), mustBranch(test), mustMember(test))
	if err != nil || memberType != "정회원" {
		test.Fatalf("expected member type, got %q (%v)", memberType, err)
	}
	_, err = New(newFakeClient()).MemberType(context.Background(), mustBranch(test), mustMember(test))
	if !errors.Is(err, booking.ErrMemberNotFound) {
		test.Fatalf("expected member not found, got %v", err)
	}
}

func TestLedgerEntriesKeepsLatestRowPerContract(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.rows[tableTimePassLedger] = []dataapi.Row{
		{"contract_history_id": "tp-1", "bill_min_id": "9", "bill_balance_min_after": "140", "contract_TS_min_expiry_date": "2025-12-31"},
		{"contract_history_id": "tp-1", "bill_min_id": "4", "bill_balance_min_after": "200", "contract_TS_min_expiry_date": "2025-12-31"},
		{"contract_history_id": "tp-2", "bill_min_id": "7", "bill_balance_min_after": "60", "contract_TS_min_expiry_date": "0000-00-00"},
	}
	client.rows[tableLessonLedger] = []dataapi.Row{
		{"LS_contract_id": "ls-1", "LS_counting_id": "3", "LS_balance_min_after": "300", "LS_expiry_date": "", "pro_id": "pro-7"},
	}
	entries, err := New(client).LedgerEntries(context.Background(), mustBranch(test), mustMember(test))
	if err != nil {
		test.Fatalf("entries: %v", err)
	}
	if len(entries) != 3 {
		test.Fatalf("expected three entries, got %+v", entries)
	}
	if entries[0].ContractID.String() != "tp-1" || entries[0].Balance != 140 || entries[0].ExpiryDate == nil {
		test.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].ExpiryDate != nil {
		test.Fatalf("zero date must mean no expiry, got %v", entries[1].ExpiryDate)
	}
	lesson := entries[2]
	if lesson.Kind != booking.ResourceKindInstructor || lesson.Unit != booking.LedgerUnitMinutes || lesson.Resource.String() != "pro-7" {
		test.Fatalf("unexpected lesson entry %+v", lesson)
	}
	if len(client.gets) != len(ledgerTables) {
		test.Fatalf("expected one read per ledger table, got %d", len(client.gets))
	}
}

func TestLedgerEntryScopesContract(test *testing.T) {
	test.Parallel()
	contract, _ := booking.NewContractID("ls-1")
	client := newFakeClient()
	client.rows[tableLessonLedger] = []dataapi.Row{{"LS_contract_id": "ls-1", "LS_counting_id": "3", "LS_balance_min_after": "300", "pro_id": "pro-7"}}
	store := New(client)

	entry, err := store.LedgerEntry(context.Background(), mustBranch(test), mustMember(test), contract, booking.LedgerScope{
		Kind: booking.ResourceKindInstructor, Unit: booking.LedgerUnitMinutes, Resource: mustResource(test, "pro-7"),
	})
	if err != nil || entry.Balance != 300 {
		test.Fatalf("expected entry, got %+v (%v)", entry, err)
	}
	request := client.gets[0]
	if request.Limit != 1 || len(request.OrderBy) != 1 || request.OrderBy[0].Direction != "DESC" {
		test.Fatalf("expected latest-row query, got %+v", request)
	}

	_, err = store.LedgerEntry(context.Background(), mustBranch(test), mustMember(test), contract, booking.LedgerScope{
		Kind: booking.ResourceKindInstructor, Unit: booking.LedgerUnitMinutes, Resource: mustResource(test, "pro-8"),
	})
	if !errors.Is(err, booking.ErrContractNotFound) {
		test.Fatalf("expected contract bound to another instructor to be rejected, got %v", err)
	}

	_, err = store.LedgerEntry(context.Background(), mustBranch(test), mustMember(test), contract, booking.LedgerScope{
		Kind: booking.ResourceKindInstructor, Unit: booking.LedgerUnitCurrency,
	})
	if !errors.Is(err, booking.ErrContractNotFound) {
		test.Fatalf("expected unsupported scope to be missing, got %v", err)
	}
}

func TestPricingPoliciesKeepsRowOrder(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.rows[tablePricingPolicies] = []dataapi.Row{
		{"policy_start_time": "22:00:00", "policy_end_time": "02:00:00", "policy_apply": "extracharge_price"},
		{"policy_start_time": "06:00:00", "policy_end_time": "22:00:00", "policy_apply": "base_price"},
	}
	policies, err := New(client).PricingPolicies(context.Background(), mustBranch(test), booking.HolidayDayKey)
	if err != nil {
		test.Fatalf("policies: %v", err)
	}
	if len(policies) != 2 || policies[0].Band != booking.RateBandSurcharge || policies[0].Start != 1320 || policies[0].End != 120 {
		test.Fatalf("unexpected policies %+v", policies)
	}
	dayFound := false
	for _, condition := range client.gets[0].Where {
		if condition.Field == "day_of_week" && condition.Value == holidayDayOfWeek {
			dayFound = true
		}
	}
	if !dayFound || len(client.gets[0].OrderBy) != 0 {
		test.Fatalf("unexpected policy request %+v", client.gets[0])
	}
	if _, err := New(client).PricingPolicies(context.Background(), mustBranch(test), "someday"); !errors.Is(err, booking.ErrPricingPolicyNotFound) {
		test.Fatalf("expected unknown day key rejection, got %v", err)
	}
}

func sampleRecord(test *testing.T, kind booking.ResourceKind, sessions []booking.Interval) booking.ReservationRecord {
	test.Helper()
	id, _ := booking.NewReservationID("250311_1_1000")
	contract, _ := booking.NewContractID("tp-1")
	return booking.ReservationRecord{
		ReservationID: id,
		Branch:        mustBranch(test),
		ResourceID:    mustResource(test, "1"),
		Kind:          kind,
		Date:          mustDate(test, "2025-03-11"),
		Start:         sessions[0].Start,
		End:           sessions[len(sessions)-1].End,
		Member:        mustMember(test),
		PaymentMethod: booking.PaymentTimePass,
		Contract:      contract,
		TotalAmount:   30000,
		NetAmount:     30000,
		Sessions:      sessions,
		CreatedAt:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestInsertReservationWritesBayRow(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	record := sampleRecord(test, booking.ResourceKindBay, []booking.Interval{{Start: 600, End: 660}})
	if err := New(client).InsertReservation(context.Background(), record); err != nil {
		test.Fatalf("insert: %v", err)
	}
	if len(client.adds) != 1 {
		test.Fatalf("expected one add, got %d", len(client.adds))
	}
	data := client.adds[0].Data
	if client.adds[0].Table != tableBayBookings || data[dataapi.BranchField] != "b-1" {
		test.Fatalf("unexpected add %+v", client.adds[0])
	}
	if data["ts_start"] != "10:00:00" || data["ts_end"] != "11:00:00" || data["ts_status"] != statusPaid || data["created_at"] != "2025-03-10 09:00:00" {
		test.Fatalf("unexpected row %+v", data)
	}
}

func TestInsertReservationWritesLessonRowPerSession(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	record := sampleRecord(test, booking.ResourceKindInstructor, []booking.Interval{{Start: 600, End: 620}, {Start: 630, End: 650}})
	if err := New(client).InsertReservation(context.Background(), record); err != nil {
		test.Fatalf("insert: %v", err)
	}
	if len(client.adds) != 2 {
		test.Fatalf("expected two lesson rows, got %d", len(client.adds))
	}
	if client.adds[1].Data["LS_id"] != "250311_1_1000_2" || client.adds[1].Data["LS_start_time"] != "10:30:00" {
		test.Fatalf("unexpected second row %+v", client.adds[1].Data)
	}
}

func TestInsertReservationMapsDuplicateKey(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.addErr = booking.WrapError("dataapi", tableBayBookings, "rejected", dataapi.RejectedError{
		Operation: "add", Table: tableBayBookings, Status: 200, Message: "Duplicate entry '250311_1_1000' for key 'PRIMARY'",
	})
	record := sampleRecord(test, booking.ResourceKindBay, []booking.Interval{{Start: 600, End: 660}})
	err := New(client).InsertReservation(context.Background(), record)
	if !errors.Is(err, booking.ErrReservationIDConflict) || booking.KindOf(err) != booking.KindResourceConflict {
		test.Fatalf("expected id conflict, got %v", err)
	}

	client.addErr = booking.ErrUpstreamUnavailable
	err = New(client).InsertReservation(context.Background(), record)
	if errors.Is(err, booking.ErrReservationIDConflict) || !errors.Is(err, booking.ErrUpstreamUnavailable) {
		test.Fatalf("expected upstream failure to pass through, got %v", err)
	}
}

func TestInsertReservationReportsPartialLessonRows(test *testing.T) {
	test.Parallel()
	sessions := []booking.Interval{{Start: 600, End: 620}, {Start: 630, End: 650}, {Start: 660, End: 680}}
	duplicate := booking.WrapError("dataapi", tableLessons, "rejected", dataapi.RejectedError{
		Operation: "add", Table: tableLessons, Status: 200, Message: "Duplicate entry '250311_1_1000_2' for key 'PRIMARY'",
	})
	testCases := []struct {
		name      string
		addErr    error
		wantCause error
	}{
		{name: "upstream failure on second row", addErr: booking.ErrUpstreamUnavailable, wantCause: booking.ErrUpstreamUnavailable},
		{name: "duplicate on second row", addErr: duplicate, wantCause: booking.ErrDuplicateReservation},
	}
	for _, testCase := range testCases {
		client := newFakeClient()
		client.addErr = testCase.addErr
		client.failAfter = 1
		record := sampleRecord(test, booking.ResourceKindInstructor, sessions)
		err := New(client).InsertReservation(context.Background(), record)
		var partial booking.PartialInsertError
		if !errors.As(err, &partial) {
			test.Fatalf("%s: expected partial insert, got %v", testCase.name, err)
		}
		if len(partial.WrittenIDs) != 1 || partial.WrittenIDs[0] != "250311_1_1000_1" || partial.ReservationID != record.ReservationID {
			test.Fatalf("%s: unexpected written rows %+v", testCase.name, partial)
		}
		if !errors.Is(err, testCase.wantCause) || errors.Is(err, booking.ErrReservationIDConflict) {
			test.Fatalf("%s: unexpected cause %v", testCase.name, err)
		}
		if booking.KindOf(err) != booking.KindPartialCommit {
			test.Fatalf("%s: expected partial kind, got %s", testCase.name, booking.KindOf(err))
		}
		if len(client.adds) != 2 {
			test.Fatalf("%s: expected insert to stop after the failed row, got %d adds", testCase.name, len(client.adds))
		}
	}
}

func TestInsertReservationFirstLessonRowConflict(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.addErr = booking.WrapError("dataapi", tableLessons, "rejected", dataapi.RejectedError{
		Operation: "add", Table: tableLessons, Status: 200, Message: "Duplicate entry '250311_1_1000_1' for key 'PRIMARY'",
	})
	record := sampleRecord(test, booking.ResourceKindInstructor, []booking.Interval{{Start: 600, End: 620}, {Start: 630, End: 650}})
	err := New(client).InsertReservation(context.Background(), record)
	if !errors.Is(err, booking.ErrReservationIDConflict) || errors.Is(err, booking.ErrPartialInsert) {
		test.Fatalf("expected retryable id conflict, got %v", err)
	}
}

func TestInsertLedgerDeductionRows(test *testing.T) {
	test.Parallel()
	expiry := mustDate(test, "2025-12-31")
	id, _ := booking.NewReservationID("250311_1_1000")
	contract, _ := booking.NewContractID("c-1")
	testCases := []struct {
		name      string
		unit      booking.LedgerUnit
		kind      booking.ResourceKind
		table     string
		afterKey  string
		amountKey string
		amount    any
	}{
		{name: "credit", unit: booking.LedgerUnitCurrency, kind: booking.ResourceKindBay, table: tableCreditLedger, afterKey: "bill_balance_after", amountKey: "bill_netamt", amount: int64(-25000)},
		{name: "time pass", unit: booking.LedgerUnitMinutes, kind: booking.ResourceKindBay, table: tableTimePassLedger, afterKey: "bill_balance_min_after", amountKey: "bill_min", amount: int64(25000)},
		{name: "lesson", unit: booking.LedgerUnitMinutes, kind: booking.ResourceKindInstructor, table: tableLessonLedger, afterKey: "LS_balance_min_after", amountKey: "LS_counting_min", amount: int64(25000)},
	}
	for _, testCase := range testCases {
		client := newFakeClient()
		err := New(client).InsertLedgerDeduction(context.Background(), booking.LedgerDeduction{
			Branch:        mustBranch(test),
			Member:        mustMember(test),
			Contract:      contract,
			ReservationID: id,
			Kind:          testCase.kind,
			Unit:          testCase.unit,
			Amount:        25000,
			BalanceBefore: 50000,
			BalanceAfter:  25000,
			ExpiryDate:    &expiry,
			Date:          mustDate(test, "2025-03-11"),
			CreatedAt:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		})
		if err != nil {
			test.Fatalf("%s: %v", testCase.name, err)
		}
		add := client.adds[0]
		if add.Table != testCase.table || add.Data[testCase.afterKey] != int64(25000) || add.Data[testCase.amountKey] != testCase.amount {
			test.Fatalf("%s: unexpected add %+v", testCase.name, add)
		}
		if add.Data["reservation_id"] != "250311_1_1000" || add.Data[dataapi.BranchField] != "b-1" {
			test.Fatalf("%s: missing reservation link %+v", testCase.name, add.Data)
		}
	}
}

func TestReadFailuresAreWrapped(test *testing.T) {
	test.Parallel()
	client := newFakeClient()
	client.getErr = booking.ErrUpstreamUnavailable
	_, err := New(client).MemberType(context.Background(), mustBranch(test), mustMember(test))
	var operationError booking.OperationError
	if !errors.As(err, &operationError) || operationError.Operation() != errorOperationDataStore || operationError.Code() != errorCodeGet {
		test.Fatalf("expected datastore operation error, got %v", err)
	}
	if booking.KindOf(err) != booking.KindUpstreamUnavailable {
		test.Fatalf("expected upstream kind, got %s", booking.KindOf(err))
	}
}

package datastore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/teetime/internal/dataapi"
	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
)

// Client is the subset of the data API the store needs.
type Client interface {
	Get(ctx context.Context, request dataapi.Request) ([]dataapi.Row, error)
	Add(ctx context.Context, request dataapi.Request) (dataapi.Response, error)
}

// Store implements booking.Store on the branch tables behind the data API.
type Store struct {
	client Client
}

// New returns a Store backed by client.
func New(client Client) *Store {
	return &Store{client: client}
}

func (store *Store) get(ctx context.Context, subject string, request dataapi.Request) ([]dataapi.Row, error) {
	rows, err := store.client.Get(ctx, request)
	if err != nil {
		return nil, wrapStoreError(subject, errorCodeGet, err)
	}
	return rows, nil
}

func (store *Store) BusinessHours(ctx context.Context, branch booking.BranchID, date booking.Date) (booking.ScheduleWindow, error) {
	rows, err := store.get(ctx, tableSchedule, dataapi.Request{
		Table: tableSchedule,
		Where: []dataapi.Condition{
			dataapi.Eq("ts_date", date.String()),
			dataapi.Eq(dataapi.BranchField, branch.String()),
		},
		Limit: 1,
	})
	if err != nil {
		return booking.ScheduleWindow{}, err
	}
	if len(rows) == 0 {
		return booking.ScheduleWindow{}, wrapStoreError(tableSchedule, errorCodeGet, booking.ErrScheduleNotFound)
	}
	row := rows[0]
	window := booking.ScheduleWindow{
		Date:      date,
		IsHoliday: strings.EqualFold(row.String("is_holiday"), scheduleClosed),
	}
	if window.IsHoliday {
		return window, nil
	}
	if window.BusinessStart, err = parseMinutes(row, "business_start"); err != nil {
		return booking.ScheduleWindow{}, wrapStoreError(tableSchedule, errorCodeInvalid, err)
	}
	if window.BusinessEnd, err = parseMinutes(row, "business_end"); err != nil {
		return booking.ScheduleWindow{}, wrapStoreError(tableSchedule, errorCodeInvalid, err)
	}
	return window, nil
}

func (store *Store) WorkingHours(ctx context.Context, branch booking.BranchID, instructor booking.ResourceID, date booking.Date) (booking.WorkingHours, bool, error) {
	rows, err := store.get(ctx, tableInstructorHours, dataapi.Request{
		Table: tableInstructorHours,
		Where: []dataapi.Condition{
			dataapi.Eq(dataapi.BranchField, branch.String()),
			dataapi.Eq("pro_id", instructor.String()),
			dataapi.Eq("schedule_date", date.String()),
		},
		Limit: 1,
	})
	if err != nil {
		return booking.WorkingHours{}, false, err
	}
	if len(rows) == 0 {
		return booking.WorkingHours{}, false, nil
	}
	row := rows[0]
	hours := booking.WorkingHours{DayOff: isDayOff(row.String("is_day_off"))}
	if hours.DayOff {
		return hours, true, nil
	}
	if hours.Start, err = parseMinutes(row, "work_start"); err != nil {
		return booking.WorkingHours{}, false, wrapStoreError(tableInstructorHours, errorCodeInvalid, err)
	}
	if hours.End, err = parseMinutes(row, "work_end"); err != nil {
		return booking.WorkingHours{}, false, wrapStoreError(tableInstructorHours, errorCodeInvalid, err)
	}
	return hours, true, nil
}

func (store *Store) ResourceProfile(ctx context.Context, branch booking.BranchID, kind booking.ResourceKind, resource booking.ResourceID) (booking.ResourceProfile, error) {
	profiles, err := store.profiles(ctx, branch, kind, resource)
	if err != nil {
		return booking.ResourceProfile{}, err
	}
	if len(profiles) == 0 {
		return booking.ResourceProfile{}, wrapStoreError(resourceTable(kind), errorCodeGet,
			fmt.Errorf("%w: %s %s", booking.ErrResourceNotFound, kind, resource))
	}
	return profiles[0], nil
}

func (store *Store) ResourceProfiles(ctx context.Context, branch booking.BranchID, kind booking.ResourceKind) ([]booking.ResourceProfile, error) {
	return store.profiles(ctx, branch, kind, booking.ResourceID{})
}

func (store *Store) profiles(ctx context.Context, branch booking.BranchID, kind booking.ResourceKind, resource booking.ResourceID) ([]booking.ResourceProfile, error) {
	table := resourceTable(kind)
	idField := resourceIDField(kind)
	where := []dataapi.Condition{dataapi.Eq(dataapi.BranchField, branch.String())}
	if !resource.IsZero() {
		where = append(where, dataapi.Eq(idField, resource.String()))
	}
	rows, err := store.get(ctx, table, dataapi.Request{
		Table:   table,
		Where:   where,
		OrderBy: []dataapi.Order{dataapi.Asc(idField)},
	})
	if err != nil {
		return nil, err
	}
	profiles := make([]booking.ResourceProfile, 0, len(rows))
	for _, row := range rows {
		var profile booking.ResourceProfile
		if kind == booking.ResourceKindBay {
			profile, err = mapBay(row)
		} else {
			profile, err = mapInstructor(row)
		}
		if err != nil {
			return nil, wrapStoreError(table, errorCodeInvalid, err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func (store *Store) BookedIntervals(ctx context.Context, branch booking.BranchID, kind booking.ResourceKind, resource booking.ResourceID, date booking.Date) ([]booking.BookedInterval, error) {
	if kind == booking.ResourceKindInstructor {
		return store.lessonIntervals(ctx, branch, resource, date)
	}
	where := []dataapi.Condition{
		dataapi.Eq(dataapi.BranchField, branch.String()),
		dataapi.Eq("ts_date", date.String()),
		{Field: "ts_status", Operator: "<>", Value: statusCancelled},
	}
	if !resource.IsZero() {
		where = append(where, dataapi.Eq("ts_id", resource.String()))
	}
	rows, err := store.get(ctx, tableBayBookings, dataapi.Request{
		Table:   tableBayBookings,
		Fields:  []string{"ts_id", "reservation_id", "ts_start", "ts_end", "ts_status"},
		Where:   where,
		OrderBy: []dataapi.Order{dataapi.Asc("ts_start")},
	})
	if err != nil {
		return nil, err
	}
	return mapIntervals(rows, tableBayBookings, "ts_id", "reservation_id", "ts_start", "ts_end", "ts_status")
}

func (store *Store) lessonIntervals(ctx context.Context, branch booking.BranchID, instructor booking.ResourceID, date booking.Date) ([]booking.BookedInterval, error) {
	where := []dataapi.Condition{
		dataapi.Eq(dataapi.BranchField, branch.String()),
		dataapi.Eq("LS_date", date.String()),
		{Field: "LS_status", Operator: "<>", Value: statusCancelled},
	}
	if !instructor.IsZero() {
		where = append(where, dataapi.Eq("pro_id", instructor.String()))
	}
	rows, err := store.get(ctx, tableLessons, dataapi.Request{
		Table:   tableLessons,
		Where:   where,
		OrderBy: []dataapi.Order{dataapi.Asc("LS_start_time")},
	})
	if err != nil {
		return nil, err
	}
	return mapIntervals(rows, tableLessons, "pro_id", "LS_id", "LS_start_time", "LS_end_time", "LS_status")
}

func (store *Store) MemberType(ctx context.Context, branch booking.BranchID, member booking.MemberID) (string, error) {
	rows, err := store.get(ctx, tableMembers, dataapi.Request{
		Table:  tableMembers,
		Fields: []string{"member_id", "member_type"},
		Where: []dataapi.Condition{
			dataapi.Eq(dataapi.BranchField, branch.String()),
			dataapi.Eq("member_id", member.String()),
		},
		Limit: 1,
	})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", wrapStoreError(tableMembers, errorCodeGet, fmt.Errorf("%w: %s", booking.ErrMemberNotFound, member))
	}
	return rows[0].String("member_type"), nil
}

// LedgerEntries reads every ledger table and keeps the newest row per contract.
func (store *Store) LedgerEntries(ctx context.Context, branch booking.BranchID, member booking.MemberID) ([]booking.LedgerEntry, error) {
	var entries []booking.LedgerEntry
	for _, table := range ledgerTables {
		rows, err := store.get(ctx, table.name, dataapi.Request{
			Table: table.name,
			Where: []dataapi.Condition{
				dataapi.Eq(dataapi.BranchField, branch.String()),
				dataapi.Eq("member_id", member.String()),
			},
			OrderBy: []dataapi.Order{dataapi.Asc(table.contractField), dataapi.Desc(table.idField)},
		})
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(rows))
		for _, row := range rows {
			contract := row.String(table.contractField)
			if _, ok := seen[contract]; ok {
				continue
			}
			seen[contract] = struct{}{}
			entry, err := mapLedgerEntry(table, row)
			if err != nil {
				return nil, wrapStoreError(table.name, errorCodeInvalid, err)
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (store *Store) LedgerEntry(ctx context.Context, branch booking.BranchID, member booking.MemberID, contract booking.ContractID, scope booking.LedgerScope) (booking.LedgerEntry, error) {
	table, ok := ledgerTableFor(scope)
	if !ok {
		return booking.LedgerEntry{}, fmt.Errorf("%w: no %s ledger for %s", booking.ErrContractNotFound, scope.Unit, scope.Kind)
	}
	rows, err := store.get(ctx, table.name, dataapi.Request{
		Table: table.name,
		Where: []dataapi.Condition{
			dataapi.Eq(dataapi.BranchField, branch.String()),
			dataapi.Eq("member_id", member.String()),
			dataapi.Eq(table.contractField, contract.String()),
		},
		OrderBy: []dataapi.Order{dataapi.Desc(table.idField)},
		Limit:   1,
	})
	if err != nil {
		return booking.LedgerEntry{}, err
	}
	if len(rows) == 0 {
		return booking.LedgerEntry{}, wrapStoreError(table.name, errorCodeGet, fmt.Errorf("%w: %s", booking.ErrContractNotFound, contract))
	}
	entry, err := mapLedgerEntry(table, rows[0])
	if err != nil {
		return booking.LedgerEntry{}, wrapStoreError(table.name, errorCodeInvalid, err)
	}
	if !entry.Matches(scope) {
		return booking.LedgerEntry{}, wrapStoreError(table.name, errorCodeGet, fmt.Errorf("%w: %s is bound to %s", booking.ErrContractNotFound, contract, entry.Resource))
	}
	return entry, nil
}

func (store *Store) PricingPolicies(ctx context.Context, branch booking.BranchID, dayKey string) ([]booking.PricingPolicy, error) {
	dayOfWeek, ok := dayOfWeekByKey[dayKey]
	if !ok {
		return nil, fmt.Errorf("%w: day key %q", booking.ErrPricingPolicyNotFound, dayKey)
	}
	rows, err := store.get(ctx, tablePricingPolicies, dataapi.Request{
		Table:  tablePricingPolicies,
		Fields: []string{"policy_start_time", "policy_end_time", "policy_apply"},
		Where: []dataapi.Condition{
			dataapi.Eq(dataapi.BranchField, branch.String()),
			dataapi.Eq("day_of_week", dayOfWeek),
		},
	})
	if err != nil {
		return nil, err
	}
	policies := make([]booking.PricingPolicy, 0, len(rows))
	for _, row := range rows {
		start, err := parseMinutes(row, "policy_start_time")
		if err != nil {
			return nil, wrapStoreError(tablePricingPolicies, errorCodeInvalid, err)
		}
		end, err := parseMinutes(row, "policy_end_time")
		if err != nil {
			return nil, wrapStoreError(tablePricingPolicies, errorCodeInvalid, err)
		}
		policies = append(policies, booking.PricingPolicy{
			DayKey: dayKey,
			Start:  start,
			End:    end,
			Band:   booking.RateBand(row.String("policy_apply")),
		})
	}
	return policies, nil
}

// InsertReservation writes one bay row, or one lesson row per session.
func (store *Store) InsertReservation(ctx context.Context, record booking.ReservationRecord) error {
	if record.Kind == booking.ResourceKindInstructor {
		return store.insertLessons(ctx, record)
	}
	return store.add(ctx, tableBayBookings, bayReservationRow(record))
}

// insertLessons writes one row per session. Only a clash on the first row is an id conflict the
// caller may retry; once a row is stored, later failures report the rows left behind.
func (store *Store) insertLessons(ctx context.Context, record booking.ReservationRecord) error {
	written := make([]string, 0, len(record.Sessions))
	for index, session := range record.Sessions {
		row := lessonReservationRow(record, index, session)
		err := store.add(ctx, tableLessons, row)
		if err == nil {
			written = append(written, fmt.Sprint(row["LS_id"]))
			continue
		}
		if index == 0 {
			return err
		}
		if errors.Is(err, booking.ErrReservationIDConflict) {
			err = wrapStoreError(tableLessons, errorCodeDuplicate, fmt.Errorf("%w: %s", booking.ErrDuplicateReservation, row["LS_id"]))
		}
		return booking.PartialInsertError{ReservationID: record.ReservationID, WrittenIDs: written, Err: err}
	}
	return nil
}

func (store *Store) InsertLedgerDeduction(ctx context.Context, deduction booking.LedgerDeduction) error {
	table, ok := ledgerTableFor(booking.LedgerScope{Kind: deduction.Kind, Unit: deduction.Unit})
	if !ok {
		return fmt.Errorf("%w: no %s ledger for %s", booking.ErrContractNotFound, deduction.Unit, deduction.Kind)
	}
	return store.add(ctx, table.name, deductionRow(table, deduction))
}

func (store *Store) add(ctx context.Context, table string, data map[string]any) error {
	_, err := store.client.Add(ctx, dataapi.Request{Table: table, Data: data})
	if err == nil {
		return nil
	}
	if dataapi.IsDuplicateKey(err) {
		return wrapStoreError(table, errorCodeDuplicate, errors.Join(booking.ErrReservationIDConflict, err))
	}
	return wrapStoreError(table, errorCodeAdd, err)
}

func wrapStoreError(subject string, code string, err error) error {
	return booking.WrapError(errorOperationDataStore, subject, code, err)
}

func resourceTable(kind booking.ResourceKind) string {
	if kind == booking.ResourceKindInstructor {
		return tableInstructors
	}
	return tableBays
}

func resourceIDField(kind booking.ResourceKind) string {
	if kind == booking.ResourceKindInstructor {
		return "pro_id"
	}
	return "ts_id"
}

func isDayOff(raw string) bool {
	_, ok := dayOffMarkers[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

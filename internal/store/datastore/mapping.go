package datastore

import (
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/teetime/internal/dataapi"
	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
)

var rateBands = []booking.RateBand{booking.RateBandBase, booking.RateBandDiscount, booking.RateBandSurcharge}

func parseMinutes(row dataapi.Row, field string) (int, error) {
	raw := row.String(field)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", dataapi.ErrMissingField, field)
	}
	minutes, err := booking.ToMinutes(raw)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", field, err)
	}
	return minutes, nil
}

// parseExpiry treats blank and zero dates as "never expires".
func parseExpiry(raw string) (*booking.Date, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "null") || strings.HasPrefix(trimmed, "0000-00-00") {
		return nil, nil
	}
	if len(trimmed) > len(dateLayout) {
		trimmed = trimmed[:len(dateLayout)]
	}
	date, err := booking.NewDate(trimmed)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func mapBay(row dataapi.Row) (booking.ResourceProfile, error) {
	id, err := booking.NewResourceID(row.String("ts_id"))
	if err != nil {
		return booking.ResourceProfile{}, err
	}
	status := booking.ResourceStatusAvailable
	if row.String("ts_status") == statusBaySuspended {
		status = booking.ResourceStatusSuspended
	}
	rates := make(map[booking.RateBand]int64, len(rateBands))
	for _, band := range rateBands {
		if value, err := row.Int(string(band)); err == nil {
			rates[band] = value
		}
	}
	return booking.ResourceProfile{
		ID:                    id,
		Kind:                  booking.ResourceKindBay,
		Name:                  row.String("ts_name"),
		Status:                status,
		MinDurationMinutes:    int(row.IntOr("ts_min_minimum", 0)),
		MaxDurationMinutes:    int(row.IntOr("ts_min_maximum", 0)),
		GranularityMinutes:    booking.DefaultGranularityMinutes,
		BufferMinutes:         int(row.IntOr("ts_buffer", 0)),
		ProhibitedMemberTypes: booking.ParseMemberTypeList(row.String("member_type_prohibited")),
		HourlyRates:           rates,
	}, nil
}

func mapInstructor(row dataapi.Row) (booking.ResourceProfile, error) {
	id, err := booking.NewResourceID(row.String("pro_id"))
	if err != nil {
		return booking.ResourceProfile{}, err
	}
	return booking.ResourceProfile{
		ID:                 id,
		Kind:               booking.ResourceKindInstructor,
		Name:               row.String("pro_name"),
		Status:             booking.ResourceStatusAvailable,
		MinDurationMinutes: int(row.IntOr("min_service_min", booking.DefaultInstructorMinimum)),
		GranularityMinutes: int(row.IntOr("svc_time_unit", booking.DefaultGranularityMinutes)),
	}, nil
}

func mapIntervals(rows []dataapi.Row, table string, resourceField string, idField string, startField string, endField string, statusField string) ([]booking.BookedInterval, error) {
	intervals := make([]booking.BookedInterval, 0, len(rows))
	for _, row := range rows {
		if row.String(statusField) == statusCancelled {
			continue
		}
		resource, err := booking.NewResourceID(row.String(resourceField))
		if err != nil {
			return nil, wrapStoreError(table, errorCodeInvalid, err)
		}
		start, err := parseMinutes(row, startField)
		if err != nil {
			return nil, wrapStoreError(table, errorCodeInvalid, err)
		}
		end, err := parseMinutes(row, endField)
		if err != nil {
			return nil, wrapStoreError(table, errorCodeInvalid, err)
		}
		intervals = append(intervals, booking.BookedInterval{
			ResourceID:    resource,
			ReservationID: row.String(idField),
			Start:         start,
			End:           booking.NormalizeBusinessEnd(end),
		})
	}
	return intervals, nil
}

func mapLedgerEntry(table ledgerTable, row dataapi.Row) (booking.LedgerEntry, error) {
	contract, err := booking.NewContractID(row.String(table.contractField))
	if err != nil {
		return booking.LedgerEntry{}, err
	}
	balance, err := row.Int(table.balanceField)
	if err != nil {
		return booking.LedgerEntry{}, err
	}
	expiry, err := parseExpiry(row.String(table.expiryField))
	if err != nil {
		return booking.LedgerEntry{}, err
	}
	entry := booking.LedgerEntry{
		ContractID: contract,
		Balance:    balance,
		Unit:       table.unit,
		Kind:       table.kind,
		ExpiryDate: expiry,
	}
	if table.resourceField != "" {
		if resource, err := booking.NewResourceID(row.String(table.resourceField)); err == nil {
			entry.Resource = resource
		}
	}
	return entry, nil
}

func clock(minutes int) string {
	if minutes >= booking.MinutesPerDay {
		return "24:00:00"
	}
	return booking.ToTimeString(minutes) + ":00"
}

func bayReservationRow(record booking.ReservationRecord) map[string]any {
	return map[string]any{
		dataapi.BranchField:   record.Branch.String(),
		"reservation_id":      record.ReservationID.String(),
		"member_id":           record.Member.String(),
		"member_name":         record.MemberName,
		"member_phone":        record.MemberPhone,
		"ts_id":               record.ResourceID.String(),
		"ts_date":             record.Date.String(),
		"ts_start":            clock(record.Start),
		"ts_end":              clock(record.End),
		"ts_type":             defaultBookingType,
		"ts_payment_method":   string(record.PaymentMethod),
		"ts_status":           statusPaid,
		"contract_history_id": record.Contract.String(),
		"total_amt":           record.TotalAmount,
		"total_discount":      record.DiscountAmount,
		"net_amt":             record.NetAmount,
		"created_at":          record.CreatedAt.Format(timestampLayout),
	}
}

func lessonReservationRow(record booking.ReservationRecord, index int, session booking.Interval) map[string]any {
	lessonID := record.ReservationID.String()
	if len(record.Sessions) > 1 {
		lessonID = fmt.Sprintf("%s_%d", lessonID, index+1)
	}
	return map[string]any{
		dataapi.BranchField: record.Branch.String(),
		"LS_id":             lessonID,
		"reservation_id":    record.ReservationID.String(),
		"member_id":         record.Member.String(),
		"member_name":       record.MemberName,
		"member_phone":      record.MemberPhone,
		"pro_id":            record.ResourceID.String(),
		"LS_date":           record.Date.String(),
		"LS_start_time":     clock(session.Start),
		"LS_end_time":       clock(session.End),
		"LS_status":         statusPaid,
		"LS_contract_id":    record.Contract.String(),
		"LS_payment_method": string(record.PaymentMethod),
		"created_at":        record.CreatedAt.Format(timestampLayout),
	}
}

func deductionRow(table ledgerTable, deduction booking.LedgerDeduction) map[string]any {
	expiry := ""
	if deduction.ExpiryDate != nil {
		expiry = deduction.ExpiryDate.String()
	}
	timestamp := deduction.CreatedAt.Format(timestampLayout)
	row := map[string]any{
		dataapi.BranchField: deduction.Branch.String(),
		"member_id":         deduction.Member.String(),
		table.contractField: deduction.Contract.String(),
		"reservation_id":    deduction.ReservationID.String(),
		table.expiryField:   expiry,
	}
	switch table.name {
	case tableCreditLedger:
		row["bill_date"] = deduction.Date.String()
		row["bill_type"] = defaultBillType
		row["bill_text"] = deduction.ReservationID.String()
		row["bill_totalamt"] = -deduction.Amount
		row["bill_deduction"] = 0
		row["bill_netamt"] = -deduction.Amount
		row["bill_timestamp"] = timestamp
		row["bill_balance_before"] = deduction.BalanceBefore
		row["bill_balance_after"] = deduction.BalanceAfter
		row["bill_status"] = statusPaid
	case tableTimePassLedger:
		row["bill_date"] = deduction.Date.String()
		row["bill_type"] = defaultBillType
		row["bill_text"] = deduction.ReservationID.String()
		row["bill_total_min"] = deduction.Amount
		row["bill_discount_min"] = 0
		row["bill_min"] = deduction.Amount
		row["bill_timestamp"] = timestamp
		row["bill_balance_min_before"] = deduction.BalanceBefore
		row["bill_balance_min_after"] = deduction.BalanceAfter
		row["bill_status"] = statusPaid
	default:
		row["LS_date"] = deduction.Date.String()
		row["LS_type"] = defaultLessonBillType
		row["LS_counting_min"] = deduction.Amount
		row["LS_balance_min_before"] = deduction.BalanceBefore
		row["LS_balance_min_after"] = deduction.BalanceAfter
		row["LS_timestamp"] = timestamp
	}
	return row
}

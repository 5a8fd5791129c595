package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
	gosqlite "github.com/glebarez/go-sqlite"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultMetadataJSON     = "{}"
	pgUniqueViolationCode   = "23505"
	sqliteConstraintCode    = 19
	mysqlDuplicateEntryCode = 1062
	reservationCancelled    = "cancelled"
	reservationConfirmed    = "confirmed"
	errorOperationStore     = "store"
	errorSubjectSchedule    = "schedule"
	errorSubjectResource    = "resource"
	errorSubjectHours       = "working_hours"
	errorSubjectReservation = "reservation"
	errorSubjectSlot        = "slot"
	errorSubjectMember      = "member"
	errorSubjectLedger      = "ledger"
	errorSubjectPricing     = "pricing"
	errorCodeGet            = "get"
	errorCodeList           = "list"
	errorCodeInsert         = "insert"
	errorCodeDuplicate      = "duplicate"
	errorCodeInvalid        = "invalid"
	errorCodeDeduct         = "deduct"
)

// Store implements booking.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (store *Store) BusinessHours(ctx context.Context, branch booking.BranchID, date booking.Date) (booking.ScheduleWindow, error) {
	var model BusinessHours
	err := store.db.WithContext(ctx).
		Where("branch_id = ? AND date = ?", branch.String(), date.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.ScheduleWindow{}, wrapStoreError(errorSubjectSchedule, errorCodeGet, booking.ErrScheduleNotFound)
		}
		return booking.ScheduleWindow{}, wrapStoreError(errorSubjectSchedule, errorCodeGet, unavailable(err))
	}
	return booking.ScheduleWindow{
		Date:          date,
		BusinessStart: model.StartMinute,
		BusinessEnd:   model.EndMinute,
		IsHoliday:     model.IsHoliday,
	}, nil
}

func (store *Store) WorkingHours(ctx context.Context, branch booking.BranchID, instructor booking.ResourceID, date booking.Date) (booking.WorkingHours, bool, error) {
	var model WorkingHours
	err := store.db.WithContext(ctx).
		Where("branch_id = ? AND resource_id = ? AND date = ?", branch.String(), instructor.String(), date.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.WorkingHours{}, false, nil
		}
		return booking.WorkingHours{}, false, wrapStoreError(errorSubjectHours, errorCodeGet, unavailable(err))
	}
	return booking.WorkingHours{Start: model.StartMinute, End: model.EndMinute, DayOff: model.DayOff}, true, nil
}

func (store *Store) ResourceProfile(ctx context.Context, branch booking.BranchID, kind booking.ResourceKind, resource booking.ResourceID) (booking.ResourceProfile, error) {
	var model Resource
	err := store.db.WithContext(ctx).
		Where("branch_id = ? AND kind = ? AND resource_id = ?", branch.String(), kind.String(), resource.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.ResourceProfile{}, wrapStoreError(errorSubjectResource, errorCodeGet,
				fmt.Errorf("%w: %s %s", booking.ErrResourceNotFound, kind, resource))
		}
		return booking.ResourceProfile{}, wrapStoreError(errorSubjectResource, errorCodeGet, unavailable(err))
	}
	profile, err := mapResource(model)
	if err != nil {
		return booking.ResourceProfile{}, wrapStoreError(errorSubjectResource, errorCodeInvalid, err)
	}
	return profile, nil
}

func (store *Store) ResourceProfiles(ctx context.Context, branch booking.BranchID, kind booking.ResourceKind) ([]booking.ResourceProfile, error) {
	var rows []Resource
	err := store.db.WithContext(ctx).
		Where("branch_id = ? AND kind = ?", branch.String(), kind.String()).
		Order("resource_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectResource, errorCodeList, unavailable(err))
	}
	profiles := make([]booking.ResourceProfile, 0, len(rows))
	for _, row := range rows {
		profile, err := mapResource(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectResource, errorCodeInvalid, err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// BookedIntervals returns the occupied slots of live reservations.
func (store *Store) BookedIntervals(ctx context.Context, branch booking.BranchID, kind booking.ResourceKind, resource booking.ResourceID, date booking.Date) ([]booking.BookedInterval, error) {
	query := store.db.WithContext(ctx).
		Model(&ReservationSlot{}).
		Joins("JOIN reservations ON reservations.branch_id = reservation_slots.branch_id AND reservations.reservation_id = reservation_slots.reservation_id").
		Where("reservation_slots.branch_id = ? AND reservation_slots.kind = ? AND reservation_slots.date = ?", branch.String(), kind.String(), date.String()).
		Where("reservations.status <> ?", reservationCancelled)
	if !resource.IsZero() {
		query = query.Where("reservation_slots.resource_id = ?", resource.String())
	}
	var slots []ReservationSlot
	if err := query.Order("reservation_slots.start_minute ASC").Find(&slots).Error; err != nil {
		return nil, wrapStoreError(errorSubjectSlot, errorCodeList, unavailable(err))
	}
	intervals := make([]booking.BookedInterval, 0, len(slots))
	for _, slot := range slots {
		resourceID, err := booking.NewResourceID(slot.ResourceID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectSlot, errorCodeInvalid, err)
		}
		intervals = append(intervals, booking.BookedInterval{
			ResourceID:    resourceID,
			ReservationID: slot.ReservationID,
			Start:         slot.StartMinute,
			End:           slot.EndMinute,
		})
	}
	return intervals, nil
}

func (store *Store) MemberType(ctx context.Context, branch booking.BranchID, member booking.MemberID) (string, error) {
	var model Member
	err := store.db.WithContext(ctx).
		Where("branch_id = ? AND member_id = ?", branch.String(), member.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", wrapStoreError(errorSubjectMember, errorCodeGet, fmt.Errorf("%w: %s", booking.ErrMemberNotFound, member))
		}
		return "", wrapStoreError(errorSubjectMember, errorCodeGet, unavailable(err))
	}
	return model.MemberType, nil
}

func (store *Store) LedgerEntries(ctx context.Context, branch booking.BranchID, member booking.MemberID) ([]booking.LedgerEntry, error) {
	var rows []LedgerBalance
	err := store.db.WithContext(ctx).
		Where("branch_id = ? AND member_id = ?", branch.String(), member.String()).
		Order("contract_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectLedger, errorCodeList, unavailable(err))
	}
	entries := make([]booking.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := mapLedgerBalance(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectLedger, errorCodeInvalid, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (store *Store) LedgerEntry(ctx context.Context, branch booking.BranchID, member booking.MemberID, contract booking.ContractID, scope booking.LedgerScope) (booking.LedgerEntry, error) {
	var model LedgerBalance
	err := store.db.WithContext(ctx).
		Where("branch_id = ? AND member_id = ? AND contract_id = ?", branch.String(), member.String(), contract.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.LedgerEntry{}, wrapStoreError(errorSubjectLedger, errorCodeGet, fmt.Errorf("%w: %s", booking.ErrContractNotFound, contract))
		}
		return booking.LedgerEntry{}, wrapStoreError(errorSubjectLedger, errorCodeGet, unavailable(err))
	}
	entry, err := mapLedgerBalance(model)
	if err != nil {
		return booking.LedgerEntry{}, wrapStoreError(errorSubjectLedger, errorCodeInvalid, err)
	}
	if !entry.Matches(scope) {
		return booking.LedgerEntry{}, wrapStoreError(errorSubjectLedger, errorCodeGet,
			fmt.Errorf("%w: %s does not cover %s %s", booking.ErrContractNotFound, contract, scope.Kind, scope.Unit))
	}
	return entry, nil
}

func (store *Store) PricingPolicies(ctx context.Context, branch booking.BranchID, dayKey string) ([]booking.PricingPolicy, error) {
	var rows []PricingPolicy
	err := store.db.WithContext(ctx).
		Where("branch_id = ? AND day_key = ?", branch.String(), dayKey).
		Order("position ASC").
		Order("policy_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectPricing, errorCodeList, unavailable(err))
	}
	policies := make([]booking.PricingPolicy, 0, len(rows))
	for _, row := range rows {
		policies = append(policies, booking.PricingPolicy{
			DayKey: row.DayKey,
			Start:  row.StartMinute,
			End:    row.EndMinute,
			Band:   booking.RateBand(row.Band),
		})
	}
	return policies, nil
}

// InsertReservation writes the reservation and its slots in one transaction.
func (store *Store) InsertReservation(ctx context.Context, record booking.ReservationRecord) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := Reservation{
		BranchID:       record.Branch.String(),
		ReservationID:  record.ReservationID.String(),
		Kind:           record.Kind.String(),
		ResourceID:     record.ResourceID.String(),
		Date:           record.Date.String(),
		StartMinute:    record.Start,
		EndMinute:      record.End,
		MemberID:       record.Member.String(),
		MemberName:     record.MemberName,
		MemberPhone:    record.MemberPhone,
		PaymentMethod:  string(record.PaymentMethod),
		ContractID:     record.Contract.String(),
		TotalAmount:    record.TotalAmount,
		DiscountAmount: record.DiscountAmount,
		NetAmount:      record.NetAmount,
		ChargedAmount:  record.ChargedAmount,
		Status:         reservationConfirmed,
		CreatedAt:      createdAt,
	}
	sessions := record.Sessions
	if len(sessions) == 0 {
		sessions = []booking.Interval{{Start: record.Start, End: record.End}}
	}
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Create(&model).Error; err != nil {
			if isUniqueViolation(err) {
				return wrapStoreError(errorSubjectReservation, errorCodeDuplicate, booking.ErrReservationIDConflict)
			}
			return wrapStoreError(errorSubjectReservation, errorCodeInsert, unavailable(err))
		}
		for _, session := range sessions {
			slot := ReservationSlot{
				BranchID:      model.BranchID,
				Kind:          model.Kind,
				ResourceID:    model.ResourceID,
				Date:          model.Date,
				StartMinute:   session.Start,
				EndMinute:     session.End,
				ReservationID: model.ReservationID,
			}
			if err := transaction.Create(&slot).Error; err != nil {
				if isUniqueViolation(err) {
					return wrapStoreError(errorSubjectSlot, errorCodeDuplicate,
						fmt.Errorf("%w: %s at %s", booking.ErrDuplicateReservation, model.ResourceID, booking.ToTimeString(session.Start)))
				}
				return wrapStoreError(errorSubjectSlot, errorCodeInsert, unavailable(err))
			}
		}
		return nil
	})
}

// InsertLedgerDeduction moves the balance from BalanceBefore to BalanceAfter and records the movement.
// A balance that no longer equals BalanceBefore is rejected.
func (store *Store) InsertLedgerDeduction(ctx context.Context, deduction booking.LedgerDeduction) error {
	metadata, err := json.Marshal(map[string]string{
		"reservation_id": deduction.ReservationID.String(),
		"kind":           deduction.Kind.String(),
		"unit":           string(deduction.Unit),
	})
	if err != nil {
		return wrapStoreError(errorSubjectLedger, errorCodeInvalid, err)
	}
	createdAt := deduction.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	movement := LedgerMovement{
		BranchID:      deduction.Branch.String(),
		MemberID:      deduction.Member.String(),
		ContractID:    deduction.Contract.String(),
		ReservationID: deduction.ReservationID.String(),
		Kind:          deduction.Kind.String(),
		Unit:          string(deduction.Unit),
		Amount:        deduction.Amount,
		BalanceBefore: deduction.BalanceBefore,
		BalanceAfter:  deduction.BalanceAfter,
		ExpiryDate:    dateString(deduction.ExpiryDate),
		Date:          deduction.Date.String(),
		Metadata:      datatypesJSON(string(metadata)),
		CreatedAt:     createdAt,
	}
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		result := transaction.Model(&LedgerBalance{}).
			Where("branch_id = ? AND member_id = ? AND contract_id = ? AND balance = ?",
				movement.BranchID, movement.MemberID, movement.ContractID, deduction.BalanceBefore).
			Updates(map[string]any{"balance": deduction.BalanceAfter, "updated_at": createdAt})
		if result.Error != nil {
			return wrapStoreError(errorSubjectLedger, errorCodeDeduct, unavailable(result.Error))
		}
		if result.RowsAffected == 0 {
			return wrapStoreError(errorSubjectLedger, errorCodeDeduct,
				fmt.Errorf("%w: contract %s no longer holds %d", booking.ErrInsufficientBalance, movement.ContractID, deduction.BalanceBefore))
		}
		if err := transaction.Create(&movement).Error; err != nil {
			return wrapStoreError(errorSubjectLedger, errorCodeInsert, unavailable(err))
		}
		return nil
	})
}

func wrapStoreError(subject string, code string, err error) error {
	return booking.WrapError(errorOperationStore, subject, code, err)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", booking.ErrUpstreamUnavailable, err)
}

func mapResource(model Resource) (booking.ResourceProfile, error) {
	kind, err := booking.ParseResourceKind(model.Kind)
	if err != nil {
		return booking.ResourceProfile{}, err
	}
	id, err := booking.NewResourceID(model.ResourceID)
	if err != nil {
		return booking.ResourceProfile{}, err
	}
	rates := make(map[booking.RateBand]int64, 3)
	if model.BasePrice != nil {
		rates[booking.RateBandBase] = *model.BasePrice
	}
	if model.DiscountPrice != nil {
		rates[booking.RateBandDiscount] = *model.DiscountPrice
	}
	if model.SurchargePrice != nil {
		rates[booking.RateBandSurcharge] = *model.SurchargePrice
	}
	return booking.ResourceProfile{
		ID:                    id,
		Kind:                  kind,
		Name:                  model.Name,
		Status:                booking.ResourceStatus(model.Status),
		MinDurationMinutes:    model.MinDurationMinutes,
		MaxDurationMinutes:    model.MaxDurationMinutes,
		GranularityMinutes:    model.GranularityMinutes,
		BufferMinutes:         model.BufferMinutes,
		ProhibitedMemberTypes: booking.ParseMemberTypeList(model.ProhibitedMemberTypes),
		HourlyRates:           rates,
	}, nil
}

func mapLedgerBalance(model LedgerBalance) (booking.LedgerEntry, error) {
	contract, err := booking.NewContractID(model.ContractID)
	if err != nil {
		return booking.LedgerEntry{}, err
	}
	kind, err := booking.ParseResourceKind(model.Kind)
	if err != nil {
		return booking.LedgerEntry{}, err
	}
	entry := booking.LedgerEntry{
		ContractID: contract,
		Balance:    model.Balance,
		Unit:       booking.LedgerUnit(model.Unit),
		Kind:       kind,
	}
	if model.ResourceID != "" {
		if entry.Resource, err = booking.NewResourceID(model.ResourceID); err != nil {
			return booking.LedgerEntry{}, err
		}
	}
	if model.ExpiryDate != nil && *model.ExpiryDate != "" {
		expiry, err := booking.NewDate(*model.ExpiryDate)
		if err != nil {
			return booking.LedgerEntry{}, err
		}
		entry.ExpiryDate = &expiry
	}
	return entry, nil
}

func dateString(date *booking.Date) *string {
	if date == nil || date.IsZero() {
		return nil
	}
	value := date.String()
	return &value
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntryCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

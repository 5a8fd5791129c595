package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BusinessHours mirrors the business_hours table.
type BusinessHours struct {
	BranchID    string `gorm:"primaryKey;size:64"`
	Date        string `gorm:"primaryKey;type:varchar(10)"`
	StartMinute int    `gorm:"not null"`
	EndMinute   int    `gorm:"not null"`
	IsHoliday   bool   `gorm:"not null;default:false"`
}

func (BusinessHours) TableName() string { return "business_hours" }

// Resource mirrors the resources table. Bays and instructors share it, tagged by Kind.
type Resource struct {
	BranchID              string `gorm:"primaryKey;size:64"`
	Kind                  string `gorm:"primaryKey;type:varchar(16)"`
	ResourceID            string `gorm:"primaryKey;size:64"`
	Name                  string
	Status                string `gorm:"not null;default:available"`
	MinDurationMinutes    int
	MaxDurationMinutes    int
	GranularityMinutes    int
	BufferMinutes         int
	ProhibitedMemberTypes string
	BasePrice             *int64
	DiscountPrice         *int64
	SurchargePrice        *int64
}

func (Resource) TableName() string { return "resources" }

// WorkingHours mirrors the instructor_hours table.
type WorkingHours struct {
	BranchID    string `gorm:"primaryKey;size:64"`
	ResourceID  string `gorm:"primaryKey;size:64"`
	Date        string `gorm:"primaryKey;type:varchar(10)"`
	StartMinute int
	EndMinute   int
	DayOff      bool `gorm:"not null;default:false"`
}

func (WorkingHours) TableName() string { return "instructor_hours" }

// Member mirrors the members table.
type Member struct {
	BranchID   string `gorm:"primaryKey;size:64"`
	MemberID   string `gorm:"primaryKey;size:64"`
	MemberType string
}

func (Member) TableName() string { return "members" }

// Reservation mirrors the reservations table.
type Reservation struct {
	BranchID       string `gorm:"primaryKey;size:64"`
	ReservationID  string `gorm:"primaryKey;size:64"`
	Kind           string `gorm:"not null;type:varchar(16)"`
	ResourceID     string `gorm:"not null;size:64"`
	Date           string `gorm:"not null;type:varchar(10)"`
	StartMinute    int    `gorm:"not null"`
	EndMinute      int    `gorm:"not null"`
	MemberID       string `gorm:"not null;size:64;index"`
	MemberName     string
	MemberPhone    string
	PaymentMethod  string `gorm:"not null"`
	ContractID     string
	TotalAmount    int64
	DiscountAmount int64
	NetAmount      int64
	ChargedAmount  int64
	Status         string    `gorm:"not null;default:confirmed"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (Reservation) TableName() string { return "reservations" }

// ReservationSlot holds one occupied session. The unique index rejects a second booking of the same start.
type ReservationSlot struct {
	SlotID        string `gorm:"type:varchar(36);primaryKey"`
	BranchID      string `gorm:"not null;size:64;index:idx_slots_resource_date_start,unique,priority:1"`
	Kind          string `gorm:"not null;type:varchar(16);index:idx_slots_resource_date_start,unique,priority:2"`
	ResourceID    string `gorm:"not null;size:64;index:idx_slots_resource_date_start,unique,priority:3"`
	Date          string `gorm:"not null;type:varchar(10);index:idx_slots_resource_date_start,unique,priority:4"`
	StartMinute   int    `gorm:"not null;index:idx_slots_resource_date_start,unique,priority:5"`
	EndMinute     int    `gorm:"not null"`
	ReservationID string `gorm:"not null;size:64;index"`
}

func (ReservationSlot) TableName() string { return "reservation_slots" }

func (slot *ReservationSlot) BeforeCreate(tx *gorm.DB) error {
	if slot.SlotID == "" {
		slot.SlotID = uuid.NewString()
	}
	return nil
}

// LedgerBalance is the running balance of one contract.
type LedgerBalance struct {
	BranchID   string `gorm:"primaryKey;size:64"`
	MemberID   string `gorm:"primaryKey;size:64"`
	ContractID string `gorm:"primaryKey;size:64"`
	Kind       string `gorm:"not null;type:varchar(16)"`
	Unit       string `gorm:"not null;type:varchar(16)"`
	ResourceID string
	Balance    int64   `gorm:"not null"`
	ExpiryDate *string `gorm:"type:varchar(10)"`
	UpdatedAt  time.Time
}

func (LedgerBalance) TableName() string { return "ledger_balances" }

// LedgerMovement is the audit row of one deduction.
type LedgerMovement struct {
	MovementID    string         `gorm:"type:varchar(36);primaryKey"`
	BranchID      string         `gorm:"not null;size:64;index:idx_movements_contract,priority:1"`
	MemberID      string         `gorm:"not null;size:64;index:idx_movements_contract,priority:2"`
	ContractID    string         `gorm:"not null;size:64;index:idx_movements_contract,priority:3"`
	ReservationID string         `gorm:"not null;size:64;index"`
	Kind          string         `gorm:"not null;type:varchar(16)"`
	Unit          string         `gorm:"not null;type:varchar(16)"`
	Amount        int64          `gorm:"not null"`
	BalanceBefore int64          `gorm:"not null"`
	BalanceAfter  int64          `gorm:"not null"`
	ExpiryDate    *string        `gorm:"type:varchar(10)"`
	Date          string         `gorm:"not null;type:varchar(10)"`
	Metadata      datatypes.JSON `gorm:"not null"`
	CreatedAt     time.Time      `gorm:"not null"`
}

func (LedgerMovement) TableName() string { return "ledger_movements" }

func (movement *LedgerMovement) BeforeCreate(tx *gorm.DB) error {
	if movement.MovementID == "" {
		movement.MovementID = uuid.NewString()
	}
	return nil
}

// PricingPolicy mirrors the pricing_policies table. Position keeps the configured order.
type PricingPolicy struct {
	PolicyID    uint   `gorm:"primaryKey;autoIncrement"`
	BranchID    string `gorm:"not null;size:64;index:idx_policies_day,priority:1"`
	DayKey      string `gorm:"not null;type:varchar(16);index:idx_policies_day,priority:2"`
	Position    int    `gorm:"not null;index:idx_policies_day,priority:3"`
	StartMinute int    `gorm:"not null"`
	EndMinute   int    `gorm:"not null"`
	Band        string `gorm:"not null"`
}

func (PricingPolicy) TableName() string { return "pricing_policies" }

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&BusinessHours{},
		&Resource{},
		&WorkingHours{},
		&Member{},
		&Reservation{},
		&ReservationSlot{},
		&LedgerBalance{},
		&LedgerMovement{},
		&PricingPolicy{},
	}
}

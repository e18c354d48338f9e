package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/labfunds-backend/pkg/enums"
)

// LedgerEntry records one posted income or expense fact for a laboratory.
// Amount is always positive; Kind decides the sign when computing balances.
type LedgerEntry struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LaboratoryID       uuid.UUID             `gorm:"column:laboratory_id;type:uuid;not null" json:"laboratory_id"`
	Kind               enums.LedgerEntryKind `gorm:"column:kind;type:ledger_entry_kind;not null" json:"kind"`
	Amount             decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Description        string                `gorm:"column:description;not null" json:"description"`
	Category           enums.LedgerCategory  `gorm:"column:category;not null" json:"category"`
	PostedAt           time.Time             `gorm:"column:posted_at;not null" json:"posted_at"`
	CreatedBy          string                `gorm:"column:created_by;not null" json:"created_by"`
	SalaryAssignmentID *uuid.UUID            `gorm:"column:salary_assignment_id;type:uuid" json:"salary_assignment_id,omitempty"`
	SalaryPeriod       string                `gorm:"column:salary_period" json:"salary_period,omitempty"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Signed returns the amount with the sign implied by the entry kind.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Kind == enums.LedgerEntryKindExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}

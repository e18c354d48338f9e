package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/labfunds-backend/pkg/enums"
)

// ExpenseRequest is a reimbursement submission awaiting or past review.
type ExpenseRequest struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LaboratoryID  uuid.UUID                  `gorm:"column:laboratory_id;type:uuid;not null" json:"laboratory_id"`
	RequesterID   string                     `gorm:"column:requester_id;not null" json:"requester_id"`
	RequesterName string                     `gorm:"column:requester_name;not null" json:"requester_name"`
	Amount        decimal.Decimal            `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	InvoiceNumber string                     `gorm:"column:invoice_number" json:"invoice_number"`
	Category      string                     `gorm:"column:category;not null" json:"category"`
	Description   string                     `gorm:"column:description" json:"description"`
	Purpose       string                     `gorm:"column:purpose" json:"purpose"`
	Status        enums.ExpenseRequestStatus `gorm:"column:status;type:expense_request_status;not null" json:"status"`
	RequestedAt   time.Time                  `gorm:"column:requested_at;not null" json:"requested_at"`
	ReviewedAt    *time.Time                 `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ReviewerID    *string                    `gorm:"column:reviewer_id" json:"reviewer_id,omitempty"`
	ReviewNotes   *string                    `gorm:"column:review_notes" json:"review_notes,omitempty"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Attachments are hydrated on demand and never written with the row.
	Attachments []ExpenseAttachment `gorm:"-" json:"attachments"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// ExpenseAttachment is file metadata bound to one expense request.
type ExpenseAttachment struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ExpenseRequestID uuid.UUID `gorm:"column:expense_request_id;type:uuid;not null" json:"expense_request_id"`
	FileName         string    `gorm:"column:file_name;not null" json:"file_name"`
	ContentType      string    `gorm:"column:content_type;not null" json:"content_type"`
	SizeBytes        int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	StoragePath      string    `gorm:"column:storage_path;not null" json:"-"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

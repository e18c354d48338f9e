package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/labfunds-backend/pkg/enums"
)

// SalaryAssignment is the current monthly pay level for one person in one laboratory.
type SalaryAssignment struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LaboratoryID  uuid.UUID          `gorm:"column:laboratory_id;type:uuid;not null;uniqueIndex:salary_assignments_person_lab_key" json:"laboratory_id"`
	PersonID      string             `gorm:"column:person_id;not null;uniqueIndex:salary_assignments_person_lab_key" json:"person_id"`
	PersonName    string             `gorm:"column:person_name;not null" json:"person_name"`
	Amount        decimal.Decimal    `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	EffectiveDate time.Time          `gorm:"column:effective_date;not null" json:"effective_date"`
	PaymentDate   time.Time          `gorm:"column:payment_date;not null" json:"payment_date"`
	Status        enums.SalaryStatus `gorm:"column:status;type:salary_status;not null" json:"status"`
	CreatedBy     string             `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

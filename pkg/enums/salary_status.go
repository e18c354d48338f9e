package enums

import "fmt"

// SalaryStatus maps to the salary_status enum in Postgres.
type SalaryStatus string

const (
	SalaryStatusPending SalaryStatus = "pending"
	SalaryStatusPaid    SalaryStatus = "paid"
)

var validSalaryStatuses = []SalaryStatus{
	SalaryStatusPending,
	SalaryStatusPaid,
}

// IsValid reports whether the value matches the canonical salary status enum.
func (s SalaryStatus) IsValid() bool {
	for _, candidate := range validSalaryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSalaryStatus converts raw input into SalaryStatus.
func ParseSalaryStatus(value string) (SalaryStatus, error) {
	for _, candidate := range validSalaryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid salary status %q", value)
}

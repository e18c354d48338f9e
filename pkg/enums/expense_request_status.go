package enums

import "fmt"

// ExpenseRequestStatus maps to the expense_request_status enum in Postgres.
type ExpenseRequestStatus string

const (
	ExpenseRequestStatusPending  ExpenseRequestStatus = "pending"
	ExpenseRequestStatusApproved ExpenseRequestStatus = "approved"
	ExpenseRequestStatusRejected ExpenseRequestStatus = "rejected"
)

var validExpenseRequestStatuses = []ExpenseRequestStatus{
	ExpenseRequestStatusPending,
	ExpenseRequestStatusApproved,
	ExpenseRequestStatusRejected,
}

// String implements fmt.Stringer.
func (s ExpenseRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical expense request status enum.
func (s ExpenseRequestStatus) IsValid() bool {
	for _, candidate := range validExpenseRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s ExpenseRequestStatus) IsTerminal() bool {
	return s == ExpenseRequestStatusApproved || s == ExpenseRequestStatusRejected
}

// ParseExpenseRequestStatus converts raw input into ExpenseRequestStatus.
func ParseExpenseRequestStatus(value string) (ExpenseRequestStatus, error) {
	for _, candidate := range validExpenseRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid expense request status %q", value)
}

package enums

import "strings"

// LedgerCategory tags a ledger entry. Categories are open-ended free text;
// the constants below are the ones produced by the finance workflows.
type LedgerCategory string

const (
	LedgerCategorySalary               LedgerCategory = "salary"
	LedgerCategorySalaryAdjustment     LedgerCategory = "salary_adjustment"
	LedgerCategoryExpenseReimbursement LedgerCategory = "expense_reimbursement"
	LedgerCategoryGeneral              LedgerCategory = "general"
)

// String implements fmt.Stringer.
func (c LedgerCategory) String() string {
	return string(c)
}

// IsSalaryRelated reports whether the category belongs to salary postings.
func (c LedgerCategory) IsSalaryRelated() bool {
	return c == LedgerCategorySalary || c == LedgerCategorySalaryAdjustment
}

// NormalizeLedgerCategory trims and lowercases raw input, defaulting to general.
func NormalizeLedgerCategory(value string) LedgerCategory {
	clean := strings.ToLower(strings.TrimSpace(value))
	if clean == "" {
		return LedgerCategoryGeneral
	}
	return LedgerCategory(clean)
}

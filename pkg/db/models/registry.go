package models

// Finance lists the tables owned by the finance core, in dependency order.
func Finance() []any {
	return []any{
		&User{},
		&Laboratory{},
		&LaboratoryMember{},
		&LedgerEntry{},
		&SalaryAssignment{},
		&ExpenseRequest{},
		&ExpenseAttachment{},
		&Notification{},
	}
}

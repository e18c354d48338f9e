package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestFromStoreClassifiesSQLState(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"pgx unique", &pgconn.PgError{Code: "23505", ConstraintName: "ledger_entries_pkey"}, CodeConflict},
		{"pgx foreign key", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), CodeConflict},
		{"pq numeric overflow", &pq.Error{Code: "22003", Column: "amount"}, CodeValidation},
		{"pgx check", &pgconn.PgError{Code: "23514", ConstraintName: "amount_positive"}, CodeValidation},
		{"pq serialization", &pq.Error{Code: "40001"}, CodeDependency},
		{"plain", stdErrors.New("connection reset"), CodeDependency},
	}
	for _, tc := range cases {
		got := FromStore(tc.err, "create ledger entry")
		if got.Code() != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got.Code())
		}
		if !stdErrors.Is(got, tc.err) {
			t.Fatalf("%s: cause not preserved", tc.name)
		}
	}
}

func TestFromStoreValidationCarriesField(t *testing.T) {
	got := FromStore(&pq.Error{Code: "22003", Column: "amount"}, "create ledger entry")
	details, ok := got.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", got.Details())
	}
	if details["field"] != "amount" || details["sqlstate"] != "22003" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestFromStorePassesTypedErrorsThrough(t *testing.T) {
	typed := New(CodeNotFound, "ledger entry not found")
	if FromStore(typed, "update ledger entry") != typed {
		t.Fatalf("typed error should pass through")
	}
	if FromStore(nil, "noop") != nil {
		t.Fatalf("nil error should stay nil")
	}
}

func TestDiagnoseCollectsChainAndPostgres(t *testing.T) {
	err := Wrap(CodeDependency, fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01", TableName: "salary_assignments"}), "update salary status")
	d := Diagnose(err)
	if d.Code != CodeDependency || !d.Retryable {
		t.Fatalf("unexpected classification %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected chain of 3, got %v", d.Chain)
	}
	if d.Postgres == nil || d.Postgres.SQLState != "40P01" {
		t.Fatalf("postgres detail missing: %+v", d.Postgres)
	}

	fields := d.Fields()
	if fields["pg_sqlstate"] != "40P01" || fields["pg_table"] != "salary_assignments" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty postgres fields should be omitted")
	}
	if fields["error_code"] != string(CodeDependency) {
		t.Fatalf("unexpected error_code %v", fields["error_code"])
	}

	if Diagnose(nil).Message != "" {
		t.Fatalf("expected empty diagnostics for nil")
	}
	plain := Diagnose(stdErrors.New("plain")).Fields()
	if _, ok := plain["error_code"]; ok {
		t.Fatalf("untyped errors carry no code")
	}
}

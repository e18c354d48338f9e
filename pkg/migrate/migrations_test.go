package migrate

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, Validate())
}

func TestFinanceMigrationContainsConstraints(t *testing.T) {
	matches, err := fs.Glob(embedded, DefaultDir+"/*_create_finance_tables.sql")
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	data, err := fs.ReadFile(embedded, matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS ledger_entries",
		"CONSTRAINT ledger_entries_amount_positive CHECK (amount > 0)",
		"CONSTRAINT salary_assignments_person_lab_key UNIQUE (person_id, laboratory_id)",
		"REFERENCES expense_requests(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS ledger_entries",
	} {
		require.Truef(t, strings.Contains(content, sub), "missing expected statement %q", sub)
	}
}

func TestValidateFSRejectsBadNames(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/001_bad.sql": &fstest.MapFile{Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	require.Error(t, ValidateFS(fsys, "migrations"))
}

func TestValidateFSRequiresDownSection(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/20260101000000_only_up.sql": &fstest.MapFile{Data: []byte("-- +goose Up\nSELECT 1;\n")},
	}
	require.Error(t, ValidateFS(fsys, "migrations"))
}

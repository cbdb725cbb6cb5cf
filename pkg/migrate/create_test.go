package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pinClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestCreateSQLMigrationRefusesToOverwrite(t *testing.T) {
	pinClock(t, time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "add partner rating")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260401080000_add_partner_rating.sql"), path)

	_, err = CreateSQLMigration(dir, "add partner rating")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestValidateFileRejectsUnbalancedBlocks(t *testing.T) {
	cases := map[string]string{
		"nested":       "-- +goose Up\n-- +goose StatementBegin\n-- +goose StatementBegin\n-- +goose Down\n",
		"unterminated": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"reversed":     "-- +goose Down\nSELECT 1;\n-- +goose Up\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "20260401080000_broken.sql")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			assert.Error(t, validateFile(path))
		})
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	ok := "-- +goose Up\n-- +goose Down\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sql"), []byte(ok), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260401080000_a.sql"), []byte(ok), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260401080000_b.sql"), []byte(ok), 0o644))

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid migration filename"))
	assert.True(t, strings.Contains(err.Error(), "duplicate migration version"))
}

func TestParseVersionRejectsMalformedVersion(t *testing.T) {
	for _, v := range []string{"", "2026", "2026040108000x"} {
		_, err := parseVersion(v)
		assert.Error(t, err, v)
	}
	got, err := parseVersion("20260401080000")
	require.NoError(t, err)
	assert.Equal(t, int64(20260401080000), got)
}

func TestMigratorGuards(t *testing.T) {
	_, err := New(nil, "migrations", nil)
	assert.ErrorContains(t, err, "db is required")

	err = (&Migrator{}).Run(context.Background(), "sideways")
	assert.ErrorContains(t, err, "unknown migrate command")
}

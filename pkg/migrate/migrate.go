package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir holds the Postgres SQL migrations. SQLite dev databases are built
// with AutoMigrate instead.
const DefaultDir = "pkg/migrate/migrations"

// Migrator applies the goose migrations of one directory to a Postgres database.
type Migrator struct {
	provider *goose.Provider
	out      io.Writer
}

// New validates dir and binds a goose provider to it. Progress lines go to
// out; nil discards them.
func New(db *sql.DB, dir string, out io.Writer) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if err := ValidateDir(dir); err != nil {
		return nil, fmt.Errorf("validate migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	if out == nil {
		out = io.Discard
	}
	return &Migrator{provider: provider, out: out}, nil
}

// Run executes one of up, down or status.
func (m *Migrator) Run(ctx context.Context, command string) error {
	switch command {
	case "up":
		results, err := m.provider.Up(ctx)
		m.report(results...)
		return wrapGoose(command, err)
	case "down":
		result, err := m.provider.Down(ctx)
		if result != nil {
			m.report(result)
		}
		return wrapGoose(command, err)
	case "status":
		statuses, err := m.provider.Status(ctx)
		if err != nil {
			return wrapGoose(command, err)
		}
		for _, st := range statuses {
			applied := "-"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(m.out, "%-8s %-20s %s\n", st.State, applied, st.Source.Path)
		}
		return nil
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

// MigrateTo moves the schema up or down until it sits at version, given as
// YYYYMMDDHHMMSS.
func (m *Migrator) MigrateTo(ctx context.Context, version string) error {
	target, err := parseVersion(version)
	if err != nil {
		return err
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil
	case current < target:
		results, err = m.provider.UpTo(ctx, target)
	default:
		results, err = m.provider.DownTo(ctx, target)
	}
	m.report(results...)
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

func (m *Migrator) report(results ...*goose.MigrationResult) {
	for _, res := range results {
		state := "OK"
		if res.Error != nil {
			state = "FAIL"
		}
		fmt.Fprintf(m.out, "%-4s %-4s %s (%s)\n", state, res.Direction, filepath.Base(res.Source.Path), res.Duration.Round(time.Millisecond))
	}
}

func parseVersion(version string) (int64, error) {
	if len(version) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", version)
	}
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}
	return target, nil
}

func wrapGoose(command string, err error) error {
	if err == nil || errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}

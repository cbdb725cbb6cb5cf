package migrate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks every .sql file in dir: the filename must carry a unique
// 14-digit version, the Up section must precede Down, and goose statement
// blocks must be balanced. All problems are reported together.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var errs error
	versions := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := versions[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name))
		}
		versions[m[1]] = name

		errs = multierr.Append(errs, validateFile(filepath.Join(dir, name)))
	}
	return errs
}

func validateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	var upLine, downLine, open int
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		switch strings.TrimSpace(scanner.Text()) {
		case "-- +goose Up":
			upLine = line
		case "-- +goose Down":
			downLine = line
		case "-- +goose StatementBegin":
			open++
			if open > 1 {
				return fmt.Errorf("migration %q line %d: nested StatementBegin", name, line)
			}
		case "-- +goose StatementEnd":
			open--
			if open < 0 {
				return fmt.Errorf("migration %q line %d: StatementEnd without StatementBegin", name, line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}

	switch {
	case upLine == 0:
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	case downLine == 0:
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	case downLine < upLine:
		return fmt.Errorf("migration %q has Down before Up", name)
	case open != 0:
		return fmt.Errorf("migration %q has an unterminated StatementBegin", name)
	}
	return nil
}

package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"mysql-schema-ops/internal/errors"
)

// migrationFilePattern matches "<version>_<name>.sql", e.g. "1.00_users.sql"
// or "2.10_add_index.sql". The version part must parse as a float.
var migrationFilePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)_(.+)\.sql$`)

// LoadDir declares one step per SQL file found in dir. File names carry the
// version: "<version>_<name>.sql". Each step's program executes the file's
// statements in order through the injected Execer.
//
// Loading reads file contents eagerly so a malformed file fails here rather
// than mid-upgrade. Files that do not match the naming pattern are skipped.
func LoadDir(registry *Registry, dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, errors.NewAppError(errors.ErrorTypeConfiguration,
			fmt.Sprintf("migrations directory %s is not accessible", dir), err)
	}
	if !info.IsDir() {
		return 0, errors.NewAppError(errors.ErrorTypeConfiguration,
			fmt.Sprintf("%s is not a directory", dir), nil)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.WrapError(err, "failed to read migrations directory")
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}

		version, err := strconv.ParseFloat(matches[1], 64)
		if err != nil {
			return loaded, errors.NewAppError(errors.ErrorTypeValidation,
				fmt.Sprintf("migration file %s has a malformed version", entry.Name()), err)
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return loaded, errors.WrapError(err, fmt.Sprintf("failed to read migration file %s", entry.Name()))
		}

		statements := SplitStatements(string(content))
		if len(statements) == 0 {
			return loaded, errors.NewAppError(errors.ErrorTypeValidation,
				fmt.Sprintf("migration file %s contains no statements", entry.Name()), nil)
		}

		registry.Declare(version, fileProgram(statements))
		loaded++
	}

	return loaded, nil
}

// fileProgram turns a list of statements into a Program executing them in order
func fileProgram(statements []string) Program {
	return func(ctx context.Context, exec Execer) error {
		for _, stmt := range statements {
			if err := exec.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// SplitStatements splits a SQL script on semicolons at line ends, dropping
// comments and blank fragments. It does not parse string literals; scripts
// embedding ";" inside a literal at a line end must be declared
// programmatically instead.
func SplitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			stmt = strings.TrimSuffix(stmt, ";")
			stmt = strings.TrimSpace(stmt)
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	if leftover := strings.TrimSpace(current.String()); leftover != "" {
		statements = append(statements, leftover)
	}

	return statements
}

package migration

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Execer is the capability injected into every migration program. Statements
// are executed verbatim against the live connection owned by the orchestrator.
type Execer interface {
	Exec(ctx context.Context, stmt string, args ...interface{}) error
}

// Program is an upgrade program bound to a declared version. Programs run
// strictly sequentially; a program may assume every lower declared version
// has already been applied.
type Program func(ctx context.Context, exec Execer) error

// Step is a declared migration step. Versions carry two fractional digits;
// Declare rounds them on entry.
type Step struct {
	Version float64
	Upgrade Program
}

// VersionRecord is one row of the tracking table: a successfully applied
// version and when it was recorded. Rows are never mutated or deleted.
type VersionRecord struct {
	Version   float64
	AppliedAt time.Time
}

// RoundVersion normalizes a version to two fractional digits
func RoundVersion(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatVersion renders a version the way the tracking table stores it
func FormatVersion(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// MigrationErrorType represents different types of migration errors
type MigrationErrorType string

const (
	ErrorTypeInvalidVersion     MigrationErrorType = "INVALID_VERSION"
	ErrorTypeDuplicateVersion   MigrationErrorType = "DUPLICATE_VERSION"
	ErrorTypeNoVersionsDeclared MigrationErrorType = "NO_VERSIONS_DECLARED"
	ErrorTypeUnknownVersion     MigrationErrorType = "UNKNOWN_VERSION"
	ErrorTypeStepFailed         MigrationErrorType = "STEP_FAILED"
)

// MigrationError represents errors raised by the orchestrator before or
// during step execution
type MigrationError struct {
	Type    MigrationErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *MigrationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *MigrationError) Unwrap() error {
	return e.Cause
}

// NewMigrationError creates a new MigrationError
func NewMigrationError(errorType MigrationErrorType, message string, cause error) *MigrationError {
	return &MigrationError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

func NewInvalidVersionError(version float64) *MigrationError {
	return NewMigrationError(ErrorTypeInvalidVersion,
		fmt.Sprintf("declared version %s must be greater than zero", FormatVersion(version)), nil)
}

func NewDuplicateVersionError(version float64) *MigrationError {
	return NewMigrationError(ErrorTypeDuplicateVersion,
		fmt.Sprintf("version %s is declared more than once", FormatVersion(version)), nil)
}

func NewNoVersionsDeclaredError() *MigrationError {
	return NewMigrationError(ErrorTypeNoVersionsDeclared, "no migration versions declared", nil)
}

func NewUnknownVersionError(version float64) *MigrationError {
	return NewMigrationError(ErrorTypeUnknownVersion,
		fmt.Sprintf("target version %s does not match any declared version", FormatVersion(version)), nil)
}

func NewStepFailedError(version float64, cause error) *MigrationError {
	return NewMigrationError(ErrorTypeStepFailed,
		fmt.Sprintf("migration step %s failed", FormatVersion(version)), cause)
}

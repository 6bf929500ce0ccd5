package backup

import (
	"fmt"
)

// BackupError represents errors that occur during backup and restore operations
type BackupError struct {
	Type    BackupErrorType        `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// BackupErrorType represents different types of backup errors
type BackupErrorType string

const (
	BackupErrorTypeConfiguration BackupErrorType = "CONFIGURATION_ERROR"
	BackupErrorTypeValidation    BackupErrorType = "VALIDATION_ERROR"
	BackupErrorTypeProcess       BackupErrorType = "PROCESS_ERROR"
	BackupErrorTypeCompression   BackupErrorType = "COMPRESSION_ERROR"
	BackupErrorTypeStorage       BackupErrorType = "STORAGE_ERROR"
	BackupErrorTypeDatabase      BackupErrorType = "DATABASE_ERROR"
	BackupErrorTypeNotFound      BackupErrorType = "NOT_FOUND_ERROR"
)

// NewBackupError creates a new BackupError
func NewBackupError(errorType BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewConfigurationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeConfiguration, message, cause)
}

func NewValidationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeValidation, message, cause)
}

func NewProcessError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeProcess, message, cause)
}

func NewCompressionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCompression, message, cause)
}

func NewStorageError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeStorage, message, cause)
}

func NewDatabaseError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeDatabase, message, cause)
}

// NewNotADirectoryError reports a backup directory path occupied by a file
func NewNotADirectoryError(path string) *BackupError {
	return NewConfigurationError(fmt.Sprintf("%s exists but is not a directory", path), nil).
		WithContext("path", path)
}

// NewBackupFileRequiredError reports a restore with no resolvable source file
func NewBackupFileRequiredError() *BackupError {
	return NewConfigurationError("no backup file given and no backup found in the backup directory", nil)
}

// NewFileNotFoundError reports a missing restore source file
func NewFileNotFoundError(path string) *BackupError {
	return NewBackupError(BackupErrorTypeNotFound, fmt.Sprintf("backup file %s does not exist", path), nil).
		WithContext("path", path)
}

// NewNotAFileError reports a restore source path that is not a regular file
func NewNotAFileError(path string) *BackupError {
	return NewValidationError(fmt.Sprintf("%s is not a file", path), nil).
		WithContext("path", path)
}

// NewNotABackupFileError reports a restore source whose leading bytes do not
// match the configured tag
func NewNotABackupFileError(path string) *BackupError {
	return NewValidationError(fmt.Sprintf("%s is not a backup file", path), nil).
		WithContext("path", path)
}

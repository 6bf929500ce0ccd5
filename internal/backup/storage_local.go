package backup

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStorageProvider implements StorageProvider for local file system
// storage, typically a mounted backup volume.
type LocalStorageProvider struct {
	basePath    string
	permissions os.FileMode
}

// NewLocalStorageProvider creates a new LocalStorageProvider instance
func NewLocalStorageProvider(config *LocalConfig) (*LocalStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("local storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	provider := &LocalStorageProvider{
		basePath:    config.BasePath,
		permissions: config.Permissions,
	}

	if err := os.MkdirAll(config.BasePath, config.Permissions); err != nil {
		return nil, NewStorageError("failed to create storage base directory", err)
	}

	return provider, nil
}

// Store copies the artifact into the base directory
func (lsp *LocalStorageProvider) Store(ctx context.Context, localPath string, name string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return NewStorageError("failed to open backup file", err)
	}
	defer src.Close()

	return copyToFile(src, lsp.artifactPath(name), lsp.permissions)
}

// Retrieve copies the named artifact out of the base directory
func (lsp *LocalStorageProvider) Retrieve(ctx context.Context, name string, localPath string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}

	src, err := os.Open(lsp.artifactPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return NewBackupError(BackupErrorTypeNotFound, "backup "+name+" not found in storage", err)
		}
		return NewStorageError("failed to open stored backup", err)
	}
	defer src.Close()

	return copyToFile(src, localPath, lsp.permissions)
}

// List returns the stored artifact names in ascending lexicographic order
func (lsp *LocalStorageProvider) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(lsp.basePath)
	if err != nil {
		return nil, NewStorageError("failed to read storage directory", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), BackupExtension) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the named artifact
func (lsp *LocalStorageProvider) Delete(ctx context.Context, name string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}
	if err := os.Remove(lsp.artifactPath(name)); err != nil {
		if os.IsNotExist(err) {
			return NewBackupError(BackupErrorTypeNotFound, "backup "+name+" not found in storage", err)
		}
		return NewStorageError("failed to delete stored backup", err)
	}
	return nil
}

// HealthCheck verifies the base directory exists and is writable
func (lsp *LocalStorageProvider) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(lsp.basePath)
	if err != nil {
		return NewStorageError("storage base directory is not accessible", err)
	}
	if !info.IsDir() {
		return NewNotADirectoryError(lsp.basePath)
	}

	probe, err := os.CreateTemp(lsp.basePath, ".health-*")
	if err != nil {
		return NewStorageError("storage base directory is not writable", err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

func (lsp *LocalStorageProvider) artifactPath(name string) string {
	return filepath.Join(lsp.basePath, filepath.Base(name))
}

func copyToFile(src io.Reader, path string, permissions os.FileMode) error {
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, permissions)
	if err != nil {
		return NewStorageError("failed to create destination file", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return NewStorageError("failed to copy backup data", err)
	}
	if err := dst.Close(); err != nil {
		return NewStorageError("failed to finalize destination file", err)
	}
	return nil
}

package backup

import (
	"context"
	"fmt"
)

// StorageProvider stores framed backup artifacts in a remote or local
// backend. Names are the bare backup filenames produced by the pipeline;
// providers decide their own key layout.
type StorageProvider interface {
	// Store uploads the file at localPath under the given name
	Store(ctx context.Context, localPath string, name string) error

	// Retrieve downloads the named artifact to localPath
	Retrieve(ctx context.Context, name string, localPath string) error

	// List returns the stored artifact names, newest last under
	// lexicographic order
	List(ctx context.Context) ([]string, error)

	// Delete removes the named artifact
	Delete(ctx context.Context, name string) error

	// HealthCheck verifies the backend is reachable and writable enough
	// to accept uploads
	HealthCheck(ctx context.Context) error
}

// NewStorageProvider creates the provider selected by the configuration
func NewStorageProvider(ctx context.Context, config StorageConfig) (StorageProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Provider {
	case StorageProviderLocal:
		return NewLocalStorageProvider(config.Local)
	case StorageProviderS3:
		return NewS3StorageProvider(config.S3)
	case StorageProviderGCS:
		return NewGCSStorageProvider(ctx, config.GCS)
	case StorageProviderAzure:
		return NewAzureStorageProvider(config.Azure)
	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported storage provider: %s", config.Provider), nil)
	}
}

// SupportedProviders lists the provider types NewStorageProvider accepts
func SupportedProviders() []StorageProviderType {
	return []StorageProviderType{
		StorageProviderLocal,
		StorageProviderS3,
		StorageProviderGCS,
		StorageProviderAzure,
	}
}

package backup

import (
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorageProvider implements StorageProvider for Google Cloud Storage
type GCSStorageProvider struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewGCSStorageProvider creates a new GCSStorageProvider instance
func NewGCSStorageProvider(ctx context.Context, config *GCSConfig) (*GCSStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("GCS storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var client *storage.Client
	var err error
	if config.CredentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, NewStorageError("failed to create GCS client", err)
	}

	return &GCSStorageProvider{
		client:     client,
		bucketName: config.Bucket,
		prefix:     "backups/",
	}, nil
}

// Store uploads the artifact to Google Cloud Storage
func (gcsp *GCSStorageProvider) Store(ctx context.Context, localPath string, name string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return NewStorageError("failed to open backup file", err)
	}
	defer src.Close()

	object := gcsp.client.Bucket(gcsp.bucketName).Object(gcsp.objectName(name))
	writer := object.NewWriter(ctx)
	writer.ContentType = "application/octet-stream"

	if _, err := io.Copy(writer, src); err != nil {
		writer.Close()
		return NewStorageError("failed to upload backup to GCS", err)
	}
	if err := writer.Close(); err != nil {
		return NewStorageError("failed to finalize GCS upload", err)
	}
	return nil
}

// Retrieve downloads the named artifact from Google Cloud Storage
func (gcsp *GCSStorageProvider) Retrieve(ctx context.Context, name string, localPath string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}

	object := gcsp.client.Bucket(gcsp.bucketName).Object(gcsp.objectName(name))
	reader, err := object.NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return NewBackupError(BackupErrorTypeNotFound, "backup "+name+" not found in storage", err)
		}
		return NewStorageError("failed to download backup from GCS", err)
	}
	defer reader.Close()

	return copyToFile(reader, localPath, 0644)
}

// List returns the stored artifact names
func (gcsp *GCSStorageProvider) List(ctx context.Context) ([]string, error) {
	it := gcsp.client.Bucket(gcsp.bucketName).Objects(ctx, &storage.Query{Prefix: gcsp.prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, NewStorageError("failed to list backups in GCS", err)
		}
		name := strings.TrimPrefix(attrs.Name, gcsp.prefix)
		if strings.HasSuffix(name, BackupExtension) {
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}

// Delete removes the named artifact from Google Cloud Storage
func (gcsp *GCSStorageProvider) Delete(ctx context.Context, name string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}

	object := gcsp.client.Bucket(gcsp.bucketName).Object(gcsp.objectName(name))
	if err := object.Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return NewBackupError(BackupErrorTypeNotFound, "backup "+name+" not found in storage", err)
		}
		return NewStorageError("failed to delete backup from GCS", err)
	}
	return nil
}

// HealthCheck verifies the bucket is reachable
func (gcsp *GCSStorageProvider) HealthCheck(ctx context.Context) error {
	if _, err := gcsp.client.Bucket(gcsp.bucketName).Attrs(ctx); err != nil {
		return NewStorageError("GCS bucket is not accessible", err)
	}
	return nil
}

func (gcsp *GCSStorageProvider) objectName(name string) string {
	return gcsp.prefix + path.Base(name)
}

package backup

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureStorageProvider implements StorageProvider for Azure Blob Storage
type AzureStorageProvider struct {
	serviceURL    azblob.ServiceURL
	containerName string
	prefix        string
}

// NewAzureStorageProvider creates a new AzureStorageProvider instance
func NewAzureStorageProvider(config *AzureConfig) (*AzureStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("Azure storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewStorageError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewStorageError("failed to parse Azure service URL", err)
	}

	return &AzureStorageProvider{
		serviceURL:    azblob.NewServiceURL(*serviceURL, pipeline),
		containerName: config.ContainerName,
		prefix:        "backups/",
	}, nil
}

// Store uploads the artifact to Azure Blob Storage
func (azp *AzureStorageProvider) Store(ctx context.Context, localPath string, name string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return NewStorageError("failed to open backup file", err)
	}
	defer src.Close()

	blobURL := azp.blobURL(name)
	_, err = azblob.UploadFileToBlockBlob(ctx, src, blobURL, azblob.UploadToBlockBlobOptions{
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{ContentType: "application/octet-stream"},
	})
	if err != nil {
		return NewStorageError("failed to upload backup to Azure", err)
	}
	return nil
}

// Retrieve downloads the named artifact from Azure Blob Storage
func (azp *AzureStorageProvider) Retrieve(ctx context.Context, name string, localPath string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}

	response, err := azp.blobURL(name).Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return NewStorageError("failed to download backup from Azure", err)
	}

	body := response.Body(azblob.RetryReaderOptions{})
	defer body.Close()

	return copyToFile(body, localPath, 0644)
}

// List returns the stored artifact names
func (azp *AzureStorageProvider) List(ctx context.Context) ([]string, error) {
	containerURL := azp.serviceURL.NewContainerURL(azp.containerName)

	var names []string
	for marker := (azblob.Marker{}); marker.NotDone(); {
		listing, err := containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: azp.prefix,
		})
		if err != nil {
			return nil, NewStorageError("failed to list backups in Azure", err)
		}

		for _, blob := range listing.Segment.BlobItems {
			name := strings.TrimPrefix(blob.Name, azp.prefix)
			if strings.HasSuffix(name, BackupExtension) {
				names = append(names, name)
			}
		}
		marker = listing.NextMarker
	}

	sort.Strings(names)
	return names, nil
}

// Delete removes the named artifact from Azure Blob Storage
func (azp *AzureStorageProvider) Delete(ctx context.Context, name string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}

	_, err := azp.blobURL(name).Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
	if err != nil {
		return NewStorageError("failed to delete backup from Azure", err)
	}
	return nil
}

// HealthCheck verifies the container is reachable
func (azp *AzureStorageProvider) HealthCheck(ctx context.Context) error {
	containerURL := azp.serviceURL.NewContainerURL(azp.containerName)
	if _, err := containerURL.GetProperties(ctx, azblob.LeaseAccessConditions{}); err != nil {
		return NewStorageError("Azure container is not accessible", err)
	}
	return nil
}

func (azp *AzureStorageProvider) blobURL(name string) azblob.BlockBlobURL {
	containerURL := azp.serviceURL.NewContainerURL(azp.containerName)
	return containerURL.NewBlockBlobURL(azp.prefix + path.Base(name))
}

package backup

import (
	"context"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3StorageProvider implements StorageProvider for Amazon S3 storage
type S3StorageProvider struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3StorageProvider creates a new S3StorageProvider instance
func NewS3StorageProvider(config *S3Config) (*S3StorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("S3 storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	awsConfig := &aws.Config{Region: aws.String(config.Region)}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}

	return &S3StorageProvider{
		client: s3.New(sess),
		bucket: config.Bucket,
		prefix: "backups/",
	}, nil
}

// Store uploads the artifact to S3
func (s3p *S3StorageProvider) Store(ctx context.Context, localPath string, name string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return NewStorageError("failed to open backup file", err)
	}
	defer src.Close()

	_, err = s3p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s3p.bucket),
		Key:         aws.String(s3p.objectKey(name)),
		Body:        src,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return NewStorageError("failed to upload backup to S3", err)
	}
	return nil
}

// Retrieve downloads the named artifact from S3
func (s3p *S3StorageProvider) Retrieve(ctx context.Context, name string, localPath string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}

	result, err := s3p.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3p.bucket),
		Key:    aws.String(s3p.objectKey(name)),
	})
	if err != nil {
		return NewStorageError("failed to download backup from S3", err)
	}
	defer result.Body.Close()

	return copyToFile(result.Body, localPath, 0644)
}

// List returns the stored artifact names
func (s3p *S3StorageProvider) List(ctx context.Context) ([]string, error) {
	var names []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s3p.bucket),
		Prefix: aws.String(s3p.prefix),
	}

	err := s3p.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, object := range page.Contents {
				name := strings.TrimPrefix(aws.StringValue(object.Key), s3p.prefix)
				if strings.HasSuffix(name, BackupExtension) {
					names = append(names, name)
				}
			}
			return true
		})
	if err != nil {
		return nil, NewStorageError("failed to list backups in S3", err)
	}

	sort.Strings(names)
	return names, nil
}

// Delete removes the named artifact from S3
func (s3p *S3StorageProvider) Delete(ctx context.Context, name string) error {
	if name == "" {
		return NewValidationError("artifact name cannot be empty", nil)
	}

	_, err := s3p.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s3p.bucket),
		Key:    aws.String(s3p.objectKey(name)),
	})
	if err != nil {
		return NewStorageError("failed to delete backup from S3", err)
	}
	return nil
}

// HealthCheck verifies the bucket is reachable
func (s3p *S3StorageProvider) HealthCheck(ctx context.Context) error {
	_, err := s3p.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s3p.bucket),
	})
	if err != nil {
		return NewStorageError("S3 bucket is not accessible", err)
	}
	return nil
}

func (s3p *S3StorageProvider) objectKey(name string) string {
	return s3p.prefix + path.Base(name)
}

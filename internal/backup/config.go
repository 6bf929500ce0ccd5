package backup

import (
	"os"

	"mysql-schema-ops/internal/database"
)

// Config drives one backup or restore run. The cipher password and the
// compression algorithm form the payload contract: a restore must be
// configured exactly as the backup that produced the file was.
type Config struct {
	Database database.Config

	// Dir is where backups are written and where restore looks for the
	// latest file when File is empty.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// File is an explicit restore source path
	File string `mapstructure:"file" yaml:"file"`

	// Password keys the XOR stream cipher; empty disables ciphering
	Password string `mapstructure:"password" yaml:"password"`

	// Compression names the payload codec; empty selects gzip
	Compression CompressionType `mapstructure:"compression" yaml:"compression"`

	// Tag overrides the container prefix; nil selects DefaultTag
	Tag []byte

	// Filename overrides the generated backup filename; nil selects
	// TimestampFilename. Custom generators must sort chronologically.
	Filename FilenameFunc

	// DumpCommand and RestoreCommand name the external executables,
	// defaulting to mysqldump and mysql.
	DumpCommand    string `mapstructure:"dump_command" yaml:"dump_command"`
	RestoreCommand string `mapstructure:"restore_command" yaml:"restore_command"`
}

func (c *Config) tag() []byte {
	if len(c.Tag) > 0 {
		return c.Tag
	}
	return DefaultTag
}

func (c *Config) filename() FilenameFunc {
	if c.Filename != nil {
		return c.Filename
	}
	return TimestampFilename
}

func (c *Config) dumpCommand() string {
	if c.DumpCommand != "" {
		return c.DumpCommand
	}
	return "mysqldump"
}

func (c *Config) restoreCommand() string {
	if c.RestoreCommand != "" {
		return c.RestoreCommand
	}
	return "mysql"
}

// Validate checks the parts every run needs
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return NewConfigurationError("invalid database configuration", err)
	}
	if _, err := NewCodec(c.Compression); err != nil {
		return err
	}
	return nil
}

// StorageProviderType identifies a storage backend
type StorageProviderType string

const (
	StorageProviderLocal StorageProviderType = "local"
	StorageProviderS3    StorageProviderType = "s3"
	StorageProviderGCS   StorageProviderType = "gcs"
	StorageProviderAzure StorageProviderType = "azure"
)

// StorageConfig selects and configures a storage backend for uploaded
// backup artifacts
type StorageConfig struct {
	Provider StorageProviderType `mapstructure:"provider" yaml:"provider"`
	Local    *LocalConfig        `mapstructure:"local" yaml:"local,omitempty"`
	S3       *S3Config           `mapstructure:"s3" yaml:"s3,omitempty"`
	GCS      *GCSConfig          `mapstructure:"gcs" yaml:"gcs,omitempty"`
	Azure    *AzureConfig        `mapstructure:"azure" yaml:"azure,omitempty"`
}

// Validate checks that the selected provider has its configuration block
func (c StorageConfig) Validate() error {
	switch c.Provider {
	case StorageProviderLocal:
		if c.Local == nil {
			return NewValidationError("local storage configuration is required", nil)
		}
		return c.Local.Validate()
	case StorageProviderS3:
		if c.S3 == nil {
			return NewValidationError("S3 storage configuration is required", nil)
		}
		return c.S3.Validate()
	case StorageProviderGCS:
		if c.GCS == nil {
			return NewValidationError("GCS storage configuration is required", nil)
		}
		return c.GCS.Validate()
	case StorageProviderAzure:
		if c.Azure == nil {
			return NewValidationError("Azure storage configuration is required", nil)
		}
		return c.Azure.Validate()
	default:
		return NewValidationError("storage provider must be one of local, s3, gcs, azure", nil)
	}
}

// LocalConfig configures local file system storage
type LocalConfig struct {
	BasePath    string      `mapstructure:"base_path" yaml:"base_path"`
	Permissions os.FileMode `mapstructure:"permissions" yaml:"permissions"`
}

func (c *LocalConfig) Validate() error {
	if c.BasePath == "" {
		return NewValidationError("local storage base path is required", nil)
	}
	if c.Permissions == 0 {
		c.Permissions = 0755
	}
	return nil
}

// S3Config configures Amazon S3 storage
type S3Config struct {
	Region    string `mapstructure:"region" yaml:"region"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

func (c *S3Config) Validate() error {
	if c.Region == "" {
		return NewValidationError("S3 region is required", nil)
	}
	if c.Bucket == "" {
		return NewValidationError("S3 bucket is required", nil)
	}
	return nil
}

// GCSConfig configures Google Cloud Storage
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path"`
}

func (c *GCSConfig) Validate() error {
	if c.Bucket == "" {
		return NewValidationError("GCS bucket is required", nil)
	}
	return nil
}

// AzureConfig configures Azure Blob Storage
type AzureConfig struct {
	AccountName   string `mapstructure:"account_name" yaml:"account_name"`
	AccountKey    string `mapstructure:"account_key" yaml:"account_key"`
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
}

func (c *AzureConfig) Validate() error {
	if c.AccountName == "" {
		return NewValidationError("Azure account name is required", nil)
	}
	if c.AccountKey == "" {
		return NewValidationError("Azure account key is required", nil)
	}
	if c.ContainerName == "" {
		return NewValidationError("Azure container name is required", nil)
	}
	return nil
}

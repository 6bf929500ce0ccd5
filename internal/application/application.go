package application

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"mysql-schema-ops/internal/backup"
	"mysql-schema-ops/internal/database"
	"mysql-schema-ops/internal/logging"
	"mysql-schema-ops/internal/migration"
)

// Config holds the application configuration
type Config struct {
	Database   database.Config      `mapstructure:"database" yaml:"database"`
	Migrations MigrationsConfig     `mapstructure:"migrations" yaml:"migrations"`
	Backup     BackupSettings       `mapstructure:"backup" yaml:"backup"`
	Storage    backup.StorageConfig `mapstructure:"storage" yaml:"storage"`

	Verbose bool          `mapstructure:"verbose" yaml:"verbose"`
	Quiet   bool          `mapstructure:"quiet" yaml:"quiet"`
	LogFile string        `mapstructure:"log_file" yaml:"log_file"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MigrationsConfig locates the declared migration steps
type MigrationsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// BackupSettings holds the backup pipeline configuration
type BackupSettings struct {
	Dir         string                 `mapstructure:"dir" yaml:"dir"`
	File        string                 `mapstructure:"file" yaml:"file"`
	Password    string                 `mapstructure:"password" yaml:"password"`
	Compression backup.CompressionType `mapstructure:"compression" yaml:"compression"`
}

// App wires the top-level operations together. Each operation owns and fully
// closes its own database connection.
type App struct {
	config   Config
	logger   *logging.Logger
	registry *migration.Registry
}

// New creates an application instance from the resolved configuration
func New(config Config) (*App, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	config.Database.SetDefaults()
	if config.Database.Timeout == 0 {
		config.Database.Timeout = config.Timeout
	}

	if err := config.Database.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	logLevel := logging.LogLevelNormal
	if config.Quiet {
		logLevel = logging.LogLevelQuiet
	} else if config.Verbose {
		logLevel = logging.LogLevelVerbose
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:   logLevel,
		LogFile: config.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &App{
		config:   config,
		logger:   logger,
		registry: migration.NewRegistry(),
	}, nil
}

// Logger returns the application logger
func (a *App) Logger() *logging.Logger {
	return a.logger
}

// Registry returns the migration registry for programmatic step declaration
func (a *App) Registry() *migration.Registry {
	return a.registry
}

// Upgrade loads file-based migration steps when a directory is configured,
// then applies every pending step up to target. A nil target means the
// highest declared version.
func (a *App) Upgrade(ctx context.Context, target *float64) (int, error) {
	if a.config.Migrations.Dir != "" {
		loaded, err := migration.LoadDir(a.registry, a.config.Migrations.Dir)
		if err != nil {
			return 0, err
		}
		a.logger.WithFields(map[string]interface{}{
			"dir":    a.config.Migrations.Dir,
			"loaded": loaded,
		}).Debug("Loaded migration files")
	}

	orchestrator := migration.NewOrchestrator(a.registry, a.config.Database, a.logger)
	return orchestrator.Upgrade(ctx, target)
}

// Backup produces a framed backup file and returns its path, empty when the
// database does not exist. With upload set, the finished artifact is also
// pushed to the configured storage provider.
func (a *App) Backup(ctx context.Context, upload bool) (string, error) {
	pipeline := backup.NewPipeline(a.logger)

	path, err := pipeline.Backup(ctx, a.backupConfig())
	if err != nil || path == "" {
		return path, err
	}

	if upload {
		if err := a.uploadArtifact(ctx, path); err != nil {
			return path, err
		}
	}

	return path, nil
}

// Restore drops and recreates the database from a backup file: the
// configured file, the latest in the backup directory, or an artifact pulled
// from the storage provider when fromStorage names one.
func (a *App) Restore(ctx context.Context, fromStorage string) error {
	cfg := a.backupConfig()

	if fromStorage != "" {
		localPath, err := a.downloadArtifact(ctx, fromStorage)
		if err != nil {
			return err
		}
		cfg.File = localPath
	}

	pipeline := backup.NewPipeline(a.logger)
	return pipeline.Restore(ctx, cfg)
}

// ListBackups returns the artifact names held by the configured storage
// provider.
func (a *App) ListBackups(ctx context.Context) ([]string, error) {
	provider, err := backup.NewStorageProvider(ctx, a.config.Storage)
	if err != nil {
		return nil, err
	}
	return provider.List(ctx)
}

func (a *App) backupConfig() backup.Config {
	return backup.Config{
		Database:    a.config.Database,
		Dir:         a.config.Backup.Dir,
		File:        a.config.Backup.File,
		Password:    a.config.Backup.Password,
		Compression: a.config.Backup.Compression,
	}
}

func (a *App) uploadArtifact(ctx context.Context, path string) error {
	provider, err := backup.NewStorageProvider(ctx, a.config.Storage)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	if err := provider.Store(ctx, path, name); err != nil {
		return err
	}

	a.logger.WithFields(map[string]interface{}{
		"artifact": name,
		"provider": string(a.config.Storage.Provider),
	}).Info("Backup uploaded to storage")
	return nil
}

func (a *App) downloadArtifact(ctx context.Context, name string) (string, error) {
	provider, err := backup.NewStorageProvider(ctx, a.config.Storage)
	if err != nil {
		return "", err
	}

	dir := a.config.Backup.Dir
	if dir == "" {
		dir = "."
	}
	localPath := filepath.Join(dir, filepath.Base(name))
	if err := provider.Retrieve(ctx, name, localPath); err != nil {
		return "", err
	}

	a.logger.WithFields(map[string]interface{}{
		"artifact": name,
		"file":     localPath,
	}).Info("Backup downloaded from storage")
	return localPath, nil
}

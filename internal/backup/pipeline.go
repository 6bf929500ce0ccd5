package backup

import (
	"bytes"
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"mysql-schema-ops/internal/database"
	"mysql-schema-ops/internal/logging"
	"mysql-schema-ops/internal/migration"
)

// Connector abstracts connection establishment so the pipeline's database
// pre-checks can be tested against a mock.
type Connector interface {
	Connect(config database.Config) (*sql.DB, error)
	ConnectServer(config database.Config) (*sql.DB, error)
	Close(db *sql.DB) error
}

// Pipeline streams a database dump through the cipher and compression
// transforms into a framed backup file, and back again on restore. Each run
// owns its own database connection and closes it before any subprocess is
// spawned.
type Pipeline struct {
	service   *database.Service
	connector Connector
	logger    *logging.Logger
}

// NewPipeline creates a backup pipeline
func NewPipeline(logger *logging.Logger) *Pipeline {
	service := database.NewServiceWithLogger(logger)
	return &Pipeline{
		service:   service,
		connector: service,
		logger:    logger,
	}
}

// NewPipelineWithConnector creates a pipeline with a custom connector, used
// by tests.
func NewPipelineWithConnector(logger *logging.Logger, connector Connector) *Pipeline {
	return &Pipeline{
		service:   database.NewServiceWithLogger(logger),
		connector: connector,
		logger:    logger,
	}
}

// Backup dumps the configured database into a new framed backup file and
// returns its path. When the database does not exist there is nothing to be
// done: no file is produced and the returned path is empty.
//
// Success is reported only after the destination file is fully flushed and
// closed, not merely when the dump subprocess exits.
func (p *Pipeline) Backup(ctx context.Context, cfg Config) (string, error) {
	log := p.logger.NewOperation("backup")
	startTime := time.Now()

	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if err := ensureDirectory(cfg.Dir); err != nil {
		return "", err
	}

	exists, version, err := p.inspectDatabase(ctx, cfg)
	if err != nil {
		return "", err
	}
	if !exists {
		log.WithField("database", cfg.Database.Database).Info("Database does not exist, nothing to be done")
		return "", nil
	}

	path := filepath.Join(cfg.Dir, cfg.filename()(cfg.Database.Database, version))

	written, err := p.runDump(ctx, cfg, path)
	p.logger.LogBackupPipeline("backup", path, written, time.Since(startTime), err)
	if err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

// Restore drops and recreates the configured database, then feeds a backup
// file through decompression and deciphering into the restore executable.
// The source file is rejected before any destructive action when it is
// missing, not a regular file, or does not start with the configured tag.
func (p *Pipeline) Restore(ctx context.Context, cfg Config) error {
	log := p.logger.NewOperation("restore")
	startTime := time.Now()

	if err := cfg.Validate(); err != nil {
		return err
	}

	path, err := resolveSource(cfg)
	if err != nil {
		return err
	}
	log.WithFields(map[string]interface{}{
		"file":     path,
		"database": cfg.Database.Database,
	}).Info("Restoring backup")

	if err := p.recreateDatabase(ctx, cfg); err != nil {
		return err
	}

	written, err := p.runRestore(ctx, cfg, path)
	p.logger.LogBackupPipeline("restore", path, written, time.Since(startTime), err)
	return err
}

// ensureDirectory creates the backup directory when missing and rejects a
// path occupied by a file
func ensureDirectory(dir string) error {
	if dir == "" {
		return NewConfigurationError("backup directory is required", nil)
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
			return NewStorageError("failed to create backup directory", mkErr)
		}
		return nil
	}
	if err != nil {
		return NewStorageError("failed to inspect backup directory", err)
	}
	if !info.IsDir() {
		return NewNotADirectoryError(dir)
	}
	return nil
}

// resolveSource picks the restore source file and runs every non-destructive
// check against it
func resolveSource(cfg Config) (string, error) {
	path := cfg.File
	if path == "" && cfg.Dir != "" {
		latest, err := SelectLatest(cfg.Dir)
		if err != nil {
			return "", err
		}
		path = latest
	}
	if path == "" {
		return "", NewBackupFileRequiredError()
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", NewFileNotFoundError(path)
	}
	if err != nil {
		return "", NewStorageError("failed to inspect backup file", err)
	}
	if info.IsDir() || !info.Mode().IsRegular() {
		return "", NewNotAFileError(path)
	}

	ok, err := VerifyTag(path, cfg.tag())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", NewNotABackupFileError(path)
	}

	return path, nil
}

// inspectDatabase reports whether the target database exists and, when it
// does, the highest applied schema version for filename generation
func (p *Pipeline) inspectDatabase(ctx context.Context, cfg Config) (bool, string, error) {
	db, err := p.connector.ConnectServer(cfg.Database)
	if err != nil {
		return false, "", err
	}
	defer p.connector.Close(db)

	exists, err := p.service.DatabaseExists(ctx, db, cfg.Database.Database)
	if err != nil {
		return false, "", NewDatabaseError("failed to check database existence", err)
	}
	if !exists {
		return false, "", nil
	}

	version, _, err := p.service.HighestVersion(ctx, db, cfg.Database.Database, migration.TrackingTable)
	if err != nil {
		return false, "", NewDatabaseError("failed to read highest applied version", err)
	}

	return true, version, nil
}

// recreateDatabase drops the target database and creates a fresh empty one.
// The connection is fully closed before returning so the restore executable
// opens its own.
func (p *Pipeline) recreateDatabase(ctx context.Context, cfg Config) error {
	db, err := p.connector.ConnectServer(cfg.Database)
	if err != nil {
		return err
	}
	defer p.connector.Close(db)

	if err := p.service.DropDatabase(ctx, db, cfg.Database.Database); err != nil {
		return NewDatabaseError("failed to drop database", err)
	}
	if err := p.service.CreateDatabase(ctx, db, cfg.Database.Database, cfg.Database.Charset); err != nil {
		return NewDatabaseError("failed to create database", err)
	}
	return nil
}

// runDump spawns the dump executable and streams its stdout through the
// cipher and compression transforms into the destination file. The tag bytes
// hit the file before any payload byte.
func (p *Pipeline) runDump(ctx context.Context, cfg Config, path string) (int64, error) {
	codec, err := NewCodec(cfg.Compression)
	if err != nil {
		return 0, err
	}
	cipher := NewStreamCipher(cfg.Password, cfg.tag())

	cmd := exec.CommandContext(ctx, cfg.dumpCommand(), connectionArgs(cfg.Database)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, NewProcessError("failed to open dump output pipe", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, NewStorageError("failed to create backup file", err)
	}

	if err := WriteTag(out, cfg.tag()); err != nil {
		out.Close()
		return 0, err
	}

	codecWriter, err := codec.NewWriter(out)
	if err != nil {
		out.Close()
		return 0, err
	}

	if err := cmd.Start(); err != nil {
		out.Close()
		return 0, NewProcessError(fmt.Sprintf("failed to start %s", cfg.dumpCommand()), err)
	}

	// io.Copy pulls from the pipe chunk by chunk; a slow destination
	// backpressures the subprocess through the pipe buffer.
	written, copyErr := io.Copy(cipher.Writer(codecWriter), stdout)
	if copyErr != nil {
		cmd.Process.Kill()
	}

	waitErr := cmd.Wait()

	closeErr := codecWriter.Close()
	syncErr := out.Sync()
	if err := out.Close(); closeErr == nil && syncErr == nil && err != nil {
		syncErr = err
	}

	switch {
	case copyErr != nil:
		return written, NewStorageError("failed to write backup payload", copyErr)
	case waitErr != nil:
		return written, processFailure(cfg.dumpCommand(), waitErr, stderr.Bytes())
	case closeErr != nil:
		return written, NewCompressionError("failed to finalize compressed payload", closeErr)
	case syncErr != nil:
		return written, NewStorageError("failed to flush backup file", syncErr)
	}

	return written, nil
}

// runRestore feeds the backup payload through decompression and deciphering
// into the restore executable's stdin. A payload read error kills the
// subprocess instead of leaving it waiting for input.
func (p *Pipeline) runRestore(ctx context.Context, cfg Config, path string) (int64, error) {
	codec, err := NewCodec(cfg.Compression)
	if err != nil {
		return 0, err
	}
	cipher := NewStreamCipher(cfg.Password, cfg.tag())

	in, err := os.Open(path)
	if err != nil {
		return 0, NewStorageError("failed to open backup file", err)
	}
	defer in.Close()

	if _, err := in.Seek(int64(len(cfg.tag())), io.SeekStart); err != nil {
		return 0, NewStorageError("failed to skip backup tag", err)
	}

	codecReader, err := codec.NewReader(in)
	if err != nil {
		return 0, err
	}
	defer codecReader.Close()

	cmd := exec.CommandContext(ctx, cfg.restoreCommand(), connectionArgs(cfg.Database)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return 0, NewProcessError("failed to open restore input pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return 0, NewProcessError(fmt.Sprintf("failed to start %s", cfg.restoreCommand()), err)
	}

	written, copyErr := io.Copy(stdin, cipher.Reader(codecReader))
	stdin.Close()
	if copyErr != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return written, NewCompressionError("failed to read backup payload", copyErr)
	}

	if err := cmd.Wait(); err != nil {
		return written, processFailure(cfg.restoreCommand(), err, stderr.Bytes())
	}

	return written, nil
}

// connectionArgs renders the shared flag conventions of mysqldump and mysql.
// The password flag is omitted when no password is configured.
func connectionArgs(config database.Config) []string {
	args := []string{
		"--host=" + config.Host,
		"--port=" + strconv.Itoa(config.Port),
		"--user=" + config.Username,
	}
	if config.Password != "" {
		args = append(args, "--password="+config.Password)
	}
	return append(args, config.Database)
}

// processFailure wraps a subprocess exit error with its exit code and
// captured stderr
func processFailure(command string, err error, stderr []byte) *BackupError {
	procErr := NewProcessError(fmt.Sprintf("%s exited with an error", command), err)
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		procErr = procErr.WithContext("exit_code", exitErr.ExitCode())
	}
	if len(stderr) > 0 {
		procErr = procErr.WithContext("stderr", string(bytes.TrimSpace(stderr)))
	}
	return procErr
}

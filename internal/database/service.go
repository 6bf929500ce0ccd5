package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"mysql-schema-ops/internal/errors"
	"mysql-schema-ops/internal/logging"

	"github.com/go-sql-driver/mysql"
)

// Service manages MySQL connections for the migration orchestrator and the
// backup pipelines. Each top-level operation opens its own connection through
// this service and is responsible for closing it on every exit path.
type Service struct {
	connectionTimeout time.Duration
	logger            *logging.Logger
	retryHandler      *errors.RetryHandler
}

// NewService creates a new database service with default settings
func NewService() *Service {
	return &Service{
		connectionTimeout: 30 * time.Second,
		logger:            logging.NewDefaultLogger(),
		retryHandler:      errors.NewDefaultRetryHandler(),
	}
}

// NewServiceWithLogger creates a new database service with a custom logger
func NewServiceWithLogger(logger *logging.Logger) *Service {
	return &Service{
		connectionTimeout: 30 * time.Second,
		logger:            logger,
		retryHandler:      errors.NewDefaultRetryHandler(),
	}
}

// Connect establishes a connection to the target database with retry logic
func (s *Service) Connect(config Config) (*sql.DB, error) {
	return s.open(config, config.DSN(), config.Database)
}

// ConnectServer establishes a connection to the server without selecting a
// database. Used by bootstrap (the target database may not exist yet) and by
// restore (the target database is dropped and recreated).
func (s *Service) ConnectServer(config Config) (*sql.DB, error) {
	return s.open(config, config.ServerDSN(), "")
}

func (s *Service) open(config Config, dsn, database string) (*sql.DB, error) {
	startTime := time.Now()

	s.logger.WithFields(map[string]interface{}{
		"host":     config.Host,
		"port":     config.Port,
		"database": database,
	}).Debug("Attempting database connection")

	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	var db *sql.DB
	err := s.retryHandler.Retry(ctx, func() error {
		var connectErr error

		db, connectErr = sql.Open("mysql", dsn)
		if connectErr != nil {
			return errors.WrapError(connectErr, "failed to open database connection")
		}

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if testErr := s.TestConnection(db); testErr != nil {
			db.Close()
			return testErr
		}

		return nil
	})

	duration := time.Since(startTime)
	s.logger.LogDatabaseConnection(config.Host, database, err == nil, duration, err)

	if err != nil {
		return nil, err
	}

	return db, nil
}

// TestConnection verifies that the database connection is working
func (s *Service) TestConnection(db *sql.DB) error {
	if db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return errors.WrapError(err, "failed to ping database")
	}

	return nil
}

// Close gracefully closes the database connection
func (s *Service) Close(db *sql.DB) error {
	if db == nil {
		return nil
	}

	if err := db.Close(); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to close database connection")
		return errors.WrapError(err, "failed to close database connection")
	}

	return nil
}

// DatabaseExists reports whether the named database exists in the server catalog
func (s *Service) DatabaseExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	if db == nil {
		return false, errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	query := "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
	startTime := time.Now()

	var found string
	err := db.QueryRowContext(ctx, query, name).Scan(&found)
	s.logger.LogSQLExecution(query, time.Since(startTime), 0, nil)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.WrapError(err, "failed to check database existence")
	}

	return true, nil
}

// CreateDatabase creates the named database with the configured charset
func (s *Service) CreateDatabase(ctx context.Context, db *sql.DB, name, charset string) error {
	if charset == "" {
		charset = "utf8mb4"
	}
	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET %s", name, charset)
	return s.Exec(ctx, db, stmt)
}

// DropDatabase drops the named database entirely. Destructive and
// unconditional; restore relies on this before recreating the database.
func (s *Service) DropDatabase(ctx context.Context, db *sql.DB, name string) error {
	return s.Exec(ctx, db, fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name))
}

// Exec executes a single SQL statement with logging, tagging failures with
// the offending SQL text.
func (s *Service) Exec(ctx context.Context, db *sql.DB, stmt string, args ...interface{}) error {
	if db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	startTime := time.Now()
	result, err := db.ExecContext(ctx, stmt, args...)
	duration := time.Since(startTime)

	var rowsAffected int64
	if result != nil {
		rowsAffected, _ = result.RowsAffected()
	}

	s.logger.LogSQLExecution(logging.SanitizeSQL(stmt), duration, rowsAffected, err)

	if err != nil {
		return errors.NewAppError(errors.ErrorTypeSQL, "failed to execute statement", err).WithSQL(stmt)
	}

	return nil
}

// HighestVersion returns the highest applied version recorded in the given
// tracking table, or false when the table is missing or empty. Used by the
// backup pipeline to embed the schema version in generated filenames.
func (s *Service) HighestVersion(ctx context.Context, db *sql.DB, database, table string) (string, bool, error) {
	if db == nil {
		return "", false, errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	query := fmt.Sprintf("SELECT MAX(ver) FROM `%s`.`%s`", database, table)
	startTime := time.Now()

	var version sql.NullString
	err := db.QueryRowContext(ctx, query).Scan(&version)
	s.logger.LogSQLExecution(query, time.Since(startTime), 0, nil)

	if err != nil {
		// A missing tracking table or schema means no version was ever applied.
		var mysqlErr *mysql.MySQLError
		if stderrors.As(err, &mysqlErr) && (mysqlErr.Number == 1146 || mysqlErr.Number == 1049) {
			return "", false, nil
		}
		return "", false, errors.WrapError(err, "failed to read highest applied version")
	}

	if !version.Valid {
		return "", false, nil
	}

	return version.String, true, nil
}

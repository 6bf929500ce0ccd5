package migration

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"mysql-schema-ops/internal/database"
	"mysql-schema-ops/internal/logging"
	"mysql-schema-ops/internal/schema"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(logging.Config{Level: logging.LogLevelQuiet})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	return logger
}

func testConfig() database.Config {
	config := database.Config{
		Host:     "localhost",
		Username: "root",
		Database: "app",
	}
	config.SetDefaults()
	return config
}

// fakeConnector hands out pre-built sqlmock connections and records whether
// any connection was requested at all.
type fakeConnector struct {
	server  *sql.DB
	db      *sql.DB
	touched bool
}

func (f *fakeConnector) Connect(config database.Config) (*sql.DB, error) {
	f.touched = true
	return f.db, nil
}

func (f *fakeConnector) ConnectServer(config database.Config) (*sql.DB, error) {
	f.touched = true
	return f.server, nil
}

func (f *fakeConnector) Close(db *sql.DB) error {
	return nil
}

func migrationErrorType(t *testing.T, err error) MigrationErrorType {
	t.Helper()
	var migErr *MigrationError
	if !stderrors.As(err, &migErr) {
		t.Fatalf("expected *MigrationError, got %T: %v", err, err)
	}
	return migErr.Type
}

func expectBootstrap(mock sqlmock.Sqlmock, databaseExists bool) {
	rows := sqlmock.NewRows([]string{"SCHEMA_NAME"})
	if databaseExists {
		rows.AddRow("app")
	}
	mock.ExpectQuery("SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA").
		WithArgs("app").
		WillReturnRows(rows)
	if !databaseExists {
		mock.ExpectExec("CREATE DATABASE IF NOT EXISTS").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
}

func expectTrackingTable(mock sqlmock.Sqlmock, appliedVersions ...string) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows([]string{"ver"})
	for _, v := range appliedVersions {
		rows.AddRow(v)
	}
	mock.ExpectQuery("SELECT .* FROM").WillReturnRows(rows)
}

func expectStep(mock sqlmock.Sqlmock, version string) {
	mock.ExpectExec("INSERT INTO").
		WithArgs(version, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func TestOrchestrator_ValidationFailsBeforeConnecting(t *testing.T) {
	noop := func(ctx context.Context, exec Execer) error { return nil }

	tests := []struct {
		name    string
		declare func(r *Registry)
		target  *float64
		want    MigrationErrorType
	}{
		{
			name:    "no versions declared",
			declare: func(r *Registry) {},
			want:    ErrorTypeNoVersionsDeclared,
		},
		{
			name: "duplicate version",
			declare: func(r *Registry) {
				r.Declare(1.00, noop)
				r.Declare(1.00, noop)
			},
			want: ErrorTypeDuplicateVersion,
		},
		{
			name: "non-positive version",
			declare: func(r *Registry) {
				r.Declare(0, noop)
			},
			want: ErrorTypeInvalidVersion,
		},
		{
			name: "unknown target",
			declare: func(r *Registry) {
				r.Declare(1.00, noop)
			},
			target: floatPtr(2.00),
			want:   ErrorTypeUnknownVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			tt.declare(registry)

			connector := &fakeConnector{}
			orch := NewOrchestratorWithConnector(registry, testConfig(), testLogger(t), connector)

			count, err := orch.Upgrade(context.Background(), tt.target)
			if count != 0 {
				t.Errorf("Upgrade() count = %d, want 0", count)
			}
			if got := migrationErrorType(t, err); got != tt.want {
				t.Errorf("Upgrade() error type = %s, want %s", got, tt.want)
			}
			if connector.touched {
				t.Error("validation failure must not touch the database")
			}
		})
	}
}

func TestOrchestrator_FullUpgradeFromScratch(t *testing.T) {
	serverDB, serverMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer serverDB.Close()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	expectBootstrap(serverMock, false)
	expectTrackingTable(mock)

	mock.ExpectExec("CREATE TABLE `users`").WillReturnResult(sqlmock.NewResult(0, 0))
	expectStep(mock, "1.00")
	mock.ExpectExec("ALTER TABLE `users`").WillReturnResult(sqlmock.NewResult(0, 0))
	expectStep(mock, "2.00")

	registry := NewRegistry()
	registry.Declare(2.00, func(ctx context.Context, exec Execer) error {
		return exec.Exec(ctx, schema.AddColumn("users", "email", "varchar(255) NOT NULL"))
	})
	registry.Declare(1.00, func(ctx context.Context, exec Execer) error {
		stmt := schema.CreateTable("users").
			Column("id", "bigint unsigned NOT NULL AUTO_INCREMENT").
			PrimaryKey("id").
			SQL()
		return exec.Exec(ctx, stmt)
	})

	connector := &fakeConnector{server: serverDB, db: db}
	orch := NewOrchestratorWithConnector(registry, testConfig(), testLogger(t), connector)

	count, err := orch.Upgrade(context.Background(), nil)
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Upgrade() count = %d, want 2", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
	if err := serverMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet server expectations: %v", err)
	}
}

func TestOrchestrator_SecondRunIsNoop(t *testing.T) {
	serverDB, serverMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer serverDB.Close()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	expectBootstrap(serverMock, true)
	expectTrackingTable(mock, "1.00", "2.00")

	registry := NewRegistry()
	ran := false
	program := func(ctx context.Context, exec Execer) error {
		ran = true
		return nil
	}
	registry.Declare(1.00, program)
	registry.Declare(2.00, program)

	connector := &fakeConnector{server: serverDB, db: db}
	orch := NewOrchestratorWithConnector(registry, testConfig(), testLogger(t), connector)

	count, err := orch.Upgrade(context.Background(), nil)
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Upgrade() count = %d, want 0", count)
	}
	if ran {
		t.Error("already applied steps must not run again")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOrchestrator_TargetStopsEarly(t *testing.T) {
	serverDB, serverMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer serverDB.Close()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	expectBootstrap(serverMock, false)
	expectTrackingTable(mock)
	expectStep(mock, "1.00")

	registry := NewRegistry()
	var ran []float64
	declare := func(version float64) {
		registry.Declare(version, func(ctx context.Context, exec Execer) error {
			ran = append(ran, version)
			return nil
		})
	}
	declare(1.00)
	declare(2.00)

	connector := &fakeConnector{server: serverDB, db: db}
	orch := NewOrchestratorWithConnector(registry, testConfig(), testLogger(t), connector)

	count, err := orch.Upgrade(context.Background(), floatPtr(1.00))
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Upgrade() count = %d, want 1", count)
	}
	if len(ran) != 1 || ran[0] != 1.00 {
		t.Errorf("ran = %v, want [1]", ran)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOrchestrator_DominanceSkipsGaps(t *testing.T) {
	serverDB, serverMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer serverDB.Close()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	// Only 2.00 recorded; 1.00 is dominated and never re-applied.
	expectBootstrap(serverMock, true)
	expectTrackingTable(mock, "2.00")
	expectStep(mock, "3.00")

	registry := NewRegistry()
	var ran []float64
	declare := func(version float64) {
		registry.Declare(version, func(ctx context.Context, exec Execer) error {
			ran = append(ran, version)
			return nil
		})
	}
	declare(1.00)
	declare(2.00)
	declare(3.00)

	connector := &fakeConnector{server: serverDB, db: db}
	orch := NewOrchestratorWithConnector(registry, testConfig(), testLogger(t), connector)

	count, err := orch.Upgrade(context.Background(), nil)
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Upgrade() count = %d, want 1", count)
	}
	if len(ran) != 1 || ran[0] != 3.00 {
		t.Errorf("ran = %v, want [3]", ran)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOrchestrator_StepFailureStopsRun(t *testing.T) {
	serverDB, serverMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer serverDB.Close()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	expectBootstrap(serverMock, true)
	expectTrackingTable(mock)

	registry := NewRegistry()
	registry.Declare(1.00, func(ctx context.Context, exec Execer) error {
		return stderrors.New("boom")
	})
	secondRan := false
	registry.Declare(2.00, func(ctx context.Context, exec Execer) error {
		secondRan = true
		return nil
	})

	connector := &fakeConnector{server: serverDB, db: db}
	orch := NewOrchestratorWithConnector(registry, testConfig(), testLogger(t), connector)

	count, err := orch.Upgrade(context.Background(), nil)
	if count != 0 {
		t.Errorf("Upgrade() count = %d, want 0", count)
	}
	if got := migrationErrorType(t, err); got != ErrorTypeStepFailed {
		t.Errorf("Upgrade() error type = %s, want %s", got, ErrorTypeStepFailed)
	}
	if secondRan {
		t.Error("steps after a failure must not run")
	}
	// The failed step's version must not be recorded.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"mysql-schema-ops/internal/errors"
)

func TestService_NilConnection(t *testing.T) {
	service := NewService()
	ctx := context.Background()

	if err := service.TestConnection(nil); err == nil {
		t.Error("Expected error for nil connection in TestConnection")
	}
	if _, err := service.DatabaseExists(ctx, nil, "app"); err == nil {
		t.Error("Expected error for nil connection in DatabaseExists")
	}
	if err := service.Exec(ctx, nil, "SELECT 1"); err == nil {
		t.Error("Expected error for nil connection in Exec")
	}
	if _, _, err := service.HighestVersion(ctx, nil, "app", "_ver"); err == nil {
		t.Error("Expected error for nil connection in HighestVersion")
	}
}

func TestService_CloseNil(t *testing.T) {
	service := NewService()
	if err := service.Close(nil); err != nil {
		t.Errorf("Expected no error closing nil connection, got %v", err)
	}
}

func TestService_DatabaseExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	service := NewService()
	ctx := context.Background()

	mock.ExpectQuery("SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"SCHEMA_NAME"}).AddRow("app"))

	exists, err := service.DatabaseExists(ctx, db, "app")
	if err != nil {
		t.Fatalf("DatabaseExists() error = %v", err)
	}
	if !exists {
		t.Error("Expected database to exist")
	}

	mock.ExpectQuery("SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"SCHEMA_NAME"}))

	exists, err = service.DatabaseExists(ctx, db, "missing")
	if err != nil {
		t.Fatalf("DatabaseExists() error = %v", err)
	}
	if exists {
		t.Error("Expected database to not exist")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestService_Exec_AttachesSQLOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	service := NewService()

	mock.ExpectExec("DROP TABLE bad").
		WillReturnError(&mysql.MySQLError{Number: 1064, Message: "syntax"})

	execErr := service.Exec(context.Background(), db, "DROP TABLE bad")
	if execErr == nil {
		t.Fatal("Expected error")
	}

	appErr, ok := execErr.(*errors.AppError)
	if !ok {
		t.Fatalf("Expected *errors.AppError, got %T", execErr)
	}
	if appErr.SQL() != "DROP TABLE bad" {
		t.Errorf("Expected offending SQL attached, got %q", appErr.SQL())
	}
}

func TestService_HighestVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	service := NewService()
	ctx := context.Background()

	mock.ExpectQuery("SELECT MAX\\(ver\\) FROM").
		WillReturnRows(sqlmock.NewRows([]string{"MAX(ver)"}).AddRow("2.00"))

	version, ok, err := service.HighestVersion(ctx, db, "app", "_ver")
	if err != nil {
		t.Fatalf("HighestVersion() error = %v", err)
	}
	if !ok || version != "2.00" {
		t.Errorf("HighestVersion() = %q, %v; want 2.00, true", version, ok)
	}
}

func TestService_HighestVersion_EmptyTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	service := NewService()

	mock.ExpectQuery("SELECT MAX\\(ver\\) FROM").
		WillReturnRows(sqlmock.NewRows([]string{"MAX(ver)"}).AddRow(nil))

	_, ok, err := service.HighestVersion(context.Background(), db, "app", "_ver")
	if err != nil {
		t.Fatalf("HighestVersion() error = %v", err)
	}
	if ok {
		t.Error("Expected no version for empty table")
	}
}

func TestService_HighestVersion_MissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	service := NewService()

	mock.ExpectQuery("SELECT MAX\\(ver\\) FROM").
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "table doesn't exist"})

	_, ok, err := service.HighestVersion(context.Background(), db, "app", "_ver")
	if err != nil {
		t.Fatalf("Expected missing table to be treated as no version, got %v", err)
	}
	if ok {
		t.Error("Expected no version for missing table")
	}
}

func TestService_CreateDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	service := NewService()

	mock.ExpectExec("CREATE DATABASE IF NOT EXISTS `app` CHARACTER SET utf8mb4").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := service.CreateDatabase(context.Background(), db, "app", ""); err != nil {
		t.Fatalf("CreateDatabase() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestService_DropDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	service := NewService()

	mock.ExpectExec("DROP DATABASE IF EXISTS `app`").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := service.DropDatabase(context.Background(), db, "app"); err != nil {
		t.Fatalf("DropDatabase() error = %v", err)
	}
}

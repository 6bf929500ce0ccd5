package application

import (
	"testing"
	"time"

	"mysql-schema-ops/internal/database"
	"mysql-schema-ops/internal/logging"
)

func validConfig() Config {
	return Config{
		Database: database.Config{
			Host:     "localhost",
			Username: "root",
			Database: "app",
		},
	}
}

func TestNew(t *testing.T) {
	app, err := New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if app.Logger() == nil {
		t.Error("expected a logger")
	}
	if app.Registry() == nil {
		t.Error("expected a registry")
	}
	if app.config.Timeout != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", app.config.Timeout)
	}
	if app.config.Database.Port != 3306 {
		t.Errorf("default port = %d, want 3306", app.config.Database.Port)
	}
}

func TestNew_InvalidDatabaseConfig(t *testing.T) {
	config := validConfig()
	config.Database.Host = ""

	if _, err := New(config); err == nil {
		t.Error("expected error for missing database host")
	}
}

func TestNew_LogLevelSelection(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		want    logging.LogLevel
	}{
		{"default", false, false, logging.LogLevelNormal},
		{"verbose", true, false, logging.LogLevelVerbose},
		{"quiet", false, true, logging.LogLevelQuiet},
		{"quiet wins over verbose", true, true, logging.LogLevelQuiet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			config.Verbose = tt.verbose
			config.Quiet = tt.quiet

			app, err := New(config)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := app.Logger().GetLevel(); got != tt.want {
				t.Errorf("log level = %s, want %s", got, tt.want)
			}
		})
	}
}

package database

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the configuration parameters for database connection
type Config struct {
	Host     string        `mapstructure:"host" yaml:"host"`
	Port     int           `mapstructure:"port" yaml:"port"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password"`
	Database string        `mapstructure:"database" yaml:"database"`
	Charset  string        `mapstructure:"charset" yaml:"charset"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Validate checks if the database configuration has all required parameters
func (c *Config) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.New("port must be between 1 and 65535"))
	}

	if c.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}

	if c.Database == "" {
		errs = append(errs, errors.New("database name is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("database configuration validation failed: %v", errs)
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.Charset == "" {
		c.Charset = "utf8mb4"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// DSN returns the Data Source Name for a connection to the target database
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=%s&charset=%s&parseTime=true&multiStatements=true",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Timeout, c.Charset)
}

// ServerDSN returns the Data Source Name for a connection to the server
// without selecting a database, used when the target database may not
// exist yet (migration bootstrap, restore).
func (c *Config) ServerDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/?timeout=%s&charset=%s&parseTime=true",
		c.Username, c.Password, c.Host, c.Port, c.Timeout, c.Charset)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// sampleConfig is rendered by the config subcommand. Keys mirror the
// mapstructure tags viper unmarshals into application.Config.
type sampleConfig struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		Charset  string `yaml:"charset"`
	} `yaml:"database"`
	Migrations struct {
		Dir string `yaml:"dir"`
	} `yaml:"migrations"`
	Backup struct {
		Dir         string `yaml:"dir"`
		Password    string `yaml:"password"`
		Compression string `yaml:"compression"`
	} `yaml:"backup"`
	Storage struct {
		Provider string `yaml:"provider"`
		Local    struct {
			BasePath string `yaml:"base_path"`
		} `yaml:"local"`
	} `yaml:"storage"`
	Verbose bool   `yaml:"verbose"`
	Quiet   bool   `yaml:"quiet"`
	LogFile string `yaml:"log_file"`
	Timeout string `yaml:"timeout"`
}

// createConfigCommand creates the config subcommand for generating a sample
// configuration file
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file that can be used with the --config flag.

Redirect the output to a file and customize it for your environment:

  mysql-schema-ops config > .mysql-schema-ops.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample := sampleConfig{}
			sample.Database.Host = "localhost"
			sample.Database.Port = 3306
			sample.Database.Username = "root"
			sample.Database.Password = ""
			sample.Database.Database = "app"
			sample.Database.Charset = "utf8mb4"
			sample.Migrations.Dir = "./migrations"
			sample.Backup.Dir = "./backups"
			sample.Backup.Password = ""
			sample.Backup.Compression = "gzip"
			sample.Storage.Provider = "local"
			sample.Storage.Local.BasePath = "/var/backups/mysql-schema-ops"
			sample.Timeout = "30s"

			out, err := yaml.Marshal(&sample)
			if err != nil {
				return fmt.Errorf("failed to render sample configuration: %w", err)
			}

			fmt.Println("# mysql-schema-ops configuration")
			fmt.Print(string(out))
			return nil
		},
	}
}

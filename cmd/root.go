package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"mysql-schema-ops/internal/application"
	"mysql-schema-ops/internal/backup"
)

var cfgFile string

// CLI flag variables
var (
	// Database flags
	dbHost     string
	dbPort     int
	dbUsername string
	dbPassword string
	dbDatabase string

	// Operation flags
	migrationsDir  string
	backupDir      string
	backupPassword string
	compression    string
	promptPassword bool
	verbose        bool
	quiet          bool
	timeout        time.Duration
	logFile        string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mysql-schema-ops",
	Short: "Versioned MySQL schema migrations with full-database backup and restore",
	Long: `MySQL Schema Ops applies declared schema migration steps to a MySQL database
in ascending version order, recording each applied version in a tracking
table, and produces framed, compressed, optionally ciphered full-database
backups that it can restore from.

Examples:
  # Apply every pending migration step
  mysql-schema-ops upgrade --host=localhost --user=root --db=app --dir=./migrations

  # Upgrade only up to a declared version
  mysql-schema-ops upgrade 2.00 --config=config.yaml

  # Produce a backup file in the backup directory
  mysql-schema-ops backup --config=config.yaml

  # Produce a backup and push it to the configured storage provider
  mysql-schema-ops backup --config=config.yaml --upload

  # Restore the latest backup from the backup directory
  mysql-schema-ops restore --config=config.yaml

  # Restore a specific file
  mysql-schema-ops restore ./backups/20250615-080000.bak --config=config.yaml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mysql-schema-ops.yaml)")

	// Database flags
	rootCmd.PersistentFlags().StringVar(&dbHost, "host", "", "database host")
	rootCmd.PersistentFlags().IntVar(&dbPort, "port", 3306, "database port")
	rootCmd.PersistentFlags().StringVar(&dbUsername, "user", "", "database username")
	rootCmd.PersistentFlags().StringVar(&dbPassword, "password", "", "database password")
	rootCmd.PersistentFlags().StringVar(&dbDatabase, "db", "", "database name")
	rootCmd.PersistentFlags().BoolVarP(&promptPassword, "prompt-password", "p", false, "prompt for the database password")

	// Operation flags
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "", "directory of <version>_<name>.sql migration files")
	rootCmd.PersistentFlags().StringVar(&backupDir, "backup-dir", "", "directory for backup files")
	rootCmd.PersistentFlags().StringVar(&backupPassword, "backup-password", "", "password keying the backup cipher")
	rootCmd.PersistentFlags().StringVar(&compression, "compression", "", "backup compression algorithm (gzip, zstd, lz4, none)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "database operation timeout")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file instead of stdout")

	// Bind flags to viper
	viper.BindPFlag("database.host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("database.port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("database.username", rootCmd.PersistentFlags().Lookup("user"))
	viper.BindPFlag("database.password", rootCmd.PersistentFlags().Lookup("password"))
	viper.BindPFlag("database.database", rootCmd.PersistentFlags().Lookup("db"))

	viper.BindPFlag("migrations.dir", rootCmd.PersistentFlags().Lookup("dir"))
	viper.BindPFlag("backup.dir", rootCmd.PersistentFlags().Lookup("backup-dir"))
	viper.BindPFlag("backup.password", rootCmd.PersistentFlags().Lookup("backup-password"))
	viper.BindPFlag("backup.compression", rootCmd.PersistentFlags().Lookup("compression"))

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.AddCommand(createUpgradeCommand())
	rootCmd.AddCommand(createBackupCommand())
	rootCmd.AddCommand(createRestoreCommand())
	rootCmd.AddCommand(createConfigCommand())
	rootCmd.AddCommand(createVersionCommand())
}

// buildApp builds the resolved configuration and creates the application
func buildApp(cmd *cobra.Command) (*application.App, error) {
	config, err := buildConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	app, err := application.New(*config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return app, nil
}

// buildConfig builds the application configuration from CLI flags and config file
func buildConfig(cmd *cobra.Command) (*application.Config, error) {
	if verbose && quiet {
		return nil, fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}

	config := &application.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Explicit flag overrides on top of the viper binding
	if dbHost != "" {
		config.Database.Host = dbHost
	}
	if cmd.Flags().Changed("port") {
		config.Database.Port = dbPort
	}
	if dbUsername != "" {
		config.Database.Username = dbUsername
	}
	if dbPassword != "" {
		config.Database.Password = dbPassword
	}
	if dbDatabase != "" {
		config.Database.Database = dbDatabase
	}
	if migrationsDir != "" {
		config.Migrations.Dir = migrationsDir
	}
	if backupDir != "" {
		config.Backup.Dir = backupDir
	}
	if backupPassword != "" {
		config.Backup.Password = backupPassword
	}
	if compression != "" {
		config.Backup.Compression = backup.CompressionType(compression)
	}
	if cmd.Flags().Changed("verbose") {
		config.Verbose = verbose
	}
	if cmd.Flags().Changed("quiet") {
		config.Quiet = quiet
	}
	if cmd.Flags().Changed("timeout") {
		config.Timeout = timeout
	}
	if logFile != "" {
		config.LogFile = logFile
	}

	if promptPassword {
		password, err := readPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		config.Database.Password = password
	}

	return config, nil
}

// readPassword reads the database password from the terminal without echo,
// falling back to a plain line read when stdin is not a terminal (pipes, CI).
func readPassword() (string, error) {
	fd := os.Stdin.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(int(fd))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".mysql-schema-ops" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mysql-schema-ops")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("MYSQL_SCHEMA_OPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

package migration

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"mysql-schema-ops/internal/database"
	"mysql-schema-ops/internal/errors"
	"mysql-schema-ops/internal/logging"
)

// TrackingTable is the name of the table recording applied versions
const TrackingTable = "_ver"

// Connector abstracts connection establishment so the orchestrator can be
// tested against a mock database.
type Connector interface {
	Connect(config database.Config) (*sql.DB, error)
	ConnectServer(config database.Config) (*sql.DB, error)
	Close(db *sql.DB) error
}

// Orchestrator decides which declared migration steps to run, runs them in
// ascending version order, and records each success in the tracking table.
type Orchestrator struct {
	registry  *Registry
	config    database.Config
	service   *database.Service
	connector Connector
	logger    *logging.Logger
}

// NewOrchestrator creates an orchestrator over the given registry and
// connection configuration.
func NewOrchestrator(registry *Registry, config database.Config, logger *logging.Logger) *Orchestrator {
	service := database.NewServiceWithLogger(logger)
	return &Orchestrator{
		registry:  registry,
		config:    config,
		service:   service,
		connector: service,
		logger:    logger,
	}
}

// NewOrchestratorWithConnector creates an orchestrator with a custom
// connector, used by tests.
func NewOrchestratorWithConnector(registry *Registry, config database.Config, logger *logging.Logger, connector Connector) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		config:    config,
		service:   database.NewServiceWithLogger(logger),
		connector: connector,
		logger:    logger,
	}
}

// Upgrade applies every pending step up to target and returns the number of
// steps actually run. A nil target means the highest declared version.
//
// Re-running after a full success is a no-op: every declared step is already
// dominated by an applied version and is skipped. Success and "nothing to
// apply" are distinguished by the returned count.
func (o *Orchestrator) Upgrade(ctx context.Context, target *float64) (int, error) {
	log := o.logger.NewOperation("upgrade")

	steps, err := o.validateSteps()
	if err != nil {
		return 0, err
	}

	targetVersion, err := resolveTarget(steps, target)
	if err != nil {
		return 0, err
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })

	log.WithFields(map[string]interface{}{
		"declared": len(steps),
		"target":   FormatVersion(targetVersion),
		"database": o.config.Database,
	}).Info("Starting schema upgrade")

	if err := o.bootstrap(ctx); err != nil {
		return 0, err
	}

	db, err := o.connector.Connect(o.config)
	if err != nil {
		return 0, err
	}
	defer o.connector.Close(db)

	if err := o.ensureTrackingTable(ctx, db); err != nil {
		return 0, err
	}

	applied, err := o.appliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}

	// A step is satisfied when some applied version dominates it. Gaps in
	// the applied set below the maximum are deliberately not re-detected.
	maxApplied := 0.0
	for _, v := range applied {
		if v > maxApplied {
			maxApplied = v
		}
	}

	count := 0
	for _, step := range steps {
		if len(applied) > 0 && step.Version <= maxApplied {
			continue
		}
		if step.Version > targetVersion {
			break
		}

		if err := o.runStep(ctx, db, step); err != nil {
			return count, err
		}
		count++
	}

	if count == 0 {
		log.Info("Nothing to apply")
	} else {
		log.WithField("applied", count).Info("Schema upgrade complete")
	}

	return count, nil
}

// validateSteps rounds declared versions and enforces positivity and
// uniqueness before the database is touched.
func (o *Orchestrator) validateSteps() ([]Step, error) {
	steps := o.registry.Steps()

	seen := make(map[string]bool, len(steps))
	for _, step := range steps {
		if step.Version <= 0 {
			return nil, NewInvalidVersionError(step.Version)
		}
		key := FormatVersion(step.Version)
		if seen[key] {
			return nil, NewDuplicateVersionError(step.Version)
		}
		seen[key] = true
	}

	if len(steps) == 0 {
		return nil, NewNoVersionsDeclaredError()
	}

	return steps, nil
}

// resolveTarget picks the requested version, or the maximum declared one
func resolveTarget(steps []Step, target *float64) (float64, error) {
	if target == nil {
		max := 0.0
		for _, step := range steps {
			if step.Version > max {
				max = step.Version
			}
		}
		return max, nil
	}

	want := RoundVersion(*target)
	for _, step := range steps {
		if step.Version == want {
			return want, nil
		}
	}
	return 0, NewUnknownVersionError(want)
}

// bootstrap creates the target database when it does not exist yet. It uses
// a server-level connection because the per-database DSN cannot connect to a
// missing schema.
func (o *Orchestrator) bootstrap(ctx context.Context) error {
	server, err := o.connector.ConnectServer(o.config)
	if err != nil {
		return err
	}
	defer o.connector.Close(server)

	exists, err := o.service.DatabaseExists(ctx, server, o.config.Database)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	o.logger.WithField("database", o.config.Database).Info("Creating database")
	return o.service.CreateDatabase(ctx, server, o.config.Database, o.config.Charset)
}

func (o *Orchestrator) ensureTrackingTable(ctx context.Context, db *sql.DB) error {
	stmt := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS `%s` (\n"+
			"  `ver` decimal(20,2) NOT NULL,\n"+
			"  `ctime` datetime NOT NULL,\n"+
			"  PRIMARY KEY (`ver`),\n"+
			"  INDEX `idx_ctime` (`ctime`)\n"+
			")", TrackingTable)
	return o.service.Exec(ctx, db, stmt)
}

func (o *Orchestrator) appliedVersions(ctx context.Context, db *sql.DB) ([]float64, error) {
	query := fmt.Sprintf("SELECT `ver` FROM `%s`", TrackingTable)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrorTypeSQL, "failed to read applied versions", err).WithSQL(query)
	}
	defer rows.Close()

	var versions []float64
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.WrapError(err, "failed to scan applied version")
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrorTypeValidation,
				fmt.Sprintf("tracking table contains malformed version %q", raw), err)
		}
		versions = append(versions, RoundVersion(v))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, "failed to read applied versions")
	}

	return versions, nil
}

// runStep invokes the step's upgrade program and, on success, immediately
// records the version. The two are not one atomic transaction; a crash
// between them leaves the schema change unrecorded.
func (o *Orchestrator) runStep(ctx context.Context, db *sql.DB, step Step) error {
	startTime := time.Now()

	execer := &connExecer{db: db, service: o.service}
	if err := step.Upgrade(ctx, execer); err != nil {
		o.logStepFailure(step, err)
		o.logger.LogMigrationStep(step.Version, time.Since(startTime), err)
		return NewStepFailedError(step.Version, err)
	}

	insert := fmt.Sprintf("INSERT INTO `%s` (`ver`, `ctime`) VALUES (?, ?)", TrackingTable)
	if err := o.service.Exec(ctx, db, insert, FormatVersion(step.Version), time.Now()); err != nil {
		o.logger.LogMigrationStep(step.Version, time.Since(startTime), err)
		return NewStepFailedError(step.Version, err)
	}

	o.logger.LogMigrationStep(step.Version, time.Since(startTime), nil)
	return nil
}

func (o *Orchestrator) logStepFailure(step Step, err error) {
	fields := map[string]interface{}{
		"version": FormatVersion(step.Version),
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.SQL() != "" {
		fields["sql"] = logging.SanitizeSQL(appErr.SQL())
	}
	o.logger.WithFields(fields).Error("Migration step failed")
}

// connExecer binds the exec capability to the orchestrator's live connection
type connExecer struct {
	db      *sql.DB
	service *database.Service
}

func (e *connExecer) Exec(ctx context.Context, stmt string, args ...interface{}) error {
	return e.service.Exec(ctx, e.db, stmt, args...)
}

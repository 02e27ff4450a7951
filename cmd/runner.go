package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/iaminawe/ParkingGarage-sub010/internal/formatter"
	"github.com/iaminawe/ParkingGarage-sub010/internal/memstore"
	"github.com/iaminawe/ParkingGarage-sub010/internal/shared"
	"github.com/iaminawe/ParkingGarage-sub010/internal/tasks"
	"github.com/iaminawe/ParkingGarage-sub010/internal/ui"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	store  *memstore.Store
	codec  formatter.ArtifactCodec
	logger *log.Logger
	output io.Writer
	styles *ui.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Store  *memstore.Store
	Codec  formatter.ArtifactCodec
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Store == nil {
		opts.Store = memstore.New()
	}
	if opts.Codec == nil {
		opts.Codec = formatter.NewJSONCodec()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		store:  opts.Store,
		codec:  opts.Codec,
		logger: opts.Logger,
		output: opts.Output,
		styles: ui.DefaultPalette,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, seedCommand, migrateCommand, backupCommand, rollbackCommand, validateCommand, statsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openDB opens the configured database with the schema applied. The caller
// owns the returned handle.
func (r *Runner) openDB() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// backupUtility builds the backup utility over the configured bundle root.
func (r *Runner) backupUtility(repos *tasks.Repos) *tasks.BackupUtility {
	return tasks.NewBackupUtility(r.store, repos, r.codec, r.config.Backup.Dir, r.logger)
}

// loadStore hydrates the memory store from a bundle. An empty path selects
// the newest bundle under the backup root.
func (r *Runner) loadStore(ctx context.Context, path string) error {
	backup := r.backupUtility(nil)
	if path == "" {
		bundles, err := backup.ListBackups()
		if err != nil {
			return err
		}
		if len(bundles) == 0 {
			return fmt.Errorf("%w: no bundles under %s; run seed or backup create first",
				shared.ErrBackupMissing, r.config.Backup.Dir)
		}
		path = bundles[0].Path
	}
	if err := backup.RestoreFromBackup(ctx, path); err != nil {
		return err
	}
	r.logger.Info("memory store loaded", "from", path)
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"

	"github.com/whitebot/whitebot/internal/config"
	"github.com/whitebot/whitebot/internal/store/pg"
	"github.com/whitebot/whitebot/internal/upgrade"
	"github.com/whitebot/whitebot/migrations"
)

const migrateTimeout = 5 * time.Minute

// migrateCmd manages the Postgres schema. The SQLite backend creates its
// tables on open and has nothing to migrate.
func migrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "read migrations from this directory instead of the built-in set")

	cmd.AddCommand(migrateUpCmd(&dir))
	cmd.AddCommand(migrateStatusCmd())
	cmd.AddCommand(migrateForceCmd(&dir))
	return cmd
}

func migrateUpCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: fmt.Sprintf("Migrate to the schema this binary runs on (v%d)", upgrade.RequiredSchemaVersion),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPostgres(func(ctx context.Context, db *sql.DB) error {
				m, err := newMigrator(db, *dir)
				if err != nil {
					return err
				}
				defer m.Close()

				// Stop at the required version so a newer migrations dir
				// cannot move the schema past what run accepts.
				err = m.Migrate(upgrade.RequiredSchemaVersion)
				if err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate up: %w", err)
				}

				s, err := upgrade.CheckSchema(ctx, db)
				if err != nil {
					return err
				}
				printSchema(s)
				if !s.Compatible {
					return errors.New(upgrade.FormatError(s))
				}
				slog.Info("schema ready", "version", s.CurrentVersion)
				return nil
			})
		},
	}
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"version"},
		Short:   "Compare the database schema with this binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPostgres(func(ctx context.Context, db *sql.DB) error {
				s, err := upgrade.CheckSchema(ctx, db)
				if err != nil {
					return err
				}
				printSchema(s)
				if !s.Compatible {
					fmt.Println()
					fmt.Print(upgrade.FormatError(s))
				}
				return nil
			})
		},
	}
}

func migrateForceCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Record a schema version without running SQL (clears a dirty state)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < 0 {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return withPostgres(func(ctx context.Context, db *sql.DB) error {
				m, err := newMigrator(db, *dir)
				if err != nil {
					return err
				}
				defer m.Close()

				if err := m.Force(version); err != nil {
					return fmt.Errorf("force version %d: %w", version, err)
				}
				s, err := upgrade.CheckSchema(ctx, db)
				if err != nil {
					return err
				}
				printSchema(s)
				return nil
			})
		},
	}
}

// withPostgres opens the database named by WHITEBOT_POSTGRES_DSN, the same one
// run would use.
func withPostgres(fn func(ctx context.Context, db *sql.DB) error) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.IsManagedMode() {
		return errors.New("WHITEBOT_POSTGRES_DSN is not set; the sqlite backend needs no migrations")
	}

	db, err := pg.OpenDB(cfg.Database.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	return fn(ctx, db)
}

func newMigrator(db *sql.DB, dir string) (*migrate.Migrate, error) {
	src, err := migrationSource(dir)
	if err != nil {
		return nil, err
	}
	last, err := lastVersion(src)
	if err == nil && last < upgrade.RequiredSchemaVersion {
		err = fmt.Errorf("migrations stop at v%d, this binary requires v%d", last, upgrade.RequiredSchemaVersion)
	}
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// migrationSource reads the embedded migrations, or dir when set.
func migrationSource(dir string) (source.Driver, error) {
	var fsys fs.FS = migrations.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	}
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	return src, nil
}

// lastVersion returns the highest migration version in src.
func lastVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, err
		}
		v = next
	}
}

func schemaState(s *upgrade.SchemaStatus) string {
	switch {
	case s.Dirty:
		return "dirty"
	case s.Compatible:
		return "ok"
	case s.NeedsMigration:
		return "needs migration"
	default:
		return "newer than binary"
	}
}

func printSchema(s *upgrade.SchemaStatus) {
	fmt.Printf("%-10s v%d\n", "current", s.CurrentVersion)
	fmt.Printf("%-10s v%d\n", "required", s.RequiredVersion)
	fmt.Printf("%-10s %s\n", "state", schemaState(s))
}

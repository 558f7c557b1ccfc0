package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ogurasousui/org-directory/internal/platform/config"
	"github.com/spf13/cobra"
)

var (
	configPath    string
	migrationsDir string
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Apply org-directory database migrations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var upCmd = &cobra.Command{
	Use:   "up [N]",
	Short: "Apply all or N pending migrations",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrate(func(m *migrate.Migrate) error {
			if len(args) == 0 {
				return ignoreNoChange(m.Up())
			}
			n, err := parseSteps(args[0])
			if err != nil {
				return err
			}
			return ignoreNoChange(m.Steps(n))
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down [N]",
	Short: "Revert all or N applied migrations",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrate(func(m *migrate.Migrate) error {
			if len(args) == 0 {
				return ignoreNoChange(m.Down())
			}
			n, err := parseSteps(args[0])
			if err != nil {
				return err
			}
			return ignoreNoChange(m.Steps(-n))
		})
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop every object in the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrate(func(m *migrate.Migrate) error {
			return m.Drop()
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current migration version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrate(func(m *migrate.Migrate) error {
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Printf("no migration applied")
				return nil
			}
			if err != nil {
				return err
			}
			log.Printf("version=%d dirty=%t", version, dirty)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	rootCmd.PersistentFlags().StringVarP(&migrationsDir, "dir", "d", "", "directory containing migration files (defaults to database.migrations_path)")
	rootCmd.AddCommand(upCmd, downCmd, dropCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("migration failed: %v", err)
		os.Exit(1)
	}
}

func withMigrate(fn func(m *migrate.Migrate) error) error {
	cfg, err := config.Load(effectiveConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		return errors.New("database driver is memory, nothing to migrate")
	}

	dir := migrationsDir
	if dir == "" {
		dir = cfg.Database.MigrationsPath
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve path for %s: %w", dir, err)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(absDir), cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := fn(m); err != nil {
		return err
	}
	log.Printf("migration completed")
	return nil
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func parseSteps(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("steps must be a positive integer, got %q", raw)
	}
	return n, nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

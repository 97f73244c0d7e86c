package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/internal/migrate"
)

var (
	migrateDSN        string
	migrateDir        string
	migrateConfigPath string
	migrateTarget     int64
)

// migrateCmd groups the database schema commands.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
	Long: `Apply, inspect, or roll back the Postgres schema used by the billing
ledger and the deployment record store.

The connection string is resolved from --dsn, then the
OPENCONDUCTOR_POSTGRES_DSN environment variable, then the ledger section
of config.yaml. Only Postgres-backed deployments need migrations; the
default in-memory backends have no schema.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newMigrateRunner()
		if err != nil {
			return err
		}
		return runner.Up(cmd.Context())
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newMigrateRunner()
		if err != nil {
			return err
		}
		return runner.Status(cmd.Context())
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Long: `Roll back the most recent migration, or everything above --target
when a target version is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newMigrateRunner()
		if err != nil {
			return err
		}
		return runner.Down(cmd.Context(), migrateTarget)
	},
}

// newMigrateRunner resolves the DSN and builds the runner shared by the
// migrate subcommands.
func newMigrateRunner() (migrate.Runner, error) {
	dsn := migrateDSN
	if dsn == "" {
		// LoadConfig applies the OPENCONDUCTOR_POSTGRES_DSN override.
		cfg, err := config.LoadConfig(resolveMigrateConfigPath())
		if err != nil {
			return migrate.Runner{}, fmt.Errorf("failed to load configuration: %w", err)
		}
		dsn = cfg.Ledger.PostgresDSN
	}

	return migrate.New(dsn, migrateDir)
}

func resolveMigrateConfigPath() string {
	if migrateConfigPath != "" {
		return migrateConfigPath
	}
	return config.GetDefaultConfigPathOrPanic()
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateCmd.PersistentFlags().StringVar(&migrateDSN, "dsn", "", "Postgres connection string (env: OPENCONDUCTOR_POSTGRES_DSN)")
	migrateCmd.PersistentFlags().StringVar(&migrateDir, "dir", migrate.DefaultMigrationsDir, "Directory containing migration files")
	migrateCmd.PersistentFlags().StringVar(&migrateConfigPath, "config-path", "", "Configuration directory")
	migrateDownCmd.Flags().Int64Var(&migrateTarget, "target", 0, "Version to roll back to (0 rolls back one step)")
}

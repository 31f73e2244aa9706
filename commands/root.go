package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/satheeshds/cdaplus/config"
	"github.com/satheeshds/cdaplus/db"
	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configFile string
	cfg        *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cdaplus",
	Short: "CDA+ dynamic fields service",
	Long: `Contract activity service with administrator-defined custom fields.

Contracts own a schema of dynamic fields (text, number, currency, date,
dropdown, multi-select). Activities logged against a contract carry values
for those fields, validated against the active schema.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return setupLogging(cfg.Logging.Level)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./cdaplus.yaml when present)")
}

// SetVersion sets the version for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// openRepo opens the configured storage backend and brings its schema up
// to date.
func openRepo(ctx context.Context) (db.Repository, error) {
	repo, err := db.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repo, nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"brokerage/internal/kyc"
	kycpostgres "brokerage/internal/kyc/store/postgres"
	"brokerage/internal/platform/config"
	"brokerage/internal/platform/postgres"
)

var Version = "dev"

// backend opens what a command needs. Tests swap it for in-memory stores.
type backend struct {
	migrate func(ctx context.Context) error
	kyc     func(ctx context.Context) (kyc.Store, func(), error)
}

func main() {
	if err := newRootCmd(postgresBackend()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(b backend) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "onboardctl",
		Short:         "Operator tooling for brokerage onboarding",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(migrateCmd(b))
	rootCmd.AddCommand(kycCmd(b))
	return rootCmd
}

func postgresBackend() backend {
	open := func(ctx context.Context) (*sql.DB, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return postgres.Open(ctx, cfg.Database)
	}
	return backend{
		migrate: func(ctx context.Context) error {
			db, err := open(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			return postgres.Migrate(ctx, db)
		},
		kyc: func(ctx context.Context) (kyc.Store, func(), error) {
			db, err := open(ctx)
			if err != nil {
				return nil, nil, err
			}
			return kycpostgres.New(db), func() { _ = db.Close() }, nil
		},
	}
}

func migrateCmd(b backend) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := b.migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

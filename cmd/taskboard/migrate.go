package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"taskboard/internal/config"
	"taskboard/internal/logger"
	"taskboard/internal/storage/sqlite"
)

func migrateCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the users, tasks and comments tables if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}

			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}

			store, err := sqlite.Open(cfg.DBPath, log)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", cfg.DBPath, err)
			}
			defer store.Close()

			log.Info("schema up to date", slog.String("db", cfg.DBPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to sqlite database file")
	return cmd
}

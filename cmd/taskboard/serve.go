package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskboard/internal/config"
	"taskboard/internal/logger"
	"taskboard/internal/pages"
	"taskboard/internal/server"
	"taskboard/internal/session"
	"taskboard/internal/storage/sqlite"
)

func serveCmd() *cobra.Command {
	var (
		addr        string
		dbPath      string
		templateURL string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the task tracker HTTP server.

Settings come from .env, the environment (TASKBOARD_*), and these flags.

Examples:
  taskboard serve
  taskboard serve --addr :8080 --db /var/lib/taskboard/tasks.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("template-url") {
				cfg.Pages.BaseURL = templateURL
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from TASKBOARD_ADDR or :8000)")
	cmd.Flags().StringVar(&dbPath, "db", "", "path to sqlite database file")
	cmd.Flags().StringVar(&templateURL, "template-url", "", "base URL to fetch page templates from")
	return cmd
}

func runServe(cfg config.Config) error {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	if cfg.Session.Generated {
		log.Warn("TASKBOARD_SESSION_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	store, err := sqlite.Open(cfg.DBPath, log)
	if err != nil {
		log.Error("unable to open database", slog.String("error", err.Error()))
		return err
	}
	defer store.Close()

	sessions, err := session.NewManager(session.Options{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.Secure,
	})
	if err != nil {
		return err
	}

	var source pages.Source = pages.EmbeddedSource{}
	if cfg.Pages.BaseURL != "" {
		source = pages.NewRemoteSource(cfg.Pages.BaseURL, cfg.Pages.Timeout)
		log.Info("fetching pages remotely", slog.String("base_url", cfg.Pages.BaseURL))
	}

	srv := server.New(store, sessions, pages.NewRenderer(source, log), log)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("db", cfg.DBPath))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	log.Info("server stopped")
	return nil
}

package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coursegate/coursegate/internal/config"
	"github.com/coursegate/coursegate/internal/server"
	"github.com/coursegate/coursegate/internal/store"
	"github.com/coursegate/coursegate/internal/token"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Coursegate API server",
		Long:  "Start the HTTP server that enforces the authorization boundary for the course platform.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (overrides config)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (overrides config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	return cmd
}

func runServe(cmd *cobra.Command, host string, port int, dev bool) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logger := newLogger(cfg.Logging.Level, dev)

	if cfg.Auth.Issuer == "" {
		return fmt.Errorf("auth.issuer is required (set COURSEGATE_AUTH_ISSUER)")
	}
	if cfg.Webhook.Secret == "" {
		logger.Warn("webhook.secret is empty; identity webhook will reject all events")
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store opened", "driver", cfg.Database.Driver)

	if err := st.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	keys := token.NewKeyCache(&http.Client{Timeout: 10 * time.Second}, token.DefaultTTL)
	verifier := token.NewVerifier(keys, cfg.Auth.Issuer)
	logger.Info("token verifier configured", "issuer", cfg.Auth.Issuer)

	srv := server.New(cfg, st, verifier, logger)
	return srv.ListenAndServe()
}

func newLogger(level string, dev bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if dev {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

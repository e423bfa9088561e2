// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the idp CLI, a command-line client
// for the intelligent document processing API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/idp-client/internal/api"
	"github.com/pdiddy/idp-client/internal/config"
	"github.com/pdiddy/idp-client/internal/logging"
	"github.com/pdiddy/idp-client/internal/metrics"
	"github.com/pdiddy/idp-client/internal/secrets"
	"github.com/pdiddy/idp-client/internal/session"
	"github.com/pdiddy/idp-client/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// v holds configuration from defaults, file, environment, and flags.
var v = config.New()

// env is the wiring shared by every command, built in PersistentPreRunE.
var env struct {
	cfg     types.Config
	client  *api.Client
	metrics *metrics.Metrics
	secrets secrets.Set
	manager *session.Manager
}

// rootCmd is the base command for the idp CLI.
var rootCmd = &cobra.Command{
	Use:   "idp",
	Short: "Command-line client for the intelligent document processing API",
	Long: `idp talks to the document processing backend: sign in, upload PDF files,
watch their classification and embedding status, list documents with dashboard
statistics, and run semantic search over the processed collection.

Settings come from idp.yaml (./ or ~/.config/idp/), a .env file, and IDP_*
environment variables. Credentials may also be placed in .secrets/.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./idp.yaml or ~/.config/idp/idp.yaml)")
	pf.String("api-url", "", "backend API root (default http://localhost:8000/api/v1)")
	pf.String("log-level", "", "diagnostic log level: debug, info, warn, error")
	pf.String("log-format", "", "diagnostic log format: text or json")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	bindFlag(config.KeyBaseURL, "api-url")
	bindFlag(config.KeyLogLevel, "log-level")
	bindFlag(config.KeyLogFormat, "log-format")
	bindFlag(config.KeyMetricsAddr, "metrics-addr")
}

func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// setup loads configuration and wires the client, session, and metrics
// into the command context.
func setup(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, used, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level))
	if used != "" {
		slog.Debug("config loaded", "path", used)
	}

	s, err := secrets.Load(secrets.DefaultDir)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		slog.Debug("secrets loaded", "keys", s.Keys())
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(cmd.Context(), cfg.MetricsAddr); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	client, err := api.New(cfg.API,
		api.WithMetrics(m),
		api.WithUploadLimit(cfg.Upload.RateLimit, cfg.Upload.RateWindow),
	)
	if err != nil {
		return err
	}

	store, err := session.OpenStore(cfg.Session)
	if err != nil {
		return err
	}
	mgr, err := session.NewManager(store, client, session.WithLogoutTimeout(cfg.Session.LogoutTimeout))
	if err != nil {
		store.Close()
		return err
	}
	client.SetTokenSource(mgr)

	env.cfg, env.client, env.metrics, env.secrets, env.manager = cfg, client, m, s, mgr
	cmd.SetContext(session.NewContext(cmd.Context(), mgr))
	return nil
}

func teardown() error {
	if env.manager == nil {
		return nil
	}
	err := env.manager.Close()
	env.manager = nil
	return err
}

// requireSession returns the session manager and fails when nobody is
// logged in.
func requireSession(ctx context.Context) (*session.Manager, error) {
	mgr := session.FromContext(ctx)
	if !mgr.IsAuthenticated() {
		return nil, errors.New("not logged in: run `idp login` first")
	}
	return mgr, nil
}

// checkAuth drops the local session when the backend rejected the token,
// so the next command asks for a fresh login.
func checkAuth(ctx context.Context, err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		session.FromContext(ctx).Invalidate()
		return fmt.Errorf("%s: session expired, run `idp login` again", api.Message(err, ""))
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	teardown()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", api.Message(err, ""))
		os.Exit(1)
	}
}

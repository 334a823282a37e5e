// Command serverbrowser runs the multiplayer server browser service: it
// discovers and tracks game servers, persists the manual host list, and
// serves the list, search and live change events over a local HTTP
// endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"serverbrowser-go/internal/browser"
	"serverbrowser-go/internal/config"
	"serverbrowser-go/internal/content"
	"serverbrowser-go/internal/events"
	"serverbrowser-go/internal/index"
	"serverbrowser-go/internal/logs"
	"serverbrowser-go/internal/query"
	"serverbrowser-go/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serverbrowser",
		Short: "Multiplayer game server browser service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "path to config file (optional)")
	flags.String("data-dir", "", "data directory for database and search index")
	flags.String("listen", "", "HTTP listen address")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("revision", "", "local game release version")
	flags.Bool("search-lan", true, "broadcast a LAN discovery probe on startup")

	viper.SetEnvPrefix("SERVERBROWSER")
	viper.AutomaticEnv()
	for _, name := range []string{"config", "data-dir", "listen", "log-level", "revision", "search-lan"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	return cmd
}

func loadConfig() (*config.Config, *config.Loader, error) {
	var (
		cfg    *config.Config
		loader *config.Loader
		err    error
	)

	if path := viper.GetString("config"); path != "" {
		loader, err = config.NewLoader(path, zap.NewNop())
		if err != nil {
			return nil, nil, err
		}
		cfg, err = loader.Load()
		if err != nil {
			return nil, nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Flags and environment override the file.
	if v := viper.GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v := viper.GetString("listen"); v != "" {
		cfg.Listen = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := viper.GetString("revision"); v != "" {
		cfg.Revision = v
	}

	return cfg, loader, cfg.Validate()
}

func run(cmd *cobra.Command) error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logs.Setup(&cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	store, err := storage.NewManager(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	catalog, err := content.NewCatalog(store, logger)
	if err != nil {
		return err
	}

	idx, err := index.NewManager(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	defer idx.Close()

	bus := events.NewBus()
	defer bus.Close()

	// The UDP client needs the session's list and the scheduler needs the
	// client; the indirection breaks the construction cycle. The querier is
	// bound before the tick loop starts.
	querier := &deferredQuerier{}
	session := browser.New(browser.Options{
		Config:  cfg,
		Querier: querier,
		Catalog: catalog,
		Store:   store,
		Index:   idx,
		Bus:     bus,
		Logger:  logger,
	})

	client, err := query.NewClient(session.List(), catalog, cfg.Revision, cfg.GamePort, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	querier.inner = client

	if loader != nil {
		if err := loader.StartWatching(func(updated *config.Config) error {
			session.ApplyConfig(updated)
			return nil
		}); err != nil {
			logger.Warn("Config watching disabled", zap.Error(err))
		}
		defer loader.Stop() //nolint:errcheck
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := browser.NewWSHub(bus, logger)
	defer hub.Stop()

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           browser.NewHandler(session, hub, idx, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP endpoint listening", zap.String("addr", cfg.Listen))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	if viper.GetBool("search-lan") {
		client.SearchLAN()
	}

	err = session.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// deferredQuerier lets the session be constructed before the UDP client,
// which needs the session's list. Queries issued before the client is bound
// are dropped; the scheduler re-issues them next window.
type deferredQuerier struct {
	inner *query.Client
}

func (d *deferredQuerier) QueryServer(address string) {
	if d.inner != nil {
		d.inner.QueryServer(address)
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/uwscloud/fabric/pkg/api"
	"github.com/uwscloud/fabric/pkg/billing"
	"github.com/uwscloud/fabric/pkg/config"
	"github.com/uwscloud/fabric/pkg/containers"
	"github.com/uwscloud/fabric/pkg/launcher"
	"github.com/uwscloud/fabric/pkg/log"
	"github.com/uwscloud/fabric/pkg/metrics"
	"github.com/uwscloud/fabric/pkg/reconciler"
	"github.com/uwscloud/fabric/pkg/registry"
	"github.com/uwscloud/fabric/pkg/router"
	"github.com/uwscloud/fabric/pkg/scheduler"
	"github.com/uwscloud/fabric/pkg/storage"
	"github.com/uwscloud/fabric/pkg/terminal"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fabric",
	Short: "Fabric - multi-tenant cloud fabric control plane",
	Long: `Fabric is the control plane of a small cloud: it registers worker
nodes, tracks their liveness, places containers and managed services
(bucket, SQL, NoSQL, queue, secrets) on them, routes data-plane
requests to the right instance and keeps unhealthy services restarted.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Fabric version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	serverCmd.Flags().String("config", "", "Path to YAML config file")
	serverCmd.Flags().String("listen", "", "Listen address (overrides config)")
	serverCmd.Flags().String("db", "", "Catalog database path (overrides config)")

	rootCmd.AddCommand(serverCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the control-plane server",
	Long: `Run the HTTP front door together with the background loops:
node liveness, service health and restart, and usage accounting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		listen, _ := cmd.Flags().GetString("listen")
		dbPath, _ := cmd.Flags().GetString("db")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if listen != "" {
			cfg.ListenAddr = listen
		}
		if dbPath != "" {
			cfg.DatabasePath = dbPath
		}

		return runServer(cfg)
	},
}

func runServer(cfg *config.Config) error {
	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
	logger := log.WithComponent("server")

	metrics.SetVersion(Version)

	store, err := storage.NewBoltStore(cfg.DatabasePath)
	if err != nil {
		metrics.ReportComponent(metrics.ComponentCatalog, false, err.Error())
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer store.Close()
	metrics.ReportComponent(metrics.ComponentCatalog, true, "")

	dispatcher := scheduler.NewDispatcher(store, cfg.NodeAuthToken)

	nodeRegistry := registry.NewRegistry(store)
	nodeRegistry.Start()
	defer nodeRegistry.Stop()
	metrics.ReportComponent(metrics.ComponentLiveness, true, "")

	collector := metrics.NewCollector(store)
	collector.Start()
	defer collector.Stop()

	serviceReconciler := reconciler.NewReconciler(store, cfg.NodeAuthToken)
	serviceReconciler.Start()
	defer serviceReconciler.Stop()
	metrics.ReportComponent(metrics.ComponentReconciler, true, "")

	accountant := billing.NewAccountant(store)
	accountant.Start()
	defer accountant.Stop()
	metrics.ReportComponent(metrics.ComponentAccountant, true, "")

	server := api.NewServer(api.Deps{
		Store:      store,
		Registry:   nodeRegistry,
		Dispatcher: dispatcher,
		Containers: containers.NewManager(store, cfg.NodeAuthToken, dispatcher),
		Launcher:   launcher.NewLauncher(store, dispatcher),
		Router:     router.NewRouter(store, cfg.NodeAuthToken, cfg.SQLSigningKey),
		Terminal:   terminal.NewProxy(store),
		Billing:    accountant,
		RateLimit:  cfg.RateLimit,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("front door listening")
		metrics.ReportComponent(metrics.ComponentFrontDoor, true, "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			metrics.ReportComponent(metrics.ComponentFrontDoor, false, err.Error())
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

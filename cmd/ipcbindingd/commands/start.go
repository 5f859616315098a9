package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/marmos91/ara-ipcbinding/internal/config"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/accesscontrol"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/binding"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/transport"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/tp"
	"github.com/marmos91/ara-ipcbinding/internal/logger"
	"github.com/marmos91/ara-ipcbinding/internal/metrics"
	metricsprom "github.com/marmos91/ara-ipcbinding/internal/metrics/prometheus"
	"github.com/marmos91/ara-ipcbinding/internal/telemetry"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ara-ipcbinding daemon",
	Long: `Start the ara-ipcbinding daemon: load configuration, initialize logging,
telemetry and metrics, bring up a Unix-socket Server for every configured
service instance, and block until an interrupt or termination signal
triggers a graceful shutdown.

Examples:
  ipcbindingd start
  ipcbindingd start --config /etc/ara-ipcbinding/config.yaml
  IPCBINDING_LOGGING_LEVEL=DEBUG ipcbindingd start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "ara-ipcbinding",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "ara-ipcbinding",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("initializing profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("ara-ipcbinding starting",
		"processing_mode", cfg.ProcessingMode,
		"instances", len(cfg.Instances))

	reg := metrics.InitRegistry(cfg.Metrics.Enabled)
	bindingMetrics := metricsprom.NewBindingMetrics()

	var metricsServer *http.Server
	if reg != nil {
		metricsServer = startMetricsServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	lcm := binding.New(binding.Config{
		ReactorQueueDepth: cfg.ReactorQueueDepth,
		AcceptorFactory:   unixAcceptorFactory,
		Access:            accesscontrol.AllowAll,
		Audit:             accesscontrol.LoggingAuditSink{},
		Metrics:           bindingMetrics,
		TP:                tpMapping(cfg, bindingMetrics),
	})
	lcm.Start(ctx)

	for _, inst := range cfg.Instances {
		id := inst.Identifier()
		backend := &unroutedBackend{id: id.ServiceInstanceIdentifier}
		if err := lcm.OfferService(inst.Address(), id, inst.IntegrityLevel, backend); err != nil {
			lcm.Stop()
			return fmt.Errorf("offering %s on %s: %w", id, inst.Address(), err)
		}
		logger.Info("service instance offered", "instance", id.String(), "address", inst.Address().String())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("ara-ipcbinding running, press Ctrl+C to stop")
	<-sigChan
	signal.Stop(sigChan)
	logger.Info("shutdown signal received, stopping")

	lcm.Stop()
	logger.Info("ara-ipcbinding stopped")
	return nil
}

// unixAcceptorFactory maps an IpcUnicastAddress to a Unix-domain-socket
// transport.Acceptor listening at a path derived from the address's
// (Domain, Port) pair, under the daemon's runtime directory.
func unixAcceptorFactory(addr message.IpcUnicastAddress) (transport.Acceptor, error) {
	dir := runtimeDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating runtime directory %q: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d-%d.sock", addr.Domain, addr.Port))
	return transport.NewUnixListener(path), nil
}

func runtimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "ara-ipcbinding")
	}
	return filepath.Join(os.TempDir(), "ara-ipcbinding")
}

func tpMapping(cfg *config.Config, m metrics.BindingMetrics) *tp.Mapping {
	table := cfg.TP.AssemblerTable()
	if len(table) == 0 {
		return nil
	}
	return tp.NewMapping(table, cfg.TP.SharedArena(), m)
}

// startMetricsServer serves the Prometheus registry on /metrics in the
// background, grounded on the teacher's pkg/metrics HTTP-server pattern.
func startMetricsServer(port int, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("metrics server listening", "port", port)
	return srv
}

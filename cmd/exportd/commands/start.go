package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/go-nfsd/exportd/internal/config"
	"github.com/go-nfsd/exportd/internal/dispatch"
	"github.com/go-nfsd/exportd/internal/fsal/local"
	"github.com/go-nfsd/exportd/internal/fsal/readonly"
	"github.com/go-nfsd/exportd/internal/logger"
	"github.com/go-nfsd/exportd/internal/metrics"
	mounthandlers "github.com/go-nfsd/exportd/internal/mount/handlers"
	"github.com/go-nfsd/exportd/internal/nfs3"
	nfs3handlers "github.com/go-nfsd/exportd/internal/nfs3/handlers"
	"github.com/go-nfsd/exportd/internal/nfs3/handle"
	"github.com/go-nfsd/exportd/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the exportd server",
	Long: `Start the exportd NFSv3/MOUNTv3 server using the given configuration.

Runs in the foreground; use a process supervisor (systemd, runit) to
manage it as a daemon.

Examples:
  exportd start --config /etc/exportd/config.yaml
  EXPORTD_LISTEN_PORT=3049 exportd start --config /etc/exportd/config.yaml`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("exportd starting", "version", Version, "export", cfg.Export.Path, "listen", cfg.Addr())

	backend, err := local.New(cfg.Export.Path)
	if err != nil {
		return fmt.Errorf("failed to open export path: %w", err)
	}
	fs := readonly.Wrap(backend, cfg.Export.ReadOnly)
	if cfg.Export.ReadOnly {
		logger.Info("export is read-only")
	}

	rootAttr, err := fs.GetAttr(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to stat export root: %w", err)
	}

	handles := handle.New()
	rootHandle := handles.HandleFor(nfs3.TypeDir, rootAttr.FileID, "")

	nfs := nfs3handlers.New(fs, handles)
	mnt := mounthandlers.New(cfg.Export.Name, rootHandle, cfg.Export.Groups)
	disp := dispatch.New(nfs, mnt)

	var metric *metrics.Metrics
	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metric = metrics.New()
		metricsSrv = metrics.NewServer(cfg.MetricsAddr(), metric)
		logger.Info("metrics enabled", "address", cfg.MetricsAddr())
	} else {
		logger.Info("metrics disabled")
	}

	srv := server.New(server.Config{
		Addr:            cfg.Addr(),
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, disp, metric)

	serverDone := make(chan error, 1)
	go func() { serverDone <- srv.Serve(ctx) }()

	metricsDone := make(chan error, 1)
	if metricsSrv != nil {
		go func() { metricsDone <- metricsSrv.Serve(ctx) }()
	} else {
		metricsDone <- nil
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("exportd is running, press Ctrl+C to stop")

	select {
	case <-sigCh:
		signal.Stop(sigCh)
		logger.Info("shutdown signal received, draining connections")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
			<-metricsDone
			return err
		}
		<-metricsDone
		logger.Info("exportd stopped gracefully")
	case err := <-serverDone:
		signal.Stop(sigCh)
		cancel()
		<-metricsDone
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("exportd stopped")
	}

	return nil
}

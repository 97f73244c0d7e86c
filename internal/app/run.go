package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

const shutdownTimeout = 5 * time.Second

// runDaemon starts the gateway and the side servers and blocks until the
// context is cancelled or a termination signal arrives, then drains
// everything in reverse start order.
func runDaemon(parent context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := services.Gateway.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}
	logging.Info("Daemon", "Gateway available at %s", services.Gateway.GetEndpoint())

	group, groupCtx := errgroup.WithContext(ctx)

	if services.MetricsServer != nil {
		group.Go(func() error {
			if err := services.MetricsServer.Start(); err != nil {
				return fmt.Errorf("failed to start metrics server: %w", err)
			}
			<-groupCtx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return services.MetricsServer.Stop(stopCtx)
		})
	}

	if err := services.PricingWatcher.Start(); err != nil {
		// Live pricing reload is a convenience; a broken watcher must
		// not take the gateway down with it.
		logging.Warn("Daemon", "Pricing watcher not started: %v", err)
	}

	notifySystemd(daemon.SdNotifyReady)
	logging.Info("Daemon", "Startup complete. Press Ctrl+C to stop.")

	<-groupCtx.Done()

	notifySystemd(daemon.SdNotifyStopping)
	logging.Info("Daemon", "Shutting down...")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := services.Gateway.Stop(stopCtx); err != nil {
		logging.Warn("Daemon", "Gateway shutdown: %v", err)
	}

	err := group.Wait()
	services.Close()
	logging.Info("Daemon", "Shutdown complete")
	return err
}

// notifySystemd reports daemon state when running under systemd with
// Type=notify. A missing notification socket is the normal case outside
// systemd and is ignored.
func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Debug("Daemon", "systemd notification failed: %v", err)
		return
	}
	if sent {
		logging.Debug("Daemon", "Notified systemd: %s", state)
	}
}

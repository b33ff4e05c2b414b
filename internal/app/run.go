package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"adbforward/internal/adb"
	"adbforward/internal/bootstrap"
	"adbforward/internal/config"
	"adbforward/pkg/logging"
)

// For mocking in tests
var (
	prepareServer = ensureServer
	notifySignals = func(ctx context.Context) (context.Context, context.CancelFunc) {
		return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	}
)

// runService makes sure an adb server is reachable, then runs the watcher,
// dispatcher and output drain until ctx is done or one of them fails.
func runService(ctx context.Context, cfg *Config, services *Services) error {
	ctx, stop := notifySignals(ctx)
	defer stop()

	version, err := prepareServer(ctx, services.Client, cfg.AdbforwardConfig.ADB)
	if err != nil {
		return err
	}
	logging.Info("Service", "ADB server %s is up (protocol version %d)", services.Client.Addr(), version)
	logging.Info("Service", "Forwarding %v for products %v", cfg.AdbforwardConfig.ForwardPorts, services.AllowList.Products())

	events := make(chan adb.Event)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return services.Watcher.Run(gctx, events)
	})
	g.Go(func() error {
		return services.Dispatcher.Run(gctx, events)
	})
	g.Go(func() error {
		return services.Drain.Run(gctx, cfg.AdbforwardConfig.FlushInterval())
	})

	err = g.Wait()
	services.Drain.Flush()
	stats := services.Drain.Stats()
	logging.Debug("Service", "Command output: %d lines queued, %d written, %d pending", stats.Enqueued, stats.Flushed, stats.Pending)
	logging.Info("Service", "Stopped")
	return err
}

// ensureServer connects to the adb server. When none answers it fetches the
// platform-tools next to the executable if needed and starts one.
func ensureServer(ctx context.Context, client *adb.Client, settings config.ADBSettings) (int, error) {
	version, err := client.Connect(ctx)
	if err == nil {
		return version, nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if settings.SkipDownload {
		return 0, fmt.Errorf("no adb server at %s and tool download is disabled: %w", client.Addr(), err)
	}
	logging.Info("Service", "No adb server at %s, starting one", client.Addr())

	layout, err := resolveLayout(settings)
	if err != nil {
		return 0, err
	}
	if _, err := bootstrap.EnsureTools(ctx, layout, bootstrap.NewHTTPClient()); err != nil {
		return 0, fmt.Errorf("failed to acquire adb: %w", err)
	}
	if err := bootstrap.StartServer(ctx, layout.ADBPath); err != nil {
		return 0, err
	}

	version, err = client.Connect(ctx)
	if err != nil {
		return 0, fmt.Errorf("adb server did not come up at %s: %w", client.Addr(), err)
	}
	return version, nil
}

// resolveLayout places the tools directory next to the running binary.
func resolveLayout(settings config.ADBSettings) (bootstrap.Layout, error) {
	base, err := bootstrap.ExecutableDir()
	if err != nil {
		return bootstrap.Layout{}, err
	}
	return bootstrap.Resolve(runtime.GOOS, base, settings)
}

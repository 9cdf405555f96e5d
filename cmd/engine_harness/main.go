package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/chartbridge/internal/browser"
	"github.com/dgnsrekt/chartbridge/internal/config"
	"github.com/dgnsrekt/chartbridge/internal/host"
)

// engine_harness drives the bridge's engine pages in a local Chromium so the
// full attach/tick/layout cycle can be exercised without a mobile WebView.
func main() {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		slog.Debug("log directory creation failed", "error", err)
	}

	logWriter := &lumberjack.Logger{
		Filename:   "logs/engine_harness.log",
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(handler))

	cfg, err := config.LoadHarness()
	if err != nil {
		slog.Error("failed to load harness config", "error", err)
		os.Exit(1)
	}
	slog.Info("engine_harness config loaded",
		"cdp_url", cfg.CDPURL(),
		"bridge_url", cfg.BridgeURL,
		"headless", cfg.Headless,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	launcher := browser.NewLauncher(browser.Config{
		CDPAddress: cfg.CDPAddress,
		CDPPort:    cfg.CDPPort,
		ProfileDir: "./harness_profile",
		Headless:   cfg.Headless,
	})
	if err := launcher.Launch(ctx); err != nil {
		slog.Error("failed to launch browser", "error", err)
		os.Exit(1)
	}
	defer launcher.Stop()

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, cfg.CDPURL())
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()
	if err := chromedp.Run(browserCtx); err != nil {
		slog.Error("failed to connect to browser", "cdp_url", cfg.CDPURL(), "error", err)
		os.Exit(1)
	}

	for _, instance := range []string{host.InstanceSmall, host.InstanceFull} {
		pageCtx, pageCancel := chromedp.NewContext(browserCtx)
		defer pageCancel()

		url := cfg.BridgeURL + "/engine?instance=" + instance
		navCtx, navCancel := context.WithTimeout(pageCtx, 30*time.Second)
		if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
			navCancel()
			slog.Error("failed to open engine page", "instance", instance, "url", url, "error", err)
			os.Exit(1)
		}
		navCancel()
		slog.Info("engine page opened", "instance", instance, "url", url)
	}

	targets, err := chromedp.Targets(browserCtx)
	if err != nil {
		slog.Warn("failed to enumerate targets", "error", err)
	} else {
		slog.Info("harness running", "pages", countPages(targets))
	}
	slog.Info("Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("harness stopped")
}

func countPages(targets []*target.Info) int {
	pages := 0
	for _, t := range targets {
		if t.Type == "page" {
			pages++
			slog.Debug("browser target", "target_id", t.TargetID, "url", t.URL)
		}
	}
	return pages
}

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/chartbridge/internal/api"
	"github.com/dgnsrekt/chartbridge/internal/assets"
	"github.com/dgnsrekt/chartbridge/internal/config"
	"github.com/dgnsrekt/chartbridge/internal/controller"
	"github.com/dgnsrekt/chartbridge/internal/host"
	"github.com/dgnsrekt/chartbridge/internal/layoutstore"
	"github.com/dgnsrekt/chartbridge/internal/netutil"
	"github.com/dgnsrekt/chartbridge/internal/notify"
	"github.com/dgnsrekt/chartbridge/internal/pricefeed"
	"github.com/dgnsrekt/chartbridge/internal/relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("chart_bridge config loaded",
		"bind_addr", cfg.BindAddr,
		"default_symbol", cfg.DefaultSymbol,
		"default_theme", cfg.DefaultTheme,
		"data_dir", cfg.DataDir,
		"asset_origin", cfg.AssetOrigin,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.FallbackAddrs, true)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	store, err := layoutstore.Open(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open layout store", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Debug("layout store close failed", "error", err)
		}
	}()

	broker := relay.NewBroker()
	tracker := pricefeed.NewTracker()
	notifier := notify.New(cfg.NotifyEndpoint, nil)

	delays := host.Delays{
		ApplySettle: cfg.ApplySettle,
		ModalMount:  cfg.ModalMount,
		ModalClose:  cfg.ModalClose,
	}
	chartHost := host.New(store, tracker, broker, notifier, cfg.DefaultSymbol, cfg.DefaultTheme, delays)
	defer chartHost.Close()

	cache := assets.NewCache(assets.HTTPFetcher(cfg.AssetOrigin, nil))
	bootstrap := func(instance string) assets.Bootstrap {
		snap := chartHost.State()
		return assets.Bootstrap{
			Instance: instance,
			Symbol:   snap.Symbol,
			Theme:    snap.Theme,
			FastLoad: instance == host.InstanceSmall,
		}
	}

	svc := controller.NewService(chartHost)
	h := api.NewServer(svc, broker, api.EngineMounts{
		Page:    assets.PageHandler(cache, bootstrap),
		Assets:  assets.AssetHandler(cache, "/engine/assets"),
		Gateway: host.GatewayHandler(chartHost),
	})

	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("chart_bridge listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("chart_bridge server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("chart_bridge shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}

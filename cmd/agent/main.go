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

	"github.com/dgnsrekt/pagepulse/internal/agent"
	"github.com/dgnsrekt/pagepulse/internal/api"
	"github.com/dgnsrekt/pagepulse/internal/browser"
	"github.com/dgnsrekt/pagepulse/internal/config"
	"github.com/dgnsrekt/pagepulse/internal/dispatch"
	"github.com/dgnsrekt/pagepulse/internal/livetail"
	"github.com/dgnsrekt/pagepulse/internal/netutil"
	"github.com/dgnsrekt/pagepulse/internal/sink"
	"github.com/dgnsrekt/pagepulse/internal/spool"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		slog.Debug("log directory creation failed", "error", err)
	}

	logWriter := &lumberjack.Logger{
		Filename:   "logs/agent.log",
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Autocapture.DebugLog {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	slog.Info("Starting PagePulse capture agent")
	slog.Info("Configuration loaded",
		"cdp_address", cfg.CDPAddress,
		"cdp_port", cfg.CDPPort,
		"tab_url_filter", cfg.TabURLFilter,
		"collector_url", cfg.CollectorURL,
		"app_id", cfg.AppID,
		"capture_clicks", cfg.Autocapture.Clicks,
		"capture_page_views", cfg.Autocapture.PageViews,
		"sampling_rate", cfg.Autocapture.SamplingRate,
		"max_events_per_session", cfg.Autocapture.MaxEventsPerSession,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if cfg.LaunchBrowser {
		launcher := browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.BrowserStartURL,
			ProfileDir: cfg.BrowserProfileDir,
		})
		if err := launcher.Launch(ctx); err != nil {
			slog.Error("Failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer launcher.Stop()
	}

	broker := livetail.NewBroker()

	var side []sink.Transport
	side = append(side, broker)
	var spoolWriter *spool.Writer
	if cfg.SpoolEnabled {
		spoolWriter, err = spool.NewWriter(cfg.SpoolDir, cfg.SpoolBuffer, cfg.SpoolMaxMB)
		if err != nil {
			slog.Error("Failed to open event spool", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := spoolWriter.Close(); err != nil {
				slog.Warn("Spool close failed", "error", err)
			}
		}()
		side = append(side, spoolWriter)
	}

	collector := sink.NewCollector(cfg.CollectorURL, &http.Client{Timeout: 10 * time.Second})
	adapter := sink.NewAdapter(sink.Tags{AppID: cfg.AppID, UserID: cfg.UserID}, collector, side...)
	gate := dispatch.NewGate(cfg.Autocapture, adapter)

	ag := agent.New(cfg, gate, broker)
	if err := ag.Start(ctx); err != nil {
		slog.Error("Failed to start capture agent", "error", err)
		slog.Info("Make sure Chromium is running with remote debugging enabled")
		os.Exit(1)
	}
	defer ag.Stop()

	bindAddr, err := netutil.PickControlAddr(cfg.ControlBindAddr, 3)
	if err != nil {
		slog.Error("No control API bind address available", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:    bindAddr,
		Handler: api.NewServer(ag, livetail.Handler(broker)),
	}
	go func() {
		slog.Info("Control API listening", "addr", bindAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Control API server failed", "error", err)
		}
	}()

	<-sigCh
	slog.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Control API shutdown failed", "error", err)
	}
}

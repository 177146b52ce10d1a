package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nixlim/tooltop/internal/client"
	"github.com/nixlim/tooltop/internal/config"
	"github.com/nixlim/tooltop/internal/dashboard"
	"github.com/nixlim/tooltop/internal/logging"
	"github.com/nixlim/tooltop/internal/refresh"
	"github.com/nixlim/tooltop/internal/tui"
)

func main() {
	configFlag := flag.String("config", "", "Path to config.toml (default ~/.config/tooltop/config.toml)")
	urlFlag := flag.String("url", "", "Stats endpoint to poll, overrides client.stats_url")
	serveFlag := flag.Bool("serve", false, "Run the stats server instead of the dashboard")
	debugFlag := flag.String("debug", "", "With -serve, write received OTLP usage (JSONL) to the specified file path")
	flag.Parse()

	cfg := loadConfig(*configFlag)
	if *urlFlag != "" {
		cfg.Client.StatsURL = *urlFlag
	}

	if *serveFlag {
		os.Exit(runServe(cfg, *debugFlag))
	}
	os.Exit(runDashboard(cfg))
}

func loadConfig(path string) config.Config {
	var (
		loadResult *config.LoadResult
		err        error
	)
	if path != "" {
		loadResult, err = config.LoadFrom(config.ExpandTilde(path))
	} else {
		loadResult, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "tooltop: config error: %v\n", err)
		os.Exit(1)
	}
	for _, w := range loadResult.Warnings {
		fmt.Fprintf(os.Stderr, "tooltop: config warning: %s\n", w)
	}
	return loadResult.Config
}

func runDashboard(cfg config.Config) int {
	logger, err := logging.New(cfg.Logging, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tooltop: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	locale, err := dashboard.LocaleFor(cfg.Display.Locale)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tooltop: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	log.SetOutput(io.Discard)

	statsClient := client.New(cfg.Client.StatsURL)
	sched := refresh.New(statsClient,
		refresh.WithInterval(time.Duration(cfg.Client.RefreshIntervalMS)*time.Millisecond),
		refresh.WithMinVisible(time.Duration(cfg.Client.RefreshingMinMS)*time.Millisecond),
		refresh.WithContext(ctx),
	)

	model := tui.NewModel(cfg,
		tui.WithScheduler(sched),
		tui.WithLogger(logger),
		tui.WithLocale(locale),
		tui.WithSource(statsClient.URL()),
	)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
	)

	go func() {
		select {
		case <-sigCh:
			cancel()
			p.Quit()
		case <-ctx.Done():
		}
	}()

	logger.Info("dashboard started",
		zap.String("url", statsClient.URL()),
		zap.Int("interval_ms", cfg.Client.RefreshIntervalMS),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tooltop: %v\n", err)
		return 1
	}
	return 0
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"command-agent/agent/internal/broadcast"
	"command-agent/agent/internal/collector"
	"command-agent/agent/internal/command"
	"command-agent/agent/internal/config"
	"command-agent/agent/internal/controller"
	"command-agent/agent/internal/db"
	"command-agent/agent/internal/handlers"
	"command-agent/agent/internal/identity"
	"command-agent/agent/internal/logger"
	"command-agent/agent/internal/poller"
	"command-agent/agent/internal/reporter"
	"command-agent/agent/internal/workerpool"
)

const journalRetention = 7 * 24 * time.Hour

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg := config.Init(*cfgPath)
	if err := logger.Init(cfg.LogPath, cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "Cannot open log file:", err)
		os.Exit(1)
	}
	config.Watch(func(c config.AppConfig) {
		logger.SetLevel(c.LogLevel)
		logger.Infof("Config reloaded, log level=%s", c.LogLevel)
	})

	started := time.Now()
	ident := identity.New(identity.HostSource{}, cfg.DeviceID, started)
	logger.Infof("Agent starting, device=%s controller=%s", ident.ID(), cfg.ControllerURL)

	// the journal is optional: without it results are still reported
	var (
		recorder reporter.Recorder
		history  handlers.HistoryReader
	)
	if gdb, err := db.Open(cfg.DBDriver, cfg.DBPath); err != nil {
		logger.Warnf("Result journal disabled: %v", err)
	} else {
		journal := db.NewJournal(gdb)
		if n, err := journal.Prune(started.Add(-journalRetention)); err != nil {
			logger.Warnf("Journal prune failed: %v", err)
		} else if n > 0 {
			logger.Infof("Pruned %d old journal rows", n)
		}
		recorder, history = journal, journal
	}

	client := controller.New(cfg.ControllerURL, &http.Client{})

	// batches, reports and transfers each get a pool: a batch waiting to queue a
	// report never holds the slot the report needs, and long transfers never
	// starve reports
	dispatchPool := workerpool.New(cfg.Workers)
	reportPool := workerpool.New(cfg.Workers)
	transferPool := workerpool.New(cfg.Workers)

	var bc broadcast.Broadcaster = broadcast.Log{}
	if cfg.RedisAddr != "" {
		rb := broadcast.NewRedis(cfg.RedisAddr, cfg.RedisChannel)
		defer rb.Close()
		bc = rb
	}

	reg := command.NewRegistry()
	handlers.Register(reg, handlers.Deps{
		DeviceID:        ident.ID,
		Pool:            transferPool,
		Clipboard:       handlers.SystemClipboard{},
		Uploader:        client,
		Collector:       collector.New(ident.ID, client, started),
		Broadcaster:     bc,
		History:         history,
		HTTPClient:      &http.Client{},
		DownloadDir:     cfg.DownloadDir,
		LogPath:         cfg.LogPath,
		ShellTimeout:    cfg.ShellTimeout,
		TransferTimeout: cfg.TransferTimeout,
	})
	logger.Infof("Registered handlers: %v", reg.Names())

	rep := reporter.New(ident.ID, client, recorder, reportPool, cfg.ReportTimeout)
	dispatcher := command.NewDispatcher(reg, rep, cfg.HandlerTimeout)
	p := poller.New(client, dispatcher, dispatchPool, ident.ID, poller.Options{
		Interval:     cfg.PollInterval,
		FetchTimeout: cfg.FetchTimeout,
	})
	if err := p.Start(); err != nil {
		logger.Errorf("Cannot start polling: %v", err)
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutdown signal received, draining...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		logger.Warnf("Polling shutdown: %v", err)
	}
	if err := reportPool.Close(ctx); err != nil {
		logger.Warnf("Pending reports abandoned: %v", err)
	}
	if err := transferPool.Close(ctx); err != nil {
		logger.Warnf("Background transfers abandoned: %v", err)
	}
	logger.Info("Agent stopped")
}

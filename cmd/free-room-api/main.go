package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JLsquare/free-room-api/internal/config"
	"github.com/JLsquare/free-room-api/internal/feed"
	applog "github.com/JLsquare/free-room-api/internal/log"
	"github.com/JLsquare/free-room-api/internal/refresh"
	"github.com/JLsquare/free-room-api/internal/rooms"
	"github.com/JLsquare/free-room-api/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	// Optional .env for LOG_LEVEL and friends; absence is not an error.
	_ = godotenv.Load()

	applog.Info("free-room-api starting")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		applog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides the config file if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	applog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"resource_count", len(conf.Resources),
		"window_weeks_past", conf.PastWeeks,
		"window_weeks_future", conf.FutureWeeks,
		"once", flags.once,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		applog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	catalog := rooms.NewCatalog()
	fetcher := feed.NewFetcher(conf.FeedURL, conf.CacheDir,
		time.Duration(conf.FetchTimeoutSeconds)*time.Second)
	coordinator := refresh.NewCoordinator(catalog,
		&refresh.FeedIngestor{Fetcher: fetcher},
		conf.Resources, conf.PastWeeks, conf.FutureWeeks)

	if flags.once {
		coordinator.RunPass(ctx)
		applog.Info("single pass done, exiting")
		return
	}

	cr, err := coordinator.Start(ctx, conf.RefreshCron)
	if err != nil {
		applog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	defer cr.Stop()

	server, err := web.NewServer(conf, catalog)
	if err != nil {
		applog.Error("failed to build server", err)
		os.Exit(1)
	}

	if err := server.Run(ctx); err != nil {
		applog.Error("http server stopped", err)
		os.Exit(1)
	}

	applog.Info("free-room-api exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh pass and exit")

	flag.Parse()

	return cfg
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uaoagenda/internal/catalog"
	"uaoagenda/internal/config"
	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/metrics"
	"uaoagenda/internal/rewards"
	"uaoagenda/internal/session"
	"uaoagenda/internal/share"
	"uaoagenda/internal/storage"
	"uaoagenda/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	dump       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	defer appLog.Sync()

	appLog.Info("uaoagenda starting", "version", version)

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"catalog_url", conf.Catalog.URL != "",
		"catalog_file", conf.Catalog.File,
		"catalog_refresh", conf.Catalog.Refresh,
		"storage", conf.Storage.Backend,
		"once", flags.once,
		"dump", flags.dump,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	fetcher := catalog.NewFetcher(conf.Catalog.CacheDir, time.Duration(conf.Catalog.TimeoutSeconds)*time.Second)
	cat := catalog.New(fetcher, catalog.Source{URL: conf.Catalog.URL, File: conf.Catalog.File}, m)
	n := cat.Refresh(ctx)

	if flags.once || flags.dump {
		if flags.dump {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(cat.ListEvents()); err != nil {
				appLog.Error("dump failed", err)
				os.Exit(1)
			}
		}
		appLog.Info("single refresh completed", "events", n)
		return
	}

	stopRefresher, err := catalog.StartRefresher(ctx, cat, conf.Catalog.Refresh)
	if err != nil {
		appLog.Error("catalog refresher disabled", err, "spec", conf.Catalog.Refresh)
	} else {
		defer stopRefresher()
	}

	backend, closeBackend := storage.Open(conf.Storage)
	defer func() {
		if err := closeBackend(); err != nil {
			appLog.Error("storage close failed", err)
		}
	}()

	sess := session.New(ctx, backend, seedFromConfig(conf.Rewards))
	sharer := share.NewService(sess.Rewards, conf.Rewards.SharePoints, shareChannels(conf.Share)...)

	srv := web.NewServer(web.Deps{
		Config:    conf,
		Catalog:   cat,
		Session:   sess,
		Share:     sharer,
		Metrics:   m,
		AccessLog: os.Stdout,
	})
	if err := srv.Serve(ctx); err != nil {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}
	appLog.Info("uaoagenda exiting")
}

func seedFromConfig(rc config.RewardsConfig) rewards.Seed {
	seed := rewards.Seed{Points: rc.InitialPoints, Cash: rc.InitialCash}
	for _, e := range rc.SeedHistory {
		seed.History = append(seed.History, rewards.SeedEntry{Amount: e.Amount, Label: e.Label})
	}
	return seed
}

// shareChannels orders the configured channels: webhook first, clipboard
// only when no webhook is configured.
func shareChannels(sc config.ShareConfig) []share.Sharer {
	var out []share.Sharer
	if sc.WebhookURL != "" {
		out = append(out, share.WebhookSharer{URL: sc.WebhookURL})
	}
	if sc.ClipboardFile != "" {
		out = append(out, share.ClipboardSharer{Path: sc.ClipboardFile})
	}
	return out
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Refresh the catalog once and exit")
	flag.BoolVar(&cfg.dump, "dump", false, "Refresh the catalog, print the validated events as JSON and exit")

	flag.Parse()

	return cfg
}

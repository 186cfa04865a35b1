package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/EgorLis/bitacbot/internal/bot"
	"github.com/EgorLis/bitacbot/internal/config"
	"github.com/EgorLis/bitacbot/internal/dedup"
	"github.com/EgorLis/bitacbot/internal/explorer"
	"github.com/EgorLis/bitacbot/internal/logging"
	"github.com/EgorLis/bitacbot/internal/nostr"
)

var version = "dev"

func main() {
	cfgPath := pflag.StringP("config", "c", "conf/bitacbot.yml", "path to config (.yml, .yaml, .json, .jsonc)")
	keygen := pflag.Bool("keygen", false, "print a fresh nsec/npub pair and exit")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println("bitacbot", version)
		return
	}
	if *keygen {
		keys, err := nostr.GenerateKeys()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("nsec:", keys.Nsec())
		fmt.Println("npub:", keys.Npub())
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("bitacbot", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	keys, err := nostr.ParseSecretKey(cfg.SecretKey)
	if err != nil {
		return fmt.Errorf("secret_key: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := bot.NewMetrics()
	client, err := explorer.NewClient(explorer.Config{
		BaseURL:        cfg.Explorer.BaseURL,
		UserAgent:      cfg.Explorer.UserAgent,
		Timeout:        cfg.Explorer.Timeout.Std(),
		IncludeMempool: cfg.Explorer.IncludeMempool,
		Observer:       metrics.ObserveExplorer,
	})
	if err != nil {
		return err
	}

	pool, err := nostr.NewPool(cfg.Relays, dedup.New(cfg.Dedup.MaxKeys, cfg.Dedup.TTL.Std()), logger.Named("nostr"))
	if err != nil {
		return err
	}

	b := bot.New(keys, client, logger.Named("bot"))
	b.SetPool(pool)
	b.SetMetrics(metrics)
	b.SetProfile(cfg.Profile)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics, logger.Named("metrics")); err != nil {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
	}

	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Stop()

	logger.Info("running, press Ctrl+C to stop",
		zap.String("explorer", client.BaseURL()),
		zap.Strings("relays", cfg.Relays),
	)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

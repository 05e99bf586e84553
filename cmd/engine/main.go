package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/config"
	"github.com/ToyotakaTanaka/jiji2/pkg/api"
	"github.com/ToyotakaTanaka/jiji2/pkg/engine"
	postgres_wrapper "github.com/ToyotakaTanaka/jiji2/pkg/infra/postgres"
	redis_wrapper "github.com/ToyotakaTanaka/jiji2/pkg/infra/redis"
	kafkawrapper "github.com/ToyotakaTanaka/jiji2/pkg/kafka_wrapper"
	"github.com/ToyotakaTanaka/jiji2/pkg/logging"
	"github.com/ToyotakaTanaka/jiji2/pkg/storage"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/book"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/cache"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/feed"
	fixcodec "github.com/ToyotakaTanaka/jiji2/pkg/trading/fix"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/repo"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/riskrule"
)

func main() {
	var configFile, envFile, corsOrigins string
	var fixQueue bool
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&envFile, "env-file", "", "Specify .env file path")
	flag.StringVar(&corsOrigins, "cors-origins", "", "Comma separated list of allowed origins")
	flag.BoolVar(&fixQueue, "fix-queue", true, "Decode FIX messages on a dispatcher goroutine")
	flag.Parse()

	if err := config.LoadEnv(envFile); err != nil {
		panic(err)
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel))
	defer zap.L().Sync() // nolint

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	store, err := storage.NewPebbleStore(cfg.PebblePath)
	if err != nil {
		zap.S().Fatalw("open pebble fail", "path", cfg.PebblePath, "err", err)
	}
	defer store.Close() // nolint

	rules, err := riskrule.FromConfig(cfg.Risk)
	if err != nil {
		zap.S().Fatalw("load risk rules fail", "err", err)
	}
	engineCfg := engine.Config{Snapshot: store, RiskRules: rules}

	if cfg.OmsDB != nil && cfg.OmsDB.DataSource != "" {
		db, err := postgres_wrapper.InitPostgresWithBackoff(cfg.OmsDB)
		if err != nil {
			zap.S().Fatalw("init db fail", "err", err)
		}
		engineCfg.Repo = repo.NewRepo(db)
	}

	if cfg.Redis != nil && cfg.Redis.ConnectionURL != "" {
		rdb, err := redis_wrapper.InitRedis(ctx, cfg.Redis)
		if err != nil {
			zap.S().Fatalw("init redis fail", "err", err)
		}
		defer rdb.Close() // nolint
		engineCfg.Cache = cache.NewOrderCache(rdb, cfg.Redis.CacheTTL())
	}

	if cfg.Kafka != nil && len(cfg.Kafka.Producer.Brokers) > 0 {
		producer := kafkawrapper.NewProducer(cfg.Kafka.Producer)
		defer producer.Close() // nolint
		engineCfg.Publisher = producer
	}

	eng := engine.NewEngine(book.NewBookManager(cfg.Book), engineCfg)
	n, err := eng.Restore(ctx)
	if err != nil {
		zap.S().Fatalw("restore pending orders fail", "err", err)
	}
	zap.S().Infow("pending orders restored", "count", n)

	if cfg.Nats != nil && cfg.Nats.URL != "" {
		nc, err := nats.Connect(cfg.Nats.URL, nats.Name(cfg.ServiceName))
		if err != nil {
			zap.S().Fatalw("connect nats fail", "err", err)
		}
		defer nc.Drain() // nolint

		js, err := nc.JetStream()
		if err != nil {
			zap.S().Fatalw("jetstream fail", "err", err)
		}
		if err := feed.EnsureStream(js); err != nil {
			zap.S().Fatalw("ensure quote stream fail", "err", err)
		}

		sub := feed.NewQuoteSubscriber(js, cfg.Nats, eng)
		go func() {
			if err := sub.Start(ctx); err != nil {
				zap.S().Errorw("quote subscriber stopped", "err", err)
			}
		}()
	}

	if cfg.FixConfigFile != "" {
		app := fixcodec.NewApplication(eng, fixQueue)
		if err := fixcodec.Start(cfg.FixConfigFile, app); err != nil {
			zap.S().Fatalw("start fix acceptor fail", "err", err)
		}
		defer app.Stop()
	}

	var origins []string
	if corsOrigins != "" {
		origins = strings.Split(corsOrigins, ",")
	}
	server := api.NewServer(eng, origins)
	go func() {
		if err := server.Run(ctx, cfg.HTTPAddr); err != nil {
			zap.S().Errorw("api server stopped", "err", err)
			cancel()
		}
	}()

	zap.S().Infow("engine started", "service", cfg.ServiceName, "http_addr", cfg.HTTPAddr)

	select {
	case <-sigs:
	case <-ctx.Done():
	}
	zap.S().Info("shutting down...")
	cancel()
}

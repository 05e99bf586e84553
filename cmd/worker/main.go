package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/config"
	postgres_wrapper "github.com/ToyotakaTanaka/jiji2/pkg/infra/postgres"
	kafkawrapper "github.com/ToyotakaTanaka/jiji2/pkg/kafka_wrapper"
	"github.com/ToyotakaTanaka/jiji2/pkg/logging"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/event"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/repo"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/worker"
)

func main() {
	var configFile, envFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&envFile, "env-file", "", "Specify .env file path")
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

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	if cfg.OmsDB == nil || cfg.Kafka == nil {
		zap.S().Fatal("worker needs oms_db and kafka config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		zap.S().Info("shutting down...")
		cancel()
	}()

	db, err := postgres_wrapper.InitPostgresWithBackoff(cfg.OmsDB)
	if err != nil {
		zap.S().Fatalw("init db fail", "err", err)
	}

	consumerCfg := cfg.Kafka.Consumer
	if consumerCfg.Topic == "" {
		consumerCfg.Topic = event.TopicOrderTriggers
	}
	cg := kafkawrapper.NewConsumerGroup(consumerCfg)
	defer cg.Close() // nolint

	w := worker.NewTriggerRecorder(repo.NewRepo(db))
	zap.S().Infow("trigger worker started", "topic", consumerCfg.Topic, "group", consumerCfg.GroupID)
	if err := cg.Run(ctx, w.Handle); err != nil {
		zap.S().Errorw("worker stopped", "err", err)
	}
}

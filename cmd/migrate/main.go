package main

import (
	"flag"

	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/config"
	"github.com/ToyotakaTanaka/jiji2/pkg/infra"
	"github.com/ToyotakaTanaka/jiji2/pkg/logging"
)

func main() {
	var configFile, envFile, source string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&envFile, "env-file", "", "Specify .env file path")
	flag.StringVar(&source, "source", infra.DefaultMigrationSource, "Migration source url")
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

	if cfg.OmsDB == nil || cfg.OmsDB.MigrationConnURL == "" {
		zap.S().Fatal("oms_db.migration_conn_url is required")
	}

	mgTool := infra.GetMigrateTool()
	if err := mgTool.Migrate(source, cfg.OmsDB.MigrationConnURL); err != nil {
		zap.S().Fatalw("migrate fail", "err", err)
	}
}

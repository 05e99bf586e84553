package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	postgres_wrapper "github.com/ToyotakaTanaka/jiji2/pkg/infra/postgres"
	redis_wrapper "github.com/ToyotakaTanaka/jiji2/pkg/infra/redis"
	kafkawrapper "github.com/ToyotakaTanaka/jiji2/pkg/kafka_wrapper"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/book"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/feed"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/riskrule"
)

type KafkaConfig struct {
	Producer kafkawrapper.ProducerConfig `yaml:"producer"`
	Consumer kafkawrapper.ConsumerConfig `yaml:"consumer"`
}

type AppConfig struct {
	ServiceName   string                           `yaml:"service_name"`
	LogLevel      string                           `yaml:"log_level"`
	OmsDB         *postgres_wrapper.PostgresConfig `yaml:"oms_db"`
	Redis         *redis_wrapper.RedisConfig       `yaml:"redis"`
	Kafka         *KafkaConfig                     `yaml:"kafka"`
	Nats          *feed.NatsConfig                 `yaml:"nats"`
	PebblePath    string                           `yaml:"pebble_path"`
	HTTPAddr      string                           `yaml:"http_addr"`
	FixConfigFile string                           `yaml:"fix_config_file"`
	Book          *book.BookManagerConfig          `yaml:"book"`
	Risk          *riskrule.Config                 `yaml:"risk"`
}

// LoadEnv reads KEY=VALUE pairs from envFile (".env" when empty) into the
// process environment. Variables already set win. A missing file is not an error.
func LoadEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	err := godotenv.Load(envFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)
	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}
	if err := yaml.Unmarshal(configBytes, cfg); err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}
	cfg.setDefaults()

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

func (c *AppConfig) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "jiji2"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.PebblePath == "" {
		c.PebblePath = "data/pending"
	}
	if c.Book == nil {
		c.Book = &book.BookManagerConfig{}
	}
}

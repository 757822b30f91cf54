// Package config loads the server configuration from a YAML file, a .env
// file and PREDEX_* environment variables, in increasing precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type EnvName string

const (
	EnvLocal EnvName = "local"
	EnvDev   EnvName = "dev"
	EnvProd  EnvName = "prod"
)

func ParseEnvName(s string) EnvName {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return EnvProd
	case "dev", "staging":
		return EnvDev
	default:
		return EnvLocal
	}
}

type Config struct {
	Env      EnvName        `yaml:"env"`
	Market   MarketConfig   `yaml:"market"`
	GRPC     ServerConfig   `yaml:"grpc"`
	HTTP     ServerConfig   `yaml:"http"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

type MarketConfig struct {
	Ticker        string `yaml:"ticker"`
	SnapshotDepth int    `yaml:"snapshotDepth"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// KafkaConfig leaves publishing off when Brokers is empty.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	EventsTopic   string   `yaml:"eventsTopic"`
	SnapshotTopic string   `yaml:"snapshotTopic"`
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type OutboxConfig struct {
	Dir          string        `yaml:"dir"`
	PollInterval time.Duration `yaml:"pollInterval"`
}

type SnapshotConfig struct {
	Interval time.Duration `yaml:"interval"`
}

func Default() *Config {
	return &Config{
		Env: EnvLocal,
		Market: MarketConfig{
			SnapshotDepth: 10,
		},
		GRPC: ServerConfig{Addr: ":50051"},
		HTTP: ServerConfig{Addr: ":8080"},
		Kafka: KafkaConfig{
			EventsTopic:   "predex.book-events",
			SnapshotTopic: "predex.book-snapshots",
		},
		Outbox: OutboxConfig{
			Dir:          "./data/outbox",
			PollInterval: 250 * time.Millisecond,
		},
		Snapshot: SnapshotConfig{Interval: time.Second},
	}
}

// Load builds the config. path may be empty to run on defaults and the
// environment alone.
func Load(path string) (*Config, error) {
	// a missing .env is not an error
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "fail to load config file '%s'", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "fail to decode config file '%s'", path)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("PREDEX_ENV"); ok {
		c.Env = EnvName(v)
	}
	c.Env = ParseEnvName(string(c.Env))

	if v := os.Getenv("PREDEX_TICKER"); v != "" {
		c.Market.Ticker = v
	}
	if v := os.Getenv("PREDEX_GRPC_ADDR"); v != "" {
		c.GRPC.Addr = v
	}
	if v := os.Getenv("PREDEX_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("PREDEX_OUTBOX_DIR"); v != "" {
		c.Outbox.Dir = v
	}
	if v := os.Getenv("PREDEX_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.Kafka.Brokers = append(c.Kafka.Brokers, b)
			}
		}
	}
}

func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Market.Ticker) == "" {
		problems = append(problems, "market.ticker is required")
	}
	if c.Market.SnapshotDepth <= 0 {
		problems = append(problems, "market.snapshotDepth must be positive")
	}
	if c.GRPC.Addr == "" {
		problems = append(problems, "grpc.addr is required")
	}
	if c.HTTP.Addr == "" {
		problems = append(problems, "http.addr is required")
	}
	if c.Kafka.Enabled() {
		if c.Kafka.EventsTopic == "" || c.Kafka.SnapshotTopic == "" {
			problems = append(problems, "kafka topics are required when brokers are set")
		}
		if c.Outbox.Dir == "" {
			problems = append(problems, "outbox.dir is required when brokers are set")
		}
	}
	if c.Outbox.PollInterval <= 0 {
		problems = append(problems, "outbox.pollInterval must be positive")
	}
	if c.Snapshot.Interval <= 0 {
		problems = append(problems, "snapshot.interval must be positive")
	}
	if len(problems) > 0 {
		return errors.Mark(errors.Newf("%s", strings.Join(problems, "; ")), ErrInvalidConfig)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topics  struct {
			Signal1m  string `yaml:"signal_1m"`
			Signal5m  string `yaml:"signal_5m"`
			Signal15m string `yaml:"signal_15m"`
			Decisions string `yaml:"decisions"`
		} `yaml:"topics"`
		RequiredAcks int    `yaml:"required_acks"`
		Compression  string `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Window struct {
		Size time.Duration `yaml:"size"`
	} `yaml:"window"`
	Checkpoint struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"checkpoint"`
	Postgres struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		User            string        `yaml:"user"`
		Password        string        `yaml:"password"`
		Database        string        `yaml:"database"`
		SSLMode         string        `yaml:"ssl_mode"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"postgres"`
	Order struct {
		GroupID             string             `yaml:"group_id"`
		ConfidenceThreshold float64            `yaml:"confidence_threshold"`
		BaseQuantity        float64            `yaml:"base_quantity"`
		MaxQuantity         float64            `yaml:"max_quantity"`
		BatchSize           int                `yaml:"batch_size"`
		PollTimeout         time.Duration      `yaml:"poll_timeout"`
		DefaultPrice        float64            `yaml:"default_price"`
		Prices              map[string]float64 `yaml:"prices"`
	} `yaml:"order"`
	Generator struct {
		Symbols    []string           `yaml:"symbols"`
		Timeframes []string           `yaml:"timeframes"`
		RatePerSec int                `yaml:"rate_per_sec"`
		Duration   time.Duration      `yaml:"duration"`
		BasePrices map[string]float64 `yaml:"base_prices"`
	} `yaml:"generator"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PGHOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("PGPORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Postgres.Port = p
		}
	}
	if v := os.Getenv("PGUSER"); v != "" {
		c.Postgres.User = v
	}
	if v := os.Getenv("PGPASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("PGDATABASE"); v != "" {
		c.Postgres.Database = v
	}
	if v := os.Getenv("CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Order.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv("BASE_QUANTITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Order.BaseQuantity = f
		}
	}
	if v := os.Getenv("MAX_QUANTITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Order.MaxQuantity = f
		}
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Generator.Symbols = strings.Split(v, ",")
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Kafka.Topics.Signal1m == "" {
		c.Kafka.Topics.Signal1m = "trading.signal.1m"
	}
	if c.Kafka.Topics.Signal5m == "" {
		c.Kafka.Topics.Signal5m = "trading.signal.5m"
	}
	if c.Kafka.Topics.Signal15m == "" {
		c.Kafka.Topics.Signal15m = "trading.signal.15m"
	}
	if c.Kafka.Topics.Decisions == "" {
		c.Kafka.Topics.Decisions = "trading.decisions"
	}
	if c.Window.Size <= 0 {
		c.Window.Size = 5 * time.Minute
	}
	if c.Checkpoint.Prefix == "" {
		c.Checkpoint.Prefix = "tradeflow:ckpt"
	}
	if c.Order.GroupID == "" {
		c.Order.GroupID = "order-manager"
	}
	if c.Order.ConfidenceThreshold == 0 {
		c.Order.ConfidenceThreshold = 0.65
	}
	if c.Order.BaseQuantity == 0 {
		c.Order.BaseQuantity = 1.0
	}
	if c.Order.MaxQuantity == 0 {
		c.Order.MaxQuantity = 10.0
	}
	if c.Order.BatchSize <= 0 {
		c.Order.BatchSize = 100
	}
	if c.Order.PollTimeout <= 0 {
		c.Order.PollTimeout = time.Second
	}
	if c.Order.DefaultPrice == 0 {
		c.Order.DefaultPrice = 100.0
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxOpenConns <= 0 {
		c.Postgres.MaxOpenConns = 5
	}
	if c.Postgres.MaxIdleConns <= 0 {
		c.Postgres.MaxIdleConns = 2
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		c.Postgres.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Generator.RatePerSec <= 0 {
		c.Generator.RatePerSec = 5
	}
	if c.Generator.Duration <= 0 {
		c.Generator.Duration = time.Minute
	}
	if len(c.Generator.Timeframes) == 0 {
		c.Generator.Timeframes = []string{"1m", "5m", "15m"}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.Order.ConfidenceThreshold <= 0 || c.Order.ConfidenceThreshold >= 1 {
		return fmt.Errorf("order.confidence_threshold must be in (0,1), got %v", c.Order.ConfidenceThreshold)
	}
	if c.Order.MaxQuantity < c.Order.BaseQuantity {
		return fmt.Errorf("order.max_quantity must be >= order.base_quantity")
	}
	return nil
}

// SignalTopics returns the per-timeframe input topics keyed by timeframe.
func (c *Config) SignalTopics() map[string]string {
	return map[string]string{
		"1m":  c.Kafka.Topics.Signal1m,
		"5m":  c.Kafka.Topics.Signal5m,
		"15m": c.Kafka.Topics.Signal15m,
	}
}

package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"FinRisk/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	RunName     string `yaml:"run_name" default:"run" validate:"required"`
	Environment string `yaml:"environment" default:"development"`
	Universe    struct {
		Tickers []string  `yaml:"tickers" validate:"required,min=1,dive,required"`
		Weights []float64 `yaml:"weights,omitempty" validate:"omitempty,dive,gte=0"`
	} `yaml:"universe"`
	DateRange struct {
		Start string `yaml:"start" validate:"required"`
		End   string `yaml:"end" validate:"required"`
	} `yaml:"date_range"`
	Data       DataConfig       `yaml:"data"`
	Risk       RiskConfig       `yaml:"risk"`
	Outputs    OutputsConfig    `yaml:"outputs"`
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Redis      RedisConfig      `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Kafka      KafkaConfig      `yaml:"kafka"`
}

type DataConfig struct {
	Source       string        `yaml:"source" default:"yahoo" validate:"oneof=yahoo csv clickhouse"`
	Interval     string        `yaml:"interval" default:"1d" validate:"oneof=1d 1wk 1mo"`
	AutoAdjust   bool          `yaml:"auto_adjust" default:"true"`
	ForceRefresh bool          `yaml:"force_refresh"`
	CacheDir     string        `yaml:"cache_dir" default:"data/cache"`
	CacheBackend string        `yaml:"cache_backend" default:"file" validate:"oneof=none file memory redis layered"`
	CacheTTL     time.Duration `yaml:"cache_ttl" default:"24h" validate:"gte=0"`
	CSVDir       string        `yaml:"csv_dir" default:"data/prices"`
	Yahoo        struct {
		BaseURL string        `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
		Timeout time.Duration `yaml:"timeout" default:"15s" validate:"gt=0"`
		RPS     float64       `yaml:"rps" default:"2" validate:"gt=0"`
	} `yaml:"yahoo"`
}

type RiskConfig struct {
	ConfidenceLevels    []float64 `yaml:"confidence_levels" default:"[0.95,0.99]" validate:"min=1,dive,gt=0,lt=1"`
	AnnualisationFactor int       `yaml:"annualisation_factor" validate:"gte=0"` // 0 = derive from interval
	Returns             string    `yaml:"returns" default:"simple" validate:"oneof=simple log"`
	PerAsset            bool      `yaml:"per_asset" default:"true"`
}

type OutputsConfig struct {
	BaseDir            string `yaml:"base_dir" default:"runs" validate:"required"`
	SaveConfigSnapshot bool   `yaml:"save_config_snapshot" default:"true"`
	Plot               bool   `yaml:"plot" default:"true"`
	CSV                bool   `yaml:"csv" default:"true"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORS            bool          `yaml:"cors" default:"true"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type RedisConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"finrisk"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"finrisk"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password,omitempty"`
	Table            string        `yaml:"table" default:"finrisk.daily_prices"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic" default:"risk.reports"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"100ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file. Struct defaults are applied
// first so that keys present in the file (including explicit false/0) win.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, overrides with environment variables, then validates.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("env override: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes raw YAML bytes with defaults applied and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(b)
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.normalize()
	return &c, nil
}

func (c *Config) normalize() {
	for i, t := range c.Universe.Tickers {
		c.Universe.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("RISK_TICKERS"); v != "" {
		c.Universe.Tickers = util.SplitList(v)
		// configured weights no longer line up with the new universe
		c.Universe.Weights = nil
	}
	if v := getenv("RISK_DATA_SOURCE"); v != "" {
		c.Data.Source = v
	}
	if v := getenv("RISK_START"); v != "" {
		c.DateRange.Start = v
	}
	if v := getenv("RISK_END"); v != "" {
		c.DateRange.End = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR port: %w", err)
		}
		c.Redis.Host, c.Redis.Port = host, p
	}
	c.normalize()
	return nil
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed on '%s' (%s)", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return err
	}

	start, err := c.Start()
	if err != nil {
		return fmt.Errorf("date_range.start: %w", err)
	}
	end, err := c.End()
	if err != nil {
		return fmt.Errorf("date_range.end: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("date_range.start (%s) must be before date_range.end (%s)", c.DateRange.Start, c.DateRange.End)
	}

	if w := c.Universe.Weights; len(w) > 0 {
		if len(w) != len(c.Universe.Tickers) {
			return fmt.Errorf("universe.weights has %d entries, universe.tickers has %d", len(w), len(c.Universe.Tickers))
		}
		sum := 0.0
		for _, x := range w {
			sum += x
		}
		if math.Abs(sum-1) > 1e-6 {
			return fmt.Errorf("universe.weights must sum to 1, got %g", sum)
		}
	}

	seen := make(map[string]struct{}, len(c.Universe.Tickers))
	for _, t := range c.Universe.Tickers {
		if _, dup := seen[t]; dup {
			return fmt.Errorf("universe.tickers contains %s twice", t)
		}
		seen[t] = struct{}{}
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka.enabled")
	}
	if c.Data.CacheBackend == "file" && c.Data.CacheDir == "" {
		return fmt.Errorf("data.cache_dir is required for the file cache")
	}
	return nil
}

// Start returns the parsed date_range.start.
func (c *Config) Start() (time.Time, error) { return util.ParseDate(c.DateRange.Start) }

// End returns the parsed date_range.end (exclusive).
func (c *Config) End() (time.Time, error) { return util.ParseDate(c.DateRange.End) }

// Snapshot renders the effective configuration as YAML with secrets removed.
func (c *Config) Snapshot() ([]byte, error) {
	cp := *c
	cp.Redis.Password = ""
	cp.ClickHouse.Password = ""
	b, err := yaml.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("marshal config snapshot: %w", err)
	}
	return b, nil
}

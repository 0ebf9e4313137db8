package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/benplehn/btc-sub000/internal/engine"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const EnvPrefix = "BTCALLOC"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	LogFormat   string         `mapstructure:"log_format"`
	Engine      EngineConfig   `mapstructure:"engine"`
	Data        DataConfig     `mapstructure:"data"`
	Database    DatabaseConfig `mapstructure:"database"`
	Server      ServerConfig   `mapstructure:"server"`
	Sweep       SweepConfig    `mapstructure:"sweep"`
}

// EngineConfig keeps money values as strings so they reach decimal.Decimal
// without a float round trip.
type EngineConfig struct {
	Model                string  `mapstructure:"model"`
	FeeBps               float64 `mapstructure:"fee_bps"`
	FeeRate              string  `mapstructure:"fee_rate"`
	InitialCapital       string  `mapstructure:"initial_capital"`
	MaterialityThreshold string  `mapstructure:"materiality_threshold"`
	ClipAllocation       bool    `mapstructure:"clip_allocation"`
}

type DataConfig struct {
	FearGreedURL string        `mapstructure:"fear_greed_url"`
	CachePath    string        `mapstructure:"cache_path"`
	CacheMaxAge  time.Duration `mapstructure:"cache_max_age"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	URL    string `mapstructure:"url"`
	Ticker string `mapstructure:"ticker"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxStoredRuns  int      `mapstructure:"max_stored_runs"`
}

type SweepConfig struct {
	Workers  int    `mapstructure:"workers"`
	SortBy   string `mapstructure:"sort_by"`
	Progress bool   `mapstructure:"progress"`
}

// Load reads .env, then path (or ./config.yaml, ./configs/config.yaml when
// path is empty), then BTCALLOC_* environment variables. Later sources win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("engine.model", string(engine.FeeModelTurnover))
	v.SetDefault("engine.fee_bps", 10.0)
	v.SetDefault("engine.fee_rate", "0.001")
	v.SetDefault("engine.initial_capital", "10000")
	v.SetDefault("engine.materiality_threshold", engine.DefaultMaterialityThreshold.String())
	v.SetDefault("engine.clip_allocation", true)

	v.SetDefault("data.fear_greed_url", "https://api.alternative.me/fng/")
	v.SetDefault("data.cache_path", "data/fear_greed.csv")
	v.SetDefault("data.cache_max_age", "12h")
	v.SetDefault("data.timeout", "15s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.ticker", "BTC")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_stored_runs", 100)

	v.SetDefault("sweep.workers", 4)
	v.SetDefault("sweep.sort_by", "cagr")
	v.SetDefault("sweep.progress", true)
}

func (c *Config) Validate() error {
	if _, err := c.Engine.Build(); err != nil {
		return err
	}
	if c.Data.CacheMaxAge < 0 {
		return fmt.Errorf("%w: data.cache_max_age must be >= 0", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range: %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.MaxStoredRuns <= 0 {
		return fmt.Errorf("%w: server.max_stored_runs must be positive", ErrInvalidConfig)
	}
	if c.Sweep.Workers <= 0 {
		return fmt.Errorf("%w: sweep.workers must be positive", ErrInvalidConfig)
	}
	return nil
}

// Build converts the engine section into a validated engine.Config.
func (e EngineConfig) Build() (*engine.Config, error) {
	model, ok := engine.ConvertFeeModel[strings.ToLower(e.Model)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine.model %q", ErrInvalidConfig, e.Model)
	}

	feeRate, err := decimal.NewFromString(e.FeeRate)
	if err != nil {
		return nil, fmt.Errorf("%w: engine.fee_rate: %v", ErrInvalidConfig, err)
	}
	capital, err := decimal.NewFromString(e.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("%w: engine.initial_capital: %v", ErrInvalidConfig, err)
	}
	threshold, err := decimal.NewFromString(e.MaterialityThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: engine.materiality_threshold: %v", ErrInvalidConfig, err)
	}

	var cfg *engine.Config
	if model == engine.FeeModelLedger {
		cfg = engine.NewLedgerConfig(capital, feeRate)
	} else {
		cfg = engine.NewSimplifiedConfig(e.FeeBps)
	}
	cfg.MaterialityThreshold = threshold
	cfg.ClipAllocation = e.ClipAllocation

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

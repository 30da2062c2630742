// Package config loads the service configuration from a YAML file, a .env file and ARGO_SIGNAL_* variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-signal/internal/history"
	"github.com/rxtech-lab/argo-signal/internal/strategy"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine"
	tradingprovider "github.com/rxtech-lab/argo-signal/internal/trading/provider"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. ARGO_SIGNAL_EXCHANGE_API_KEY.
const EnvPrefix = "ARGO_SIGNAL"

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging" json:"logging"`
	Exchange ExchangeConfig `mapstructure:"exchange" yaml:"exchange" json:"exchange"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history" json:"history"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram" json:"telegram"`
	Engines  EnginesConfig  `mapstructure:"engines" yaml:"engines" json:"engines"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen" json:"listen" validate:"required"`
	// AutoStart starts every engine loop when the server comes up.
	AutoStart bool `mapstructure:"auto_start" yaml:"auto_start" json:"auto_start"`
	// StatusInterval is how often the status stream pushes a snapshot of every engine.
	StatusInterval time.Duration `mapstructure:"status_interval" yaml:"status_interval" json:"status_interval" validate:"gte=0"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level" json:"level" validate:"oneof=debug info warn error"`
}

// ExchangeConfig selects the environment and holds the API credentials.
type ExchangeConfig struct {
	Environment    string        `mapstructure:"environment" yaml:"environment" json:"environment" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" json:"request_timeout" validate:"gte=0"`
	APIKey         string        `mapstructure:"api_key" yaml:"api_key" json:"-"`
	SecretKey      string        `mapstructure:"secret_key" yaml:"secret_key" json:"-"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url" json:"base_url,omitempty" validate:"omitempty,url"`
	WarmupInterval string        `mapstructure:"warmup_interval" yaml:"warmup_interval" json:"warmup_interval"`
}

// HistoryConfig selects the history store. An empty path keeps history in memory.
type HistoryConfig struct {
	Path        string `mapstructure:"path" yaml:"path" json:"path"`
	MemoryLimit int    `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit" validate:"gte=0"`
	StateDir    string `mapstructure:"state_dir" yaml:"state_dir" json:"state_dir"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	BotToken string `mapstructure:"bot_token" yaml:"bot_token" json:"-"`
	ChatID   string `mapstructure:"chat_id" yaml:"chat_id" json:"chat_id"`
}

// EnginesConfig holds one config per strategy engine.
type EnginesConfig struct {
	MeanReversion  strategy.MeanReversionConfig `mapstructure:"mean_reversion" yaml:"mean_reversion" json:"mean_reversion"`
	Bollinger      strategy.BollingerConfig     `mapstructure:"bollinger" yaml:"bollinger" json:"bollinger"`
	TrendFollowing strategy.TrendConfig         `mapstructure:"trend_following" yaml:"trend_following" json:"trend_following"`
}

// All returns the engine configs in a stable order.
func (e EnginesConfig) All() []strategy.Config {
	return []strategy.Config{e.MeanReversion, e.Bollinger, e.TrendFollowing}
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:         ":8080",
			AutoStart:      false,
			StatusInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Exchange: ExchangeConfig{
			Environment:    string(tradingprovider.EnvironmentBinanceTestnet),
			RequestTimeout: engine.DefaultRequestTimeout,
			APIKey:         "",
			SecretKey:      "",
			BaseURL:        "",
			WarmupInterval: engine.DefaultWarmupInterval,
		},
		History: HistoryConfig{
			Path:        "",
			MemoryLimit: history.DefaultMemoryLimit,
			StateDir:    "./data/state",
		},
		Telegram: TelegramConfig{Enabled: false, BotToken: "", ChatID: ""},
		Engines: EnginesConfig{
			MeanReversion:  strategy.DefaultMeanReversionConfig(),
			Bollinger:      strategy.DefaultBollingerConfig(),
			TrendFollowing: strategy.DefaultTrendConfig(),
		},
	}
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.listen", cfg.Server.Listen)
	v.SetDefault("server.auto_start", cfg.Server.AutoStart)
	v.SetDefault("server.status_interval", cfg.Server.StatusInterval)

	v.SetDefault("logging.level", cfg.Logging.Level)

	v.SetDefault("exchange.environment", cfg.Exchange.Environment)
	v.SetDefault("exchange.request_timeout", cfg.Exchange.RequestTimeout)
	v.SetDefault("exchange.api_key", cfg.Exchange.APIKey)
	v.SetDefault("exchange.secret_key", cfg.Exchange.SecretKey)
	v.SetDefault("exchange.base_url", cfg.Exchange.BaseURL)
	v.SetDefault("exchange.warmup_interval", cfg.Exchange.WarmupInterval)

	v.SetDefault("history.path", cfg.History.Path)
	v.SetDefault("history.memory_limit", cfg.History.MemoryLimit)
	v.SetDefault("history.state_dir", cfg.History.StateDir)

	v.SetDefault("telegram.enabled", cfg.Telegram.Enabled)
	v.SetDefault("telegram.bot_token", cfg.Telegram.BotToken)
	v.SetDefault("telegram.chat_id", cfg.Telegram.ChatID)

	v.SetDefault("engines.mean_reversion.enabled", cfg.Engines.MeanReversion.Enabled)
	v.SetDefault("engines.bollinger.enabled", cfg.Engines.Bollinger.Enabled)
	v.SetDefault("engines.trend_following.enabled", cfg.Engines.TrendFollowing.Enabled)
}

// LoadDotEnv loads .env style files into the process environment. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(errors.ErrCodeConfigInvalid, err, "failed to load env file %s", path)
		}
	}

	return nil
}

// Load reads the config file at path (optional when empty) over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeConfigInvalid, err, "failed to read config file %s", path)
		}
	}

	// Engine fields missing from the file keep the values already in cfg.
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags, the environment and every engine config.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, "invalid config", err)
	}

	if _, err := tradingprovider.GetEnvironmentInfo(c.Exchange.Environment); err != nil {
		return err
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return errors.New(errors.ErrCodeConfigInvalid, "telegram.bot_token is required when telegram is enabled")
		}

		if c.Telegram.ChatID == "" {
			return errors.New(errors.ErrCodeConfigInvalid, "telegram.chat_id is required when telegram is enabled")
		}
	}

	for _, engineCfg := range c.Engines.All() {
		if err := engineCfg.Validate(); err != nil {
			return errors.Wrapf(errors.ErrCodeConfigInvalid, err, "invalid %s engine config", engineCfg.StrategyName())
		}
	}

	return nil
}

// HasCredentials reports whether API keys are configured. Without them only public market data works.
func (c *Config) HasCredentials() bool {
	return c.Exchange.APIKey != "" && c.Exchange.SecretKey != ""
}

// BinanceConfig returns the exchange credentials in the provider's shape.
func (c *Config) BinanceConfig() tradingprovider.BinanceProviderConfig {
	return tradingprovider.BinanceProviderConfig{
		ApiKey:    c.Exchange.APIKey,
		SecretKey: c.Exchange.SecretKey,
		BaseURL:   c.Exchange.BaseURL,
	}
}

// EngineSettings returns the settings shared by every engine.
func (c *Config) EngineSettings() engine.Settings {
	return engine.Settings{
		Environment:    tradingprovider.Environment(c.Exchange.Environment),
		RequestTimeout: c.Exchange.RequestTimeout,
		StopTimeout:    engine.DefaultStopTimeout,
		StateDir:       c.History.StateDir,
		WarmupInterval: c.Exchange.WarmupInterval,
	}.WithDefaults()
}

// UseTestnet reports whether the configured environment is the Binance testnet.
func (c *Config) UseTestnet() bool {
	return tradingprovider.Environment(c.Exchange.Environment) == tradingprovider.EnvironmentBinanceTestnet
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vignesh-goutham/bondstress/pkg/backtest"
	"github.com/vignesh-goutham/bondstress/pkg/fred"
	"github.com/vignesh-goutham/bondstress/pkg/logger"
	"github.com/vignesh-goutham/bondstress/pkg/notification"
	"github.com/vignesh-goutham/bondstress/pkg/pipeline"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/sizing"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

const (
	SourceAPI = "api"
	SourceCSV = "csv"

	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

var validate = validator.New()

// Config holds the application configuration
type Config struct {
	Symbols  []string       `yaml:"symbols" default:"[\"NVDA\",\"AMD\",\"TSM\",\"INTC\",\"QCOM\"]" validate:"min=1,dive,required,uppercase"`
	Log      logger.Config  `yaml:"log"`
	Data     DataConfig     `yaml:"data"`
	Alpaca   AlpacaConfig   `yaml:"alpaca"`
	FRED     FREDConfig     `yaml:"fred"`
	Stress   StressConfig   `yaml:"stress"`
	Signals  SignalsConfig  `yaml:"signals"`
	Sizing   SizingConfig   `yaml:"sizing"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Backtest BacktestConfig `yaml:"backtest"`
	Store    StoreConfig    `yaml:"store"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

type DataConfig struct {
	Source string `yaml:"source" default:"api" validate:"oneof=api csv"`
	CSVDir string `yaml:"csv_dir" validate:"required_if=Source csv"`
}

type AlpacaConfig struct {
	APIKey    string `yaml:"api_key"`
	SecretKey string `yaml:"secret_key"`
}

type FREDConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url" default:"https://api.stlouisfed.org/fred" validate:"url"`
	Timeout           time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" default:"1.5" validate:"gt=0"`
	Burst             int           `yaml:"burst" default:"3" validate:"gte=1"`
	FailuresToTrip    uint32        `yaml:"failures_to_trip" default:"3" validate:"gte=1"`
	BreakerTimeout    time.Duration `yaml:"breaker_timeout" default:"60s" validate:"gt=0"`
}

type StressConfig struct {
	ShortWindow      int     `yaml:"short_window" default:"20" validate:"gt=0"`
	LongWindow       int     `yaml:"long_window" default:"60" validate:"gt=0"`
	MinObservations  int     `yaml:"min_observations" default:"10" validate:"gte=2"`
	FlatStdThreshold float64 `yaml:"flat_std_threshold" default:"0.001" validate:"gte=0"`
}

type SignalsConfig struct {
	CorrelationWindow int     `yaml:"correlation_window" default:"60" validate:"gte=2"`
	BasePositionSize  float64 `yaml:"base_position_size" default:"0.10" validate:"gte=0,lte=1"`
	MaxPositionSize   float64 `yaml:"max_position_size" default:"0.25" validate:"gte=0,lte=1"`
	RSIPeriod         int     `yaml:"rsi_period" default:"14" validate:"gt=0"`
}

type SizingConfig struct {
	CalmVIX       float64 `yaml:"calm_vix" default:"20" validate:"gt=0"`
	StressedVIX   float64 `yaml:"stressed_vix" default:"30" validate:"gtfield=CalmVIX"`
	LowVolSize    float64 `yaml:"low_vol_size" default:"0.02" validate:"gte=0"`
	MidVolSize    float64 `yaml:"mid_vol_size" default:"0.015" validate:"gte=0"`
	HighVolSize   float64 `yaml:"high_vol_size" default:"0.005" validate:"gte=0"`
	MaxPosition   float64 `yaml:"max_position" default:"0.03" validate:"gte=0"`
	MaxExposure   float64 `yaml:"max_exposure" default:"0.20" validate:"gtefield=MaxPosition"`
	KellyFraction float64 `yaml:"kelly_fraction" default:"0.25" validate:"gte=0"`
	KellyCap      float64 `yaml:"kelly_cap" default:"0.05" validate:"gte=0"`
}

type PipelineConfig struct {
	VolatilityWindow    int     `yaml:"volatility_window" default:"20" validate:"gte=2"`
	AnnualizationFactor float64 `yaml:"annualization_factor" default:"252" validate:"gt=0"`
	FallbackVIX         float64 `yaml:"fallback_vix" default:"30" validate:"gt=0"`
	LookbackDays        int     `yaml:"lookback_days" default:"180" validate:"gt=0"`
}

type BacktestConfig struct {
	InitialCapital  float64 `yaml:"initial_capital" default:"100000" validate:"gt=0"`
	TransactionCost float64 `yaml:"transaction_cost" default:"0.001" validate:"gte=0,lt=1"`
	RiskFreeRate    float64 `yaml:"risk_free_rate" default:"0.02"`
	TrainWindow     int     `yaml:"train_window" default:"252" validate:"gt=0"`
	TestWindow      int     `yaml:"test_window" default:"63" validate:"gt=0"`
}

type StoreConfig struct {
	Backend   string `yaml:"backend" default:"memory" validate:"oneof=memory dynamodb"`
	Region    string `yaml:"region" default:"us-east-1" validate:"required"`
	TableName string `yaml:"table_name" default:"bondstress-signals" validate:"required"`
}

type AlertsConfig struct {
	Threshold         float64       `yaml:"threshold" default:"7.0" validate:"gte=0,lte=10"`
	MaxTradingAlerts  int           `yaml:"max_trading_alerts" default:"3" validate:"gte=0"`
	Cooldown          time.Duration `yaml:"cooldown" default:"4h" validate:"gte=0"`
	Timeout           time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
	DiscordWebhookURL string        `yaml:"discord_webhook_url" validate:"omitempty,url"`
	SlackWebhookURL   string        `yaml:"slack_webhook_url" validate:"omitempty,url"`
	// DiscordPublicKey verifies slash command interactions
	DiscordPublicKey string `yaml:"discord_public_key" validate:"omitempty,hexadecimal,len=64"`
}

// Load reads the YAML file at path, fills defaults, applies environment
// overrides and validates. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return Parse(data, os.Getenv)
}

// Parse builds a Config from YAML bytes and an environment lookup. Defaults
// are filled first so that values set in the file, zeros included, win.
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Alpaca.APIKey, "ALPACA_API_KEY")
	set(&c.Alpaca.SecretKey, "ALPACA_SECRET_KEY")
	set(&c.FRED.APIKey, "FRED_API_KEY")
	set(&c.Alerts.DiscordWebhookURL, "DISCORD_WEBHOOK_URL")
	set(&c.Alerts.SlackWebhookURL, "SLACK_WEBHOOK_URL")
	set(&c.Alerts.DiscordPublicKey, "DISCORD_PUBLIC_KEY")
	set(&c.Store.Region, "DYNAMODB_REGION")
	set(&c.Store.TableName, "TABLE_NAME")
	set(&c.Log.Level, "LOG_LEVEL")

	if v := getenv("SYMBOLS"); v != "" {
		var symbols []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		c.Symbols = symbols
	}
}

// Validate checks struct tags, then the rules each component enforces itself
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	for _, check := range []func() error{
		c.StressConfig().Validate,
		c.SignalsConfig().Validate,
		c.SizingConfig().Validate,
		c.PipelineConfig().Validate,
		c.BacktestConfig().Validate,
		c.NotificationConfig().Validate,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) StressConfig() stress.Config {
	return stress.Config{
		ShortWindow:      c.Stress.ShortWindow,
		LongWindow:       c.Stress.LongWindow,
		MinObservations:  c.Stress.MinObservations,
		FlatStdThreshold: c.Stress.FlatStdThreshold,
	}
}

func (c *Config) SignalsConfig() signals.Config {
	return signals.Config{
		CorrelationWindow: c.Signals.CorrelationWindow,
		BasePositionSize:  c.Signals.BasePositionSize,
		MaxPositionSize:   c.Signals.MaxPositionSize,
		RSIPeriod:         c.Signals.RSIPeriod,
	}
}

func (c *Config) SizingConfig() sizing.Config {
	return sizing.Config{
		CalmVIX:       c.Sizing.CalmVIX,
		StressedVIX:   c.Sizing.StressedVIX,
		LowVolSize:    c.Sizing.LowVolSize,
		MidVolSize:    c.Sizing.MidVolSize,
		HighVolSize:   c.Sizing.HighVolSize,
		MaxPosition:   c.Sizing.MaxPosition,
		MaxExposure:   c.Sizing.MaxExposure,
		KellyFraction: c.Sizing.KellyFraction,
		KellyCap:      c.Sizing.KellyCap,
	}
}

func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Symbols:             c.Symbols,
		VolatilityWindow:    c.Pipeline.VolatilityWindow,
		AnnualizationFactor: c.Pipeline.AnnualizationFactor,
		FallbackVIX:         c.Pipeline.FallbackVIX,
		LookbackDays:        c.Pipeline.LookbackDays,
	}
}

func (c *Config) BacktestConfig() backtest.Config {
	return backtest.Config{
		InitialCapital:      c.Backtest.InitialCapital,
		TransactionCost:     c.Backtest.TransactionCost,
		RiskFreeRate:        c.Backtest.RiskFreeRate,
		AnnualizationFactor: c.Pipeline.AnnualizationFactor,
		TrainWindow:         c.Backtest.TrainWindow,
		TestWindow:          c.Backtest.TestWindow,
	}
}

func (c *Config) FREDConfig() fred.Config {
	return fred.Config{
		BaseURL:           c.FRED.BaseURL,
		APIKey:            c.FRED.APIKey,
		Timeout:           c.FRED.Timeout,
		RequestsPerSecond: c.FRED.RequestsPerSecond,
		Burst:             c.FRED.Burst,
		FailuresToTrip:    c.FRED.FailuresToTrip,
		BreakerTimeout:    c.FRED.BreakerTimeout,
	}
}

func (c *Config) NotificationConfig() notification.Config {
	return notification.Config{
		Threshold:        c.Alerts.Threshold,
		MaxTradingAlerts: c.Alerts.MaxTradingAlerts,
		Cooldown:         c.Alerts.Cooldown,
	}
}

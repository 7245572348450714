// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// SeedToken describes a token market created at startup so the demo
// platform boots with live charts.
type SeedToken struct {
	Name        string `mapstructure:"name"`
	Ticker      string `mapstructure:"ticker"`
	BasePrice   string `mapstructure:"base_price"`
	Slope       string `mapstructure:"slope"`
	TotalSupply int64  `mapstructure:"total_supply"`
}

type Config struct {
	FeeTotalBps     uint16 `mapstructure:"fee_total_bps"`
	FeeLiquidityBps uint16 `mapstructure:"fee_liquidity_bps"`
	FeeTreasuryBps  uint16 `mapstructure:"fee_treasury_bps"`

	GraduationThresholdUSD string `mapstructure:"graduation_threshold_usd"`
	NativeUSDRate          string `mapstructure:"native_usd_rate"`

	HistoryCapacity int `mapstructure:"history_capacity"`
	LedgerCapacity  int `mapstructure:"ledger_capacity"`

	WalkEnabled    bool   `mapstructure:"walk_enabled"`
	WalkIntervalMS int    `mapstructure:"walk_interval_ms"`
	WalkStep       string `mapstructure:"walk_step"`
	WalkFloor      string `mapstructure:"walk_floor"`

	SnapshotIntervalMS int `mapstructure:"snapshot_interval_ms"`

	EventBufferSize int  `mapstructure:"event_buffer_size"`
	DebugLogging    bool `mapstructure:"debug_logging"`

	PostgresURL string `mapstructure:"postgres_url"`

	SeedTokens []SeedToken `mapstructure:"seed_tokens"`
}

const (
	DefaultFeeTotalBps            = 100
	DefaultFeeLiquidityBps        = 50
	DefaultFeeTreasuryBps         = 50
	DefaultGraduationThresholdUSD = "69000"
	DefaultNativeUSDRate          = "20"
	DefaultHistoryCapacity        = 120
	DefaultLedgerCapacity         = 500
	DefaultWalkIntervalMS         = 60000
	DefaultWalkStep               = "0.0001"
	DefaultWalkFloor              = "0.0001"
	DefaultSnapshotIntervalMS     = 30000
	DefaultEventBufferSize        = 256
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"fee_total_bps":            DefaultFeeTotalBps,
		"fee_liquidity_bps":        DefaultFeeLiquidityBps,
		"fee_treasury_bps":         DefaultFeeTreasuryBps,
		"graduation_threshold_usd": DefaultGraduationThresholdUSD,
		"native_usd_rate":          DefaultNativeUSDRate,
		"history_capacity":         DefaultHistoryCapacity,
		"ledger_capacity":          DefaultLedgerCapacity,
		"walk_enabled":             true,
		"walk_interval_ms":         DefaultWalkIntervalMS,
		"walk_step":                DefaultWalkStep,
		"walk_floor":               DefaultWalkFloor,
		"snapshot_interval_ms":     DefaultSnapshotIntervalMS,
		"event_buffer_size":        DefaultEventBufferSize,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.FeeTotalBps >= 10000 {
		return errors.New("fee_total_bps must be below 10000")
	}
	if cfg.FeeLiquidityBps+cfg.FeeTreasuryBps != cfg.FeeTotalBps {
		return errors.New("fee split must sum to fee_total_bps")
	}
	if err := validatePositiveDecimal(cfg.GraduationThresholdUSD); err != nil {
		return errors.New("invalid graduation_threshold_usd")
	}
	if err := validatePositiveDecimal(cfg.NativeUSDRate); err != nil {
		return errors.New("invalid native_usd_rate")
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if cfg.WalkEnabled {
		if err := validatePositiveDecimal(cfg.WalkStep); err != nil {
			return errors.New("invalid walk_step")
		}
		if err := validatePositiveDecimal(cfg.WalkFloor); err != nil {
			return errors.New("invalid walk_floor")
		}
	}
	for _, seed := range cfg.SeedTokens {
		if seed.Ticker == "" {
			return errors.New("seed token missing ticker")
		}
		if err := validatePositiveDecimal(seed.BasePrice); err != nil {
			return errors.New("invalid base_price for seed token " + seed.Ticker)
		}
		if seed.TotalSupply <= 0 {
			return errors.New("invalid total_supply for seed token " + seed.Ticker)
		}
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.HistoryCapacity <= 0 {
		return errors.New("invalid history_capacity")
	}
	if cfg.LedgerCapacity <= 0 {
		return errors.New("invalid ledger_capacity")
	}
	if cfg.WalkIntervalMS <= 0 {
		return errors.New("invalid walk_interval_ms")
	}
	if cfg.SnapshotIntervalMS <= 0 {
		return errors.New("invalid snapshot_interval_ms")
	}
	if cfg.EventBufferSize <= 0 {
		return errors.New("invalid event_buffer_size")
	}
	return nil
}

func validatePositiveDecimal(raw string) error {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	if d.Sign() <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envPostgres := v.GetString("POSTGRES_URL")
	if envPostgres != "" {
		cfg.PostgresURL = envPostgres
	}

	envRate := v.GetString("NATIVE_USD_RATE")
	if envRate != "" {
		cfg.NativeUSDRate = envRate
	}
	return nil
}

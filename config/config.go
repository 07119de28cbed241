package config

import (
	"os"
	"path/filepath"

	"stockdata/core"
	"stockdata/errs"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

var (
	Loaded   *Config
	Database *DatabaseConfig
	API      *APIConfig
	Schedule *ScheduleConfig
	Server   *ServerConfig
	Markets  map[string]*MarketConfig

	validate = validator.New()
)

type Config struct {
	DataDir  string                   `mapstructure:"data_dir"`
	LogLevel string                   `mapstructure:"log_level"`
	LogFile  string                   `mapstructure:"log_file"`
	Database *DatabaseConfig          `mapstructure:"database" validate:"required"`
	API      *APIConfig               `mapstructure:"api"`
	Schedule *ScheduleConfig          `mapstructure:"schedule"`
	Server   *ServerConfig            `mapstructure:"server"`
	Markets  map[string]*MarketConfig `mapstructure:"markets"`
}

type DatabaseConfig struct {
	Url         string `mapstructure:"url" validate:"required"`
	MaxPoolSize int    `mapstructure:"max_pool_size"`
	AutoCreate  bool   `mapstructure:"auto_create"`
}

type APIConfig struct {
	MaxRetries    int `mapstructure:"max_retries" validate:"gte=0"`
	RetryInterval int `mapstructure:"retry_interval" validate:"gte=0"` // seconds
}

type ScheduleConfig struct {
	Enable           bool `mapstructure:"enable"`
	CodesIntervalHrs int  `mapstructure:"codes_interval_hours" validate:"gte=1"`
	PriceIntervalMin int  `mapstructure:"price_interval_minutes" validate:"gte=1"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// MarketConfig lists the codes each driver cycles over. Codes use the
// source notation of that market (sh600519, 00700, AAPL).
type MarketConfig struct {
	DayCodes    []string `mapstructure:"day_codes"`
	MinuteCodes []string `mapstructure:"minute_codes"`
}

func defaults() *Config {
	return &Config{
		DataDir:  "data",
		LogLevel: "info",
		Database: &DatabaseConfig{MaxPoolSize: 10, AutoCreate: true},
		API:      &APIConfig{MaxRetries: core.DefRetryNum, RetryInterval: core.DefRetryWaitS},
		Schedule: &ScheduleConfig{Enable: true, CodesIntervalHrs: 24, PriceIntervalMin: 1},
		Server:   &ServerConfig{Addr: "0.0.0.0:5001"},
		Markets: map[string]*MarketConfig{
			core.MarketCN: {},
			core.MarketHK: {},
			core.MarketUS: {},
		},
	}
}

// Load reads the yaml config at path, layers it over the defaults and
// publishes the package-level views. The yaml goes through a generic map
// and mapstructure so partial files and scalar/string mixups are
// tolerated the same way regardless of which tool wrote the file.
func Load(path string) *errs.Error {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return errs.New(core.ErrBadConfig, err)
		}
		var tree map[string]interface{}
		if err = yaml.Unmarshal(raw, &tree); err != nil {
			return errs.New(core.ErrBadConfig, err)
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			TagName:          "mapstructure",
		})
		if err != nil {
			return errs.New(core.ErrBadConfig, err)
		}
		if err = dec.Decode(tree); err != nil {
			return errs.New(core.ErrBadConfig, err)
		}
	}
	if err := validate.Struct(cfg); err != nil {
		return errs.New(core.ErrBadConfig, err)
	}
	apply(cfg)
	return nil
}

func apply(cfg *Config) {
	Loaded = cfg
	Database = cfg.Database
	API = cfg.API
	Schedule = cfg.Schedule
	Server = cfg.Server
	Markets = cfg.Markets
	core.DataDir = GetDataDir()
}

func GetDataDir() string {
	if Loaded == nil || Loaded.DataDir == "" {
		return "data"
	}
	if abs, err := filepath.Abs(Loaded.DataDir); err == nil {
		return abs
	}
	return Loaded.DataDir
}

// Market returns the config block for a market, never nil.
func Market(name string) *MarketConfig {
	if Markets != nil {
		if mc, ok := Markets[name]; ok && mc != nil {
			return mc
		}
	}
	return &MarketConfig{}
}

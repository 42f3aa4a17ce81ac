package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/loader"
	"github.com/KaramelBytes/datalens-cli/internal/profile"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Profiling
	Weights              profile.Weights `mapstructure:"weights" yaml:"weights"`
	StrongCorrelation    float64         `mapstructure:"strong_correlation" yaml:"strong_correlation"`
	HighMissingThreshold float64         `mapstructure:"high_missing_threshold" yaml:"high_missing_threshold"`
	OutlierThreshold     float64         `mapstructure:"outlier_threshold" yaml:"outlier_threshold"`
	MaxRows              int             `mapstructure:"max_rows" yaml:"max_rows"`
	Workers              int             `mapstructure:"workers" yaml:"workers"`

	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
	HistoryDir  string `mapstructure:"history_dir" yaml:"history_dir"`
	SaveHistory bool   `mapstructure:"save_history" yaml:"save_history"`

	// Server
	ServerAddr  string `mapstructure:"server_addr" yaml:"server_addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// AI explanations (OpenAI-compatible chat completions)
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Model       string  `mapstructure:"model" yaml:"model"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
}

// DefaultDir is ~/.datalens.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datalens"), nil
}

// Save writes the given configuration to cfgFile, or ~/.datalens/config.yaml when empty.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (DATALENS_*, including a .env file in the working directory) > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// .env never overrides variables already set in the environment
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DATALENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	w := profile.DefaultWeights()
	opt := profile.DefaultOptions()
	v.SetDefault("weights.completeness", w.Completeness)
	v.SetDefault("weights.uniqueness", w.Uniqueness)
	v.SetDefault("weights.numeric", w.Numeric)
	v.SetDefault("weights.categorical", w.Categorical)
	v.SetDefault("strong_correlation", opt.StrongCorrelation)
	v.SetDefault("high_missing_threshold", opt.HighMissingThreshold)
	v.SetDefault("outlier_threshold", opt.OutlierThreshold)
	v.SetDefault("max_rows", loader.DefaultOptions().MaxRows)
	v.SetDefault("workers", 4)
	v.SetDefault("output_dir", "output")
	v.SetDefault("history_dir", "")
	v.SetDefault("save_history", true)
	v.SetDefault("server_addr", ":8000")
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("log_level", "info")
	v.SetDefault("api_key", "")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("base_url", "https://api.openai.com/v1")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("temperature", 0.3)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine; a broken one is not
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.HistoryDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		c.HistoryDir = filepath.Join(dir, "history")
	}
	c.HistoryDir = utils.ExpandHome(c.HistoryDir)
	c.OutputDir = utils.ExpandHome(c.OutputDir)
	return &c, nil
}

// ProfileOptions maps the configuration onto profiler options.
func (c *Global) ProfileOptions() profile.Options {
	opt := profile.DefaultOptions()
	opt.Weights = c.Weights
	opt.StrongCorrelation = c.StrongCorrelation
	opt.HighMissingThreshold = c.HighMissingThreshold
	opt.OutlierThreshold = c.OutlierThreshold
	return opt
}

// LoadOptions maps the configuration onto loader options.
func (c *Global) LoadOptions() loader.Options {
	opt := loader.DefaultOptions()
	opt.MaxRows = c.MaxRows
	return opt
}

// Keys lists the settable configuration keys.
func Keys() []string {
	return []string{
		"weights.completeness", "weights.uniqueness", "weights.numeric", "weights.categorical",
		"strong_correlation", "high_missing_threshold", "outlier_threshold",
		"max_rows", "workers", "output_dir", "history_dir", "save_history",
		"server_addr", "max_upload_mb", "log_level",
		"api_key", "model", "base_url", "max_tokens", "temperature",
		"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	}
}

// Set parses val and assigns it to key.
func (c *Global) Set(key, val string) error {
	val = strings.TrimSpace(val)
	switch key {
	case "weights.completeness":
		return setFloat(&c.Weights.Completeness, key, val, 0, 1)
	case "weights.uniqueness":
		return setFloat(&c.Weights.Uniqueness, key, val, 0, 1)
	case "weights.numeric":
		return setFloat(&c.Weights.Numeric, key, val, 0, 1)
	case "weights.categorical":
		return setFloat(&c.Weights.Categorical, key, val, 0, 1)
	case "strong_correlation":
		return setThreshold(&c.StrongCorrelation, key, val, false)
	case "high_missing_threshold":
		return setThreshold(&c.HighMissingThreshold, key, val, true)
	case "outlier_threshold":
		return setFloat(&c.OutlierThreshold, key, val, 0, 1e6)
	case "temperature":
		return setFloat(&c.Temperature, key, val, 0, 2)
	case "max_rows":
		return setInt(&c.MaxRows, key, val)
	case "workers":
		return setInt(&c.Workers, key, val)
	case "max_upload_mb":
		return setInt(&c.MaxUploadMB, key, val)
	case "max_tokens":
		return setInt(&c.MaxTokens, key, val)
	case "http_timeout_sec":
		return setInt(&c.HTTPTimeoutSec, key, val)
	case "retry_max_attempts":
		return setInt(&c.RetryMaxAttempts, key, val)
	case "retry_base_delay_ms":
		return setInt(&c.RetryBaseDelayMs, key, val)
	case "retry_max_delay_ms":
		return setInt(&c.RetryMaxDelayMs, key, val)
	case "save_history":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		c.SaveHistory = b
	case "output_dir":
		c.OutputDir = val
	case "history_dir":
		c.HistoryDir = val
	case "server_addr":
		c.ServerAddr = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error", "off":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn, error or off)", val)
		}
	case "api_key":
		c.APIKey = val
	case "model":
		c.Model = val
	case "base_url":
		c.BaseURL = strings.TrimRight(val, "/")
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Get renders the current value of key; ok is false for unknown keys.
func (c *Global) Get(key string) (string, bool) {
	switch key {
	case "weights.completeness":
		return strconv.FormatFloat(c.Weights.Completeness, 'g', -1, 64), true
	case "weights.uniqueness":
		return strconv.FormatFloat(c.Weights.Uniqueness, 'g', -1, 64), true
	case "weights.numeric":
		return strconv.FormatFloat(c.Weights.Numeric, 'g', -1, 64), true
	case "weights.categorical":
		return strconv.FormatFloat(c.Weights.Categorical, 'g', -1, 64), true
	case "strong_correlation":
		return strconv.FormatFloat(c.StrongCorrelation, 'g', -1, 64), true
	case "high_missing_threshold":
		return strconv.FormatFloat(c.HighMissingThreshold, 'g', -1, 64), true
	case "outlier_threshold":
		return strconv.FormatFloat(c.OutlierThreshold, 'g', -1, 64), true
	case "temperature":
		return strconv.FormatFloat(c.Temperature, 'g', -1, 64), true
	case "max_rows":
		return strconv.Itoa(c.MaxRows), true
	case "workers":
		return strconv.Itoa(c.Workers), true
	case "max_upload_mb":
		return strconv.Itoa(c.MaxUploadMB), true
	case "max_tokens":
		return strconv.Itoa(c.MaxTokens), true
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec), true
	case "retry_max_attempts":
		return strconv.Itoa(c.RetryMaxAttempts), true
	case "retry_base_delay_ms":
		return strconv.Itoa(c.RetryBaseDelayMs), true
	case "retry_max_delay_ms":
		return strconv.Itoa(c.RetryMaxDelayMs), true
	case "save_history":
		return strconv.FormatBool(c.SaveHistory), true
	case "output_dir":
		return c.OutputDir, true
	case "history_dir":
		return c.HistoryDir, true
	case "server_addr":
		return c.ServerAddr, true
	case "log_level":
		return c.LogLevel, true
	case "api_key":
		return c.APIKey, true
	case "model":
		return c.Model, true
	case "base_url":
		return c.BaseURL, true
	}
	return "", false
}

func setFloat(dst *float64, key, val string, lo, hi float64) error {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < lo || f > hi {
		return fmt.Errorf("invalid float for %s: %v (want %g..%g)", key, val, lo, hi)
	}
	*dst = f
	return nil
}

// setThreshold accepts values in (0,1), or (0,1] when one is allowed.
// Zero is rejected since the profiler reads it as "use the default".
func setThreshold(dst *float64, key, val string, one bool) error {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f <= 0 || f > 1 || (f == 1 && !one) {
		if one {
			return fmt.Errorf("invalid threshold for %s: %v (want 0 < x <= 1)", key, val)
		}
		return fmt.Errorf("invalid threshold for %s: %v (want 0 < x < 1)", key, val)
	}
	*dst = f
	return nil
}

func setInt(dst *int, key, val string) error {
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return fmt.Errorf("invalid int for %s: %v", key, val)
	}
	*dst = i
	return nil
}

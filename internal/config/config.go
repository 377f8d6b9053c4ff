package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/retsign/internal/core"
	"github.com/newthinker/retsign/internal/search"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// DateLayout is the format of data.from and data.to.
const DateLayout = "2006-01-02"

type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Model   ModelConfig   `mapstructure:"model"`
	Search  SearchConfig  `mapstructure:"search"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Report  ReportConfig  `mapstructure:"report"`
}

type DataConfig struct {
	Source    string          `mapstructure:"source"` // "yahoo" or "synthetic"
	Symbol    string          `mapstructure:"symbol"`
	From      string          `mapstructure:"from"`
	To        string          `mapstructure:"to"` // empty means today
	Interval  string          `mapstructure:"interval"`
	Synthetic SyntheticConfig `mapstructure:"synthetic"`
}

type SyntheticConfig struct {
	Length     int     `mapstructure:"length"`
	Drift      float64 `mapstructure:"drift"`
	Volatility float64 `mapstructure:"volatility"`
	Seed       uint64  `mapstructure:"seed"`
}

type ModelConfig struct {
	SeqLength int `mapstructure:"seq_length"`
	BatchSize int `mapstructure:"batch_size"`
}

type SearchConfig struct {
	Trials             int                   `mapstructure:"trials"`
	Seed               uint64                `mapstructure:"seed"`
	ValidationFraction float64               `mapstructure:"validation_fraction"`
	FailurePolicy      string                `mapstructure:"failure_policy"`
	TimeBudget         time.Duration         `mapstructure:"time_budget"`
	Space              map[string]SpaceParam `mapstructure:"space"`
}

// SpaceParam declares the bounds of one hyperparameter.
type SpaceParam struct {
	Kind string  `mapstructure:"kind"`
	Min  float64 `mapstructure:"min"`
	Max  float64 `mapstructure:"max"`
	Step float64 `mapstructure:"step"`
	Log  bool    `mapstructure:"log"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"` // empty disables the rotating file
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	Compress    bool   `mapstructure:"compress"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "none", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type ReportConfig struct {
	Format    string  `mapstructure:"format"` // "json" or "msgpack"
	Backtest  bool    `mapstructure:"backtest"`
	Threshold float64 `mapstructure:"threshold"`
}

// LoadEnv loads KEY=VALUE pairs from the given files (default .env) into
// the process environment. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Data: DataConfig{
			Source:   "synthetic",
			Symbol:   "SIM",
			From:     "2015-01-01",
			Interval: "1d",
			Synthetic: SyntheticConfig{
				Length:     1000,
				Drift:      0.0003,
				Volatility: 0.01,
				Seed:       1,
			},
		},
		Model: ModelConfig{
			SeqLength: 50,
			BatchSize: 32,
		},
		Search: SearchConfig{
			Trials:             search.DefaultTrials,
			Seed:               42,
			ValidationFraction: 0.2,
			FailurePolicy:      string(search.PolicyRecord),
			Space:              spaceToConfig(search.DefaultSpace()),
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
		},
		Archive: ArchiveConfig{
			Type: "none",
			Path: "./runs",
		},
		Report: ReportConfig{
			Format:    "json",
			Backtest:  true,
			Threshold: 0.5,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Data validation
	if c.Data.Source == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("data.source is required"))
	}
	if c.Data.Symbol == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("data.symbol is required"))
	}
	if _, _, err := c.Data.Range(time.Now()); err != nil {
		return err
	}
	if c.Data.Synthetic.Length < 0 || c.Data.Synthetic.Volatility < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("synthetic length and volatility cannot be negative"))
	}

	// Model validation
	if c.Model.SeqLength < 4 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("seq_length must be at least 4, got %d", c.Model.SeqLength))
	}
	if c.Model.BatchSize < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("batch_size must be positive, got %d", c.Model.BatchSize))
	}

	// Search validation
	if c.Search.Trials < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("trials must be positive, got %d", c.Search.Trials))
	}
	if c.Search.ValidationFraction < 0 || c.Search.ValidationFraction > 0.9 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("validation_fraction must be between 0 and 0.9, got %f", c.Search.ValidationFraction))
	}
	switch search.FailurePolicy(c.Search.FailurePolicy) {
	case search.PolicyRecord, search.PolicyAbort:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("failure_policy must be record or abort, got %q", c.Search.FailurePolicy))
	}
	if c.Search.TimeBudget < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("time_budget cannot be negative, got %s", c.Search.TimeBudget))
	}
	space := c.Search.SearchSpace()
	if err := space.Validate(); err != nil {
		return err
	}
	if err := space.CheckArchitecture(c.Model.SeqLength); err != nil {
		return err
	}

	// Logging validation
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("logging.level: %w", err))
	}

	// Metrics validation
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("metrics.addr required when metrics are enabled"))
	}

	// Archive validation
	switch c.Archive.Type {
	case "", "none":
	case "localfs":
		if c.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive.path required when type is localfs"))
		}
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive.s3.bucket required when type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("archive.type must be none, localfs or s3, got %q", c.Archive.Type))
	}

	// Report validation
	switch c.Report.Format {
	case "", "json", "msgpack":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("report.format must be json or msgpack, got %q", c.Report.Format))
	}
	if c.Report.Threshold <= 0 || c.Report.Threshold >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("report.threshold must be between 0 and 1, got %f", c.Report.Threshold))
	}

	return nil
}

// Range parses the data window. An empty To means now.
func (d DataConfig) Range(now time.Time) (from, to time.Time, err error) {
	from, err = time.Parse(DateLayout, d.From)
	if err != nil {
		return from, to, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("data.from: %w", err))
	}
	to = now
	if d.To != "" {
		if to, err = time.Parse(DateLayout, d.To); err != nil {
			return from, to, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("data.to: %w", err))
		}
	}
	if !to.After(from) {
		return from, to, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data.to %s is not after data.from %s", to.Format(DateLayout), d.From))
	}
	return from, to, nil
}

// SearchSpace converts the configured space into the sampler's table.
// Known fields keep their canonical order; unknown ones follow, sorted,
// so that Validate can name them.
func (s SearchConfig) SearchSpace() search.Space {
	var out search.Space
	seen := make(map[string]bool, len(s.Space))
	for _, p := range search.DefaultSpace() {
		if sp, ok := s.Space[p.Name]; ok {
			out = append(out, sp.param(p.Name))
			seen[p.Name] = true
		}
	}

	var extra []string
	for name := range s.Space {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, s.Space[name].param(name))
	}
	return out
}

func (p SpaceParam) param(name string) search.Param {
	return search.Param{
		Name: name,
		Kind: search.Kind(p.Kind),
		Min:  p.Min,
		Max:  p.Max,
		Step: p.Step,
		Log:  p.Log,
	}
}

func spaceToConfig(space search.Space) map[string]SpaceParam {
	out := make(map[string]SpaceParam, len(space))
	for _, p := range space {
		out[p.Name] = SpaceParam{Kind: string(p.Kind), Min: p.Min, Max: p.Max, Step: p.Step, Log: p.Log}
	}
	return out
}

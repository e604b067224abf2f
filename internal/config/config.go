// Package config loads the service configuration from defaults, an optional
// file and SKELID_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ayusman/skelid/internal/biometric"
	"github.com/ayusman/skelid/internal/presence"
	"github.com/ayusman/skelid/internal/responder"
	"github.com/ayusman/skelid/internal/sensor"
	"github.com/ayusman/skelid/internal/session"
)

// EnvPrefix prefixes every environment override, e.g. SKELID_DB_PATH.
const EnvPrefix = "SKELID"

// Config is the complete service configuration.
type Config struct {
	DBPath    string `mapstructure:"db_path"`
	HTTPAddr  string `mapstructure:"http_addr"`
	StaticDir string `mapstructure:"static_dir"`

	ResponderAddr string `mapstructure:"responder_addr"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisKey      string `mapstructure:"redis_key"`

	Source     string `mapstructure:"source"`
	SourcePath string `mapstructure:"source_path"`
	SourceCmd  string `mapstructure:"source_cmd"`
	SourceFPS  int    `mapstructure:"source_fps"`
	SourceLoop bool   `mapstructure:"source_loop"`

	GestureFrames    int     `mapstructure:"gesture_frames"`
	SampleTarget     int     `mapstructure:"sample_target"`
	MatchThreshold   int     `mapstructure:"match_threshold"`
	MatchToleranceCm float64 `mapstructure:"match_tolerance_cm"`
	QueryBandCm      float64 `mapstructure:"query_band_cm"`
	DivisorPolicy    string  `mapstructure:"divisor_policy"`
	DedupPolicy      string  `mapstructure:"dedup_policy"`
	TiePolicy        string  `mapstructure:"tie_policy"`

	HookDir       string `mapstructure:"hook_dir"`
	HookTimeoutMs int    `mapstructure:"hook_timeout_ms"`

	Tray         bool `mapstructure:"tray"`
	Render       bool `mapstructure:"render"`
	RenderWidth  int  `mapstructure:"render_width"`
	RenderHeight int  `mapstructure:"render_height"`
}

// dataDir is where the database and hooks live by default.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".skelid")
}

func setDefaults(v *viper.Viper) {
	dir := dataDir()

	v.SetDefault("db_path", filepath.Join(dir, "skelid.db"))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("static_dir", "")

	v.SetDefault("responder_addr", responder.DefaultAddr)

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_key", presence.DefaultRedisKey)

	v.SetDefault("source", "mock")
	v.SetDefault("source_path", "")
	v.SetDefault("source_cmd", "")
	v.SetDefault("source_fps", 30)
	v.SetDefault("source_loop", false)

	v.SetDefault("gesture_frames", session.DefaultGestureFrames)
	v.SetDefault("sample_target", biometric.DefaultSampleTarget)
	v.SetDefault("match_threshold", biometric.DefaultMatchThreshold)
	v.SetDefault("match_tolerance_cm", biometric.DefaultToleranceCm)
	v.SetDefault("query_band_cm", biometric.DefaultQueryBandCm)
	v.SetDefault("divisor_policy", "total")
	v.SetDefault("dedup_policy", "first")
	v.SetDefault("tie_policy", "last")

	v.SetDefault("hook_dir", filepath.Join(dir, "hooks"))
	v.SetDefault("hook_timeout_ms", 5000)

	v.SetDefault("tray", false)
	v.SetDefault("render", true)
	v.SetDefault("render_width", 640)
	v.SetDefault("render_height", 480)
}

// Load reads the configuration. path names an optional YAML, JSON or TOML
// file; environment variables override both the file and the defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	positive := []struct {
		name  string
		value float64
	}{
		{"gesture_frames", float64(c.GestureFrames)},
		{"sample_target", float64(c.SampleTarget)},
		{"match_threshold", float64(c.MatchThreshold)},
		{"match_tolerance_cm", c.MatchToleranceCm},
		{"query_band_cm", c.QueryBandCm},
		{"hook_timeout_ms", float64(c.HookTimeoutMs)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", p.name, p.value))
		}
	}
	if c.MatchThreshold > int(biometric.NumSegments) {
		errs = append(errs, fmt.Errorf("match_threshold %d exceeds the %d segments", c.MatchThreshold, biometric.NumSegments))
	}
	if c.SourceFPS < 0 {
		errs = append(errs, fmt.Errorf("source_fps must not be negative, got %d", c.SourceFPS))
	}

	if _, err := biometric.ParseDivisorPolicy(c.DivisorPolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := biometric.ParseDedupPolicy(c.DedupPolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := biometric.ParseTiePolicy(c.TiePolicy); err != nil {
		errs = append(errs, err)
	}

	if _, err := sensor.New(c.SourceConfig()); err != nil {
		errs = append(errs, err)
	}

	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.Render && (c.RenderWidth <= 0 || c.RenderHeight <= 0) {
		errs = append(errs, fmt.Errorf("render size %dx%d is invalid", c.RenderWidth, c.RenderHeight))
	}

	return errors.Join(errs...)
}

// SourceConfig returns the frame source settings.
func (c Config) SourceConfig() sensor.Config {
	target := c.SourcePath
	if strings.EqualFold(c.Source, "exec") {
		target = c.SourceCmd
	}
	return sensor.Config{
		Kind:   c.Source,
		Target: target,
		FPS:    c.SourceFPS,
		Loop:   c.SourceLoop,
	}
}

// SessionConfig returns the state machine thresholds.
func (c Config) SessionConfig() (session.Config, error) {
	divisor, err := biometric.ParseDivisorPolicy(c.DivisorPolicy)
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		GestureFrames: c.GestureFrames,
		SampleTarget:  c.SampleTarget,
		QueryBandCm:   c.QueryBandCm,
		Divisor:       divisor,
	}, nil
}

// Matcher returns a matcher with the configured threshold and policies.
func (c Config) Matcher() (*biometric.Matcher, error) {
	dedup, err := biometric.ParseDedupPolicy(c.DedupPolicy)
	if err != nil {
		return nil, err
	}
	tie, err := biometric.ParseTiePolicy(c.TiePolicy)
	if err != nil {
		return nil, err
	}

	m := biometric.NewMatcher()
	m.Threshold = c.MatchThreshold
	m.ToleranceCm = c.MatchToleranceCm
	m.Dedup = dedup
	m.Tie = tie
	return m, nil
}

// HookTimeout returns the per-hook time limit.
func (c Config) HookTimeout() time.Duration {
	return time.Duration(c.HookTimeoutMs) * time.Millisecond
}

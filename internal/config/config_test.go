package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/skelid/internal/biometric"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "tcp://*:2804", cfg.ResponderAddr)
	assert.Equal(t, "skelid:presence", cfg.RedisKey)
	assert.Equal(t, "mock", cfg.Source)
	assert.Equal(t, 20, cfg.GestureFrames)
	assert.Equal(t, 50, cfg.SampleTarget)
	assert.Equal(t, 7, cfg.MatchThreshold)
	assert.Equal(t, 0.5, cfg.MatchToleranceCm)
	assert.Equal(t, 0.1, cfg.QueryBandCm)
	assert.Equal(t, 5*time.Second, cfg.HookTimeout())
	assert.True(t, cfg.Render)
	assert.False(t, cfg.Tray)
	assert.Equal(t, "skelid.db", filepath.Base(cfg.DBPath))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SKELID_HTTP_ADDR", ":9000")
	t.Setenv("SKELID_GESTURE_FRAMES", "5")
	t.Setenv("SKELID_QUERY_BAND_CM", "0.25")
	t.Setenv("SKELID_TRAY", "true")
	t.Setenv("SKELID_TIE_POLICY", "highest")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 5, cfg.GestureFrames)
	assert.Equal(t, 0.25, cfg.QueryBandCm)
	assert.True(t, cfg.Tray)
	assert.Equal(t, "highest", cfg.TiePolicy)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skelid.yaml")
	content := `
db_path: /tmp/people.db
source: replay
source_path: /tmp/session.jsonl
source_loop: true
sample_target: 10
dedup_policy: best
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("SKELID_SAMPLE_TARGET", "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/tmp/people.db", cfg.DBPath)
	assert.Equal(t, 12, cfg.SampleTarget, "environment beats the file")
	assert.Equal(t, "best", cfg.DedupPolicy)

	src := cfg.SourceConfig()
	assert.Equal(t, "replay", src.Kind)
	assert.Equal(t, "/tmp/session.jsonl", src.Target)
	assert.True(t, src.Loop)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSourceConfig_Exec(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Source = "exec"
	cfg.SourcePath = "/ignored"
	cfg.SourceCmd = "kinect-bridge --json"

	assert.Equal(t, "kinect-bridge --json", cfg.SourceConfig().Target)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero gesture frames", func(c *Config) { c.GestureFrames = 0 }},
		{"negative sample target", func(c *Config) { c.SampleTarget = -1 }},
		{"threshold above segments", func(c *Config) { c.MatchThreshold = 15 }},
		{"zero tolerance", func(c *Config) { c.MatchToleranceCm = 0 }},
		{"zero band", func(c *Config) { c.QueryBandCm = 0 }},
		{"unknown divisor", func(c *Config) { c.DivisorPolicy = "median" }},
		{"unknown dedup", func(c *Config) { c.DedupPolicy = "merge" }},
		{"unknown tie", func(c *Config) { c.TiePolicy = "random" }},
		{"unknown source", func(c *Config) { c.Source = "kinect" }},
		{"replay without path", func(c *Config) { c.Source = "replay" }},
		{"exec without command", func(c *Config) { c.Source = "exec" }},
		{"no database", func(c *Config) { c.DBPath = "" }},
		{"bad render size", func(c *Config) { c.RenderWidth = 0 }},
		{"zero hook timeout", func(c *Config) { c.HookTimeoutMs = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSessionConfigAndMatcher(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.DivisorPolicy = "valid"
	cfg.DedupPolicy = "best"
	cfg.TiePolicy = "highest"
	cfg.MatchThreshold = 9

	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, biometric.DivideByValid, sc.Divisor)
	assert.Equal(t, 20, sc.GestureFrames)

	m, err := cfg.Matcher()
	require.NoError(t, err)
	assert.Equal(t, 9, m.Threshold)
	assert.Equal(t, biometric.BestRow, m.Dedup)
	assert.Equal(t, biometric.HighestCount, m.Tie)

	cfg.TiePolicy = "coin"
	_, err = cfg.Matcher()
	assert.Error(t, err)
}

package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/errors"
)

func TestDefaultAnswers(t *testing.T) {
	tests := []struct {
		name  string
		flags SourceFlags
		want  InitAnswers
	}{
		{
			name: "defaults",
			want: InitAnswers{Kind: config.SourceHost, Host: "http://localhost:44322", Interval: "1.5s"},
		},
		{
			name:  "ssh hosts joined",
			flags: SourceFlags{SSH: []string{"gpu-box", "backup"}},
			want:  InitAnswers{Kind: config.SourceSSH, Host: "http://localhost:44322", SSH: "gpu-box,backup", Interval: "1.5s"},
		},
		{
			name:  "archive",
			flags: SourceFlags{Archive: "rec.yaml"},
			want:  InitAnswers{Kind: config.SourceArchive, Host: "http://localhost:44322", Archive: "rec.yaml", Interval: "1.5s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, defaultAnswers(tt.flags))
		})
	}
}

func TestRenderInitConfig_LoadsBack(t *testing.T) {
	tests := []struct {
		name    string
		answers InitAnswers
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name:    "host",
			answers: InitAnswers{Kind: config.SourceHost, Host: "http://pcp.lab:44322", Interval: "2s"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "http://pcp.lab:44322", cfg.Source.Host)
				assert.Equal(t, 2*time.Second, cfg.Refresh.Interval)
			},
		},
		{
			name:    "ssh with fallback",
			answers: InitAnswers{Kind: config.SourceSSH, SSH: "gpu-box, user@backup", Interval: "1.5s"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, []string{"gpu-box", "user@backup"}, cfg.Source.SSH)
				assert.Equal(t, "pminfo", cfg.Source.PMInfo)
			},
		},
		{
			name:    "local",
			answers: InitAnswers{Kind: config.SourceLocal, Interval: "500ms"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.SourceLocal, cfg.Source.Kind)
				assert.Equal(t, 500*time.Millisecond, cfg.Refresh.Interval)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := renderInitConfig(tt.answers)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), config.ConfigFileName)
			require.NoError(t, os.WriteFile(path, data, 0644))
			cfg, err := config.Load(path)
			require.NoError(t, err)
			require.NoError(t, config.Validate(cfg))

			assert.Equal(t, tt.answers.Kind, cfg.Source.Kind)
			assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
			tt.check(t, cfg)
		})
	}
}

func TestRenderInitConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		answers InitAnswers
	}{
		{"bad interval", InitAnswers{Kind: config.SourceLocal, Interval: "soon"}},
		{"interval too short", InitAnswers{Kind: config.SourceLocal, Interval: "1ms"}},
		{"bad url", InitAnswers{Kind: config.SourceHost, Host: "localhost", Interval: "1s"}},
		{"no ssh host", InitAnswers{Kind: config.SourceSSH, SSH: " , ", Interval: "1s"}},
		{"no archive", InitAnswers{Kind: config.SourceArchive, Interval: "1s"}},
		{"unknown kind", InitAnswers{Kind: "carrier-pigeon", Interval: "1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := renderInitConfig(tt.answers)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}
}

func TestInit_NonInteractive(t *testing.T) {
	dir := t.TempDir()
	opts := InitOptions{
		Source:         SourceFlags{Host: "http://pcp.lab:44322"},
		NonInteractive: true,
		Dir:            dir,
	}
	require.NoError(t, Init(opts))

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, "http://pcp.lab:44322", cfg.Source.Host)

	err = Init(opts)
	require.Error(t, err, "an existing config needs --force")
	assert.Contains(t, err.Error(), "already exists")

	opts.Overwrite = true
	opts.Source = SourceFlags{Local: true}
	require.NoError(t, Init(opts))
	cfg, err = config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, config.SourceLocal, cfg.Source.Kind)
}

func TestValidateInterval(t *testing.T) {
	assert.NoError(t, validateInterval("1.5s"))
	assert.NoError(t, validateInterval(" 100ms "))
	assert.Error(t, validateInterval("50ms"))
	assert.Error(t, validateInterval("fast"))
}

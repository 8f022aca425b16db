package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "shadow-pace", cfg.App.Name)
	assert.Equal(t, "Asia/Kolkata", cfg.App.DefaultTimezone)
	assert.Equal(t, "Asia/Kolkata", cfg.App.Location.String())
	assert.True(t, cfg.IsDevelopment())

	assert.Equal(t, 7, cfg.Pace.NightlyWindow)
	assert.Equal(t, 0.25, cfg.Pace.NightlyAlpha)
	assert.Equal(t, 0.5, cfg.Pace.IntradayAlpha)
	assert.Equal(t, 0.5, cfg.Pace.ClampMin)
	assert.Equal(t, 5.0, cfg.Pace.ClampMax)
	assert.Equal(t, 6*time.Hour, cfg.Pace.Lookback)
	assert.Equal(t, 30, cfg.Pace.MaxSamples)
	assert.Equal(t, 20, cfg.Pace.NightlyDailyCap)
	assert.Equal(t, 3, cfg.Pace.TauntDailyCap)

	assert.Equal(t, "0 2 * * *", cfg.Scheduler.NightlySmoothCron)
	assert.Equal(t, "*/30 * * * *", cfg.Scheduler.RunTodayCron)
	assert.Equal(t, "*/10 * * * *", cfg.Scheduler.TauntCron)
	assert.Equal(t, "30 3 * * 1", cfg.Scheduler.WeeklySummarizeCron)
	assert.Equal(t, "5 * * * *", cfg.Scheduler.GenerateEventsCron)

	assert.Equal(t, 48*time.Hour, cfg.Redis.SampleRetention)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoadFrom_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("APP_DEFAULT_TIMEZONE", "Europe/Berlin")
	v.Set("HTTP_PORT", "9090")
	v.Set("HTTP_CORS_ORIGINS", "https://a.example, ,https://b.example")
	v.Set("PACE_NIGHTLY_ALPHA", "0.4")
	v.Set("AI_TIMEOUT", "2s")
	v.Set("GEMINI_API_KEY", "k")
	v.Set("FEATURE_NOTIFY_TAUNT_ENGINE", "false")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.App.Location.String())
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 0.4, cfg.Pace.NightlyAlpha)
	assert.Equal(t, 2*time.Second, cfg.AI.Timeout)
	assert.True(t, cfg.AI.Enabled())
	assert.False(t, cfg.Features.IsEnabled(FeatureNotifyTauntEngine, nil))
	assert.True(t, cfg.Features.IsEnabled(FeatureNotifyCommitNudge, nil))
}

func TestLoadFrom_LegacyTimezoneKey(t *testing.T) {
	v := viper.New()
	v.Set("DEFAULT_TIMEZONE", "America/New_York")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", cfg.App.DefaultTimezone)
}

func TestLoadFrom_BadTimezoneFallsBackToUTC(t *testing.T) {
	v := viper.New()
	v.Set("APP_DEFAULT_TIMEZONE", "Mars/Olympus")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cfg.App.Location)
}

func TestLoadFrom_UnparseableFallsBackToDefault(t *testing.T) {
	v := viper.New()
	v.Set("PACE_MAX_SAMPLES", "lots")
	v.Set("AI_DEBUG", "maybe")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Pace.MaxSamples)
	assert.False(t, cfg.AI.Debug)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]string
		want string
	}{
		{"inverted clamp", map[string]string{"PACE_CLAMP_MIN": "6"}, "PACE_CLAMP_MIN"},
		{"alpha zero", map[string]string{"PACE_NIGHTLY_ALPHA": "0"}, "PACE_NIGHTLY_ALPHA"},
		{"intraday alpha above one", map[string]string{"PACE_INTRADAY_ALPHA": "1.5"}, "PACE_INTRADAY_ALPHA"},
		{"bad port", map[string]string{"HTTP_PORT": "70000"}, "HTTP_PORT"},
		{"production without secrets", map[string]string{"APP_ENV": "production"}, "AUTH_JWT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := LoadFrom(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("CRON_SECRET", "s3cret")
	t.Setenv("SCHEDULER_BATCH_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvStaging, cfg.App.Environment)
	assert.Equal(t, "s3cret", cfg.HTTP.CronSecret)
	assert.Equal(t, 8, cfg.Scheduler.BatchConcurrency)
}

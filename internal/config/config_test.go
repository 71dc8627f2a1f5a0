package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults with memory driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "secret")
		t.Setenv("STORAGE_DRIVER", "memory")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.App.Port)
		assert.Equal(t, 2000, cfg.Session.ScreenshotCeiling)
		assert.Equal(t, 12*time.Hour, cfg.Session.StaleAfter)
		assert.Equal(t, 30*time.Minute, cfg.Attendance.NightLateGrace)
		assert.Equal(t, 15*time.Minute, cfg.Cron.Interval)
		assert.Equal(t, float64(5000), cfg.Office.RemoteThresholdMeters)
		assert.Equal(t, time.UTC, cfg.App.Timezone)
		assert.Empty(t, cfg.App.CORSAllowedOrigins)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "secret")
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("OFFICE_LATITUDE", "-6.2")
		t.Setenv("SESSION_STALE_AFTER", "1h")
		t.Setenv("APP_TIMEZONE", "Asia/Jakarta")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, -6.2, cfg.Office.Latitude)
		assert.Equal(t, time.Hour, cfg.Session.StaleAfter)
		assert.Equal(t, "Asia/Jakarta", cfg.App.Timezone.String())
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.CORSAllowedOrigins)
	})

	t.Run("malformed value", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "secret")
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("CHECKOUT_GRACE", "two hours")

		_, err := Load()
		assert.ErrorContains(t, err, "CHECKOUT_GRACE")
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "")
		t.Setenv("STORAGE_DRIVER", "memory")

		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET_KEY")
	})

	t.Run("postgres needs password", func(t *testing.T) {
		t.Setenv("JWT_SECRET_KEY", "secret")
		t.Setenv("STORAGE_DRIVER", "postgres")
		t.Setenv("DB_PASSWORD", "")

		_, err := Load()
		assert.ErrorContains(t, err, "DB_PASSWORD")
	})
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			cfg := Config{App: AppConfig{LogLevel: in}}
			assert.Equal(t, want, cfg.SlogLevel())
		})
	}
}

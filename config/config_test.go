package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", Production)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "postgres://localhost/test", cfg.DBUrl)
	require.Equal(t, 10, cfg.Import.CommitInterval)
	require.Equal(t, 50, cfg.Import.RefreshInterval)
	require.InDelta(t, 0.80, cfg.Import.FuzzyShortlist, 1e-9)
	require.InDelta(t, 0.90, cfg.Import.FuzzyAccept, 1e-9)
	require.InDelta(t, 0.80, cfg.Import.ReferralThreshold, 1e-9)
	require.Equal(t, "noop", cfg.Email.Provider)
	require.Equal(t, "attendance_import", cfg.Metrics.Job)
	require.Empty(t, cfg.Metrics.PushgatewayURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GO_ENV", Production)
	t.Setenv("IMPORT_COMMIT_INTERVAL", "25")
	t.Setenv("IMPORT_FUZZY_ACCEPT", "0.95")
	t.Setenv("EMAIL_PROVIDER", "ses")
	t.Setenv("EMAIL_FROM_ADDRESS", "imports@example.org")
	t.Setenv("EMAIL_REPORT_TO", "a@example.org,b@example.org")
	t.Setenv("METRICS_PUSHGATEWAY_URL", "http://pushgateway:9091")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 25, cfg.Import.CommitInterval)
	require.InDelta(t, 0.95, cfg.Import.FuzzyAccept, 1e-9)
	require.Equal(t, []string{"a@example.org", "b@example.org"}, cfg.Email.ReportTo)
	require.Equal(t, "http://pushgateway:9091", cfg.Metrics.PushgatewayURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "non numeric interval", env: map[string]string{"IMPORT_REFRESH_INTERVAL": "often"}},
		{name: "zero interval", env: map[string]string{"IMPORT_COMMIT_INTERVAL": "0"}},
		{name: "unknown provider", env: map[string]string{"EMAIL_PROVIDER": "smtp"}},
		{name: "ses without sender", env: map[string]string{"EMAIL_PROVIDER": "ses"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GO_ENV", Production)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, Production, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "rows", 3)
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
	require.Contains(t, buf.String(), `"rows":3`)

	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/safespace/pkg/filter"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 60, cfg.JWT.AccessTokenExpiry)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxSize)
	assert.Equal(t, StorageLocal, cfg.Upload.Backend)
	assert.Equal(t, filter.ModeWholeWord, cfg.Moderation.RealtimeFilterMode)
	assert.Equal(t, filter.ModeSubstring, cfg.Moderation.RESTFilterMode)
	assert.Equal(t, 50, cfg.Moderation.HistoryLimit)
	assert.Equal(t, "General", cfg.Moderation.DefaultChannel)
	assert.Equal(t, time.Duration(0), cfg.Moderation.BanSweepInterval)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	cases := map[string]string{
		"SERVER_PORT":          "http",
		"HISTORY_LIMIT":        "0",
		"BAN_SWEEP_INTERVAL":   "soon",
		"FILTER_REALTIME_MODE": "fuzzy",
		"DATABASE_DRIVER":      "postgres",
		"STORAGE_BACKEND":      "ftp",
	}

	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			t.Setenv(key, val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_S3RequiresBucket(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

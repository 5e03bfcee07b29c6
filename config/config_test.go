package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"DATABASE_URL":   "postgres://localhost/tournaments",
		"JWT_SECRET_KEY": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 4, cfg.MatchesPerDay)
	assert.Equal(t, 2*time.Hour, cfg.MatchSlotInterval)
	assert.Equal(t, 10*time.Second, cfg.OperationTimeout)
	assert.Equal(t, "@every 1m", cfg.StatusCron)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, "tournament-events", cfg.EventsChannel)
	assert.False(t, cfg.R2.Enabled())
	assert.Empty(t, cfg.RedisURL)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"DATABASE_URL":         "postgres://localhost/tournaments",
		"JWT_SECRET_KEY":       "secret",
		"SERVER_PORT":          "9090",
		"MATCHES_PER_DAY":      "6",
		"MATCH_SLOT_INTERVAL":  "90m",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example ,",
		"R2_ENDPOINT":          "http://localhost:9000",
		"R2_ACCESS_KEY_ID":     "key",
		"R2_SECRET_ACCESS_KEY": "secret",
		"R2_BUCKET_NAME":       "brackets",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 6, cfg.MatchesPerDay)
	assert.Equal(t, 90*time.Minute, cfg.MatchSlotInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.R2.Enabled())
}

func TestFromEnvErrors(t *testing.T) {
	base := map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET_KEY": "s"}
	tests := map[string]map[string]string{
		"missing database": {"JWT_SECRET_KEY": "s"},
		"missing secret":   {"DATABASE_URL": "postgres://x"},
		"bad port":         {"SERVER_PORT": "http"},
		"port range":       {"SERVER_PORT": "70000"},
		"bad interval":     {"MATCH_SLOT_INTERVAL": "soon"},
		"zero per day":     {"MATCHES_PER_DAY": "0"},
		"bad rps":          {"RATE_LIMIT_RPS": "fast"},
	}
	for name, overrides := range tests {
		t.Run(name, func(t *testing.T) {
			values := map[string]string{}
			if name != "missing database" && name != "missing secret" {
				for k, v := range base {
					values[k] = v
				}
			}
			for k, v := range overrides {
				values[k] = v
			}
			_, err := FromEnv(envOf(values))
			assert.Error(t, err)
		})
	}
}

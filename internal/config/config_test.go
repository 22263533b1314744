package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("MONGODB_SERVER_SELECTION_TIMEOUT", "")
	t.Setenv("MONGODB_MAX_POOL_SIZE", "")
	t.Setenv("MONGODB_RETIRE_GRACE", "")

	cfg := Load()

	assert.Equal(t, "3001", cfg.App.Port)
	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.Equal(t, 5*time.Second, cfg.Mongo.ServerSelectionTimeout)
	assert.Equal(t, 45*time.Second, cfg.Mongo.SocketTimeout)
	assert.Equal(t, uint64(10), cfg.Mongo.MaxPoolSize)
	assert.Equal(t, 30*time.Second, cfg.Mongo.RetireGrace)
	assert.True(t, cfg.App.Listens())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "serverless")
	t.Setenv("MONGODB_SERVER_SELECTION_TIMEOUT", "2500")
	t.Setenv("MONGODB_SOCKET_TIMEOUT", "1m")

	cfg := Load()

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, EnvServerless, cfg.App.Env)
	assert.Equal(t, 2500*time.Millisecond, cfg.Mongo.ServerSelectionTimeout)
	assert.Equal(t, time.Minute, cfg.Mongo.SocketTimeout)
	assert.False(t, cfg.App.Listens())
	assert.True(t, cfg.App.IsProduction())
}

func TestPoolSizeFallsBackWhenNotPositive(t *testing.T) {
	for _, raw := range []string{"-1", "0", "abc"} {
		t.Setenv("MONGODB_MAX_POOL_SIZE", raw)
		assert.Equal(t, uint64(10), Load().Mongo.MaxPoolSize, raw)
	}

	t.Setenv("MONGODB_MAX_POOL_SIZE", "25")
	assert.Equal(t, uint64(25), Load().Mongo.MaxPoolSize)
}

func TestTestEnvironmentDoesNotListen(t *testing.T) {
	assert.False(t, AppConfig{Env: EnvTest}.Listens())
	assert.True(t, AppConfig{Env: EnvProduction}.Listens())
}

func TestAllowedOrigins(t *testing.T) {
	app := AppConfig{CorsAllowedOrigins: "https://a.example, https://b.example ,"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, app.AllowedOrigins())
}

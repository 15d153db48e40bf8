package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizzer/internal/config"
)

type testConfig struct {
	HTTP struct {
		Port        int32
		CORSOrigins []string
	}

	Redis struct {
		Prefix   string
		CacheTTL time.Duration
	}
}

type validatedConfig struct {
	Port int32
}

func (c *validatedConfig) Validate() error {
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	p := writeFile(t, `
http:
  port: 9090
redis:
  cachettl: 30s
`)

	var c testConfig
	c.HTTP.Port = 8080
	c.Redis.Prefix = "quizzer"

	require.NoError(t, config.Load(p, &c))

	assert.Equal(t, int32(9090), c.HTTP.Port)
	assert.Equal(t, "quizzer", c.Redis.Prefix, "defaults should survive when the file omits a key")
	assert.Equal(t, 30*time.Second, c.Redis.CacheTTL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	p := writeFile(t, "http:\n  port: 9090\n")
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("REDIS_PREFIX", "test")

	var c testConfig
	require.NoError(t, config.Load(p, &c))

	assert.Equal(t, int32(7070), c.HTTP.Port)
	assert.Equal(t, "test", c.Redis.Prefix)
}

func TestLoad_WithoutFile(t *testing.T) {
	var c testConfig
	c.HTTP.Port = 8080

	require.NoError(t, config.Load("", &c))
	assert.Equal(t, int32(8080), c.HTTP.Port)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		var c testConfig
		require.Error(t, config.Load(filepath.Join(t.TempDir(), "nope.yaml"), &c))
	})

	t.Run("validation failure", func(t *testing.T) {
		c := &validatedConfig{}
		err := config.Load("", c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port must be positive")
	})
}

func writeFile(t *testing.T, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

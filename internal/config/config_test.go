package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	var (
		addr = "localhost:8080"
		dsn  = "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"
		key  = "c29tZV9zZWNyZXQ="
		orig = []string{"http://localhost:3000"}
	)

	tcases := []struct {
		name string
		addr string
		dsn  string
		key  string
		orig []string
		err  bool
	}{
		{
			name: "valid config",
			addr: addr,
			dsn:  dsn,
			key:  key,
			orig: orig,
			err:  false,
		},
		{
			name: "empty address",
			addr: "",
			dsn:  dsn,
			key:  key,
			orig: orig,
			err:  true,
		},
		{
			name: "empty DSN",
			addr: addr,
			dsn:  "",
			key:  key,
			orig: orig,
			err:  true,
		},
		{
			name: "empty signing key",
			addr: addr,
			dsn:  dsn,
			key:  "",
			orig: orig,
			err:  true,
		},
		{
			name: "invalid base64 signing key",
			addr: addr,
			dsn:  dsn,
			key:  "not_base64!",
			orig: orig,
			err:  true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			config, err := NewConfig(tc.addr, tc.dsn, tc.key, tc.orig, AgentConfig{})
			if tc.err {
				assert.Error(t, err, "expected error for config: %s", tc.name)
				return
			}
			assert.NoError(t, err, "expected no error for config: %s", tc.name)

			assert.Equal(t, tc.addr, config.ServerAddr, "expected server address to match")
			assert.Equal(t, tc.dsn, config.DatabaseDSN, "expected database DSN to match")
			assert.Equal(t, tc.orig, config.AllowedOrigins, "expected allowed origins to match")
			assert.NotEmpty(t, config.SigningKey, "expected signing key to be decoded and not empty")
		})
	}
}

func TestNewConfig_agentDefaults(t *testing.T) {
	var (
		addr = "localhost:8080"
		dsn  = "host=localhost dbname=postgres"
		key  = "c29tZV9zZWNyZXQ="
	)

	t.Run("defaults applied", func(t *testing.T) {
		config, err := NewConfig(addr, dsn, key, nil, AgentConfig{
			URL:   "https://agent.example.com",
			Token: "tok",
		})
		assert.NoError(t, err, "expected no error")
		assert.Equal(t, defaultAgentModel, config.Agent.Model, "expected default model")
		assert.Equal(t, defaultAgentTimeout, config.Agent.Timeout, "expected default timeout")
		assert.False(t, config.Agent.Mock, "expected real mode with URL and token set")
	})

	t.Run("explicit values kept", func(t *testing.T) {
		config, err := NewConfig(addr, dsn, key, nil, AgentConfig{
			URL:     "https://agent.example.com",
			Token:   "tok",
			Model:   "gpt-4o",
			Timeout: 5 * time.Second,
		})
		assert.NoError(t, err, "expected no error")
		assert.Equal(t, "gpt-4o", config.Agent.Model, "expected explicit model to be kept")
		assert.Equal(t, 5*time.Second, config.Agent.Timeout, "expected explicit timeout to be kept")
	})

	t.Run("missing URL forces mock mode", func(t *testing.T) {
		config, err := NewConfig(addr, dsn, key, nil, AgentConfig{Token: "tok"})
		assert.NoError(t, err, "expected no error")
		assert.True(t, config.Agent.Mock, "expected mock mode without agent URL")
	})

	t.Run("missing token forces mock mode", func(t *testing.T) {
		config, err := NewConfig(addr, dsn, key, nil, AgentConfig{URL: "https://agent.example.com"})
		assert.NoError(t, err, "expected no error")
		assert.True(t, config.Agent.Mock, "expected mock mode without agent token")
	})
}

func Test_decodeSigningSecret(t *testing.T) {
	key, err := decodeSigningSecret("c29tZV9zZWNyZXQ=")
	assert.NoError(t, err, "expected no error for valid base64 secret")
	assert.Equal(t, []byte("some_secret"), key, "expected decoded key to match")

	_, err = decodeSigningSecret("invalid_base64")
	assert.Error(t, err, "expected error for invalid base64 secret")
}

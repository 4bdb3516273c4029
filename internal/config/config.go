package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const (
	defaultAgentModel   = "gpt-4o-mini"
	defaultAgentTimeout = 30 * time.Second
)

type Config struct {
	DatabaseDSN    string
	ServerAddr     string
	SigningKey     []byte
	AllowedOrigins []string
	Agent          AgentConfig
}

// AgentConfig configures the assistant bridge. With no URL or token the
// bridge runs in mock mode, same as when Mock is set explicitly.
type AgentConfig struct {
	URL     string
	Token   string
	Model   string
	Mock    bool
	Timeout time.Duration
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string, agent AgentConfig) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	if agent.Model == "" {
		agent.Model = defaultAgentModel
	}
	if agent.Timeout <= 0 {
		agent.Timeout = defaultAgentTimeout
	}
	if agent.URL == "" || agent.Token == "" {
		agent.Mock = true
	}

	return &Config{
		DatabaseDSN:    databaseDSN,
		ServerAddr:     serverAddr,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		Agent:          agent,
	}, nil
}

package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("AUTH_TOKEN", "jwt-token")

	config, err := LoadConfig()
	req.NoError(err)
	req.Equal("http://localhost:3000/api", config.APIBaseURL)
	req.Equal("ws://localhost:3000/chat", config.SocketURL)
	req.Equal("jwt-token", config.AuthToken)
	req.Equal(3, config.ReconnectAttempts)
	req.Equal(2*time.Second, config.ReconnectDelay)
	req.Equal(7*time.Second, config.ReconcileWindow)
	req.Nil(config.LimitMessages)
}

func TestLoadConfig_MissingToken(t *testing.T) {
	req := require.New(t)
	t.Setenv("AUTH_TOKEN", "")

	_, err := LoadConfig()
	req.Error(err)
}

func TestLoadConfig_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("AUTH_TOKEN", "jwt-token")
	t.Setenv("API_BASE_URL", "https://school.example.com/api")
	t.Setenv("RECONNECT_ATTEMPTS", "5")
	t.Setenv("LIMIT_MESSAGES", "50")

	config, err := LoadConfig()
	req.NoError(err)
	req.Equal("https://school.example.com/api", config.APIBaseURL)
	req.Equal(5, config.ReconnectAttempts)
	req.NotNil(config.LimitMessages)
	req.Equal(50, *config.LimitMessages)
}

func TestLoadConfig_InvalidAttempts(t *testing.T) {
	req := require.New(t)
	t.Setenv("AUTH_TOKEN", "jwt-token")
	t.Setenv("RECONNECT_ATTEMPTS", "0")

	_, err := LoadConfig()
	req.ErrorContains(err, "invalid configuration")
}

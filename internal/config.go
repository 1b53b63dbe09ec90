package internal

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Config struct {
	APIBaseURL string `env:"API_BASE_URL,default=http://localhost:3000/api" validate:"required,url"`
	SocketURL  string `env:"SOCKET_URL,default=ws://localhost:3000/chat" validate:"required"`
	AuthToken  string `env:"AUTH_TOKEN,required=true" validate:"required"`

	ReconnectAttempts int           `env:"RECONNECT_ATTEMPTS,default=3" validate:"gte=1"`
	ReconnectDelay    time.Duration `env:"RECONNECT_DELAY,default=2s"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT,default=10s"`

	ReconcileWindow time.Duration `env:"RECONCILE_WINDOW,default=7s"`
	EchoTimeout     time.Duration `env:"ECHO_TIMEOUT,default=10s"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=5s"`

	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/archive"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,default=./data/index"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`

	LogLevel string `env:"LOG_LEVEL,default=INFO"`
}

// LoadConfig reads the configuration from the environment and validates
// it. Connection details default to a local SchoolSync backend; only
// the credential token has no usable default.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

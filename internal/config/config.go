package config

import (
	"fmt"
	"time"

	"github.com/ctchen222/tictactoe/internal/validator"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	HTTPAddr  string    `yaml:"http-addr" env:"HTTP_ADDR" env-default:":8080" validate:"required"`
	Game      Game      `yaml:"game"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Game holds the settings a new board starts with.
type Game struct {
	Mode              string        `yaml:"mode" env:"GAME_MODE" env-default:"two_player" validate:"oneof=two_player vs_computer"`
	Difficulty        string        `yaml:"difficulty" env:"GAME_DIFFICULTY" env-default:"medium" validate:"oneof=easy medium hard"`
	AIDelay           time.Duration `yaml:"ai-delay" env:"GAME_AI_DELAY" env-default:"500ms" validate:"min=0"`
	OutcomeAckTimeout time.Duration `yaml:"outcome-ack-timeout" env:"GAME_OUTCOME_ACK_TIMEOUT" env-default:"30s" validate:"min=0"`
	// Seed for the computer's random choices; 0 picks a random seed.
	Seed uint64 `yaml:"seed" env:"GAME_SEED" env-default:"0"`
}

type Telemetry struct {
	Enabled           bool   `yaml:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	CollectorEndpoint string `yaml:"collector-endpoint" env:"OTEL_COLLECTOR_ENDPOINT" env-default:"otel-collector:4317" validate:"required_if=Enabled true"`
	ServiceName       string `yaml:"service-name" env:"OTEL_SERVICE_NAME" env-default:"tic-tac-toe"`
	ServiceVersion    string `yaml:"service-version" env:"OTEL_SERVICE_VERSION" env-default:"v0.1.0"`
	StdoutTraces      bool   `yaml:"stdout-traces" env:"OTEL_STDOUT_TRACES" env-default:"false"`
}

// Load reads the YAML file at path, when given, and overlays the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if err := validator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load for program start-up; it panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

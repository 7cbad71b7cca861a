package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/wayfinder/internal/rubric"
)

type Config struct {
	Port             int
	NatsURL          string
	NatsToken        string
	DatabaseURL      string
	LogLevel         string
	AnthropicAPIKey  string
	AnthropicModel   string
	APIToken         string
	AllowCardPrompts bool
	CardPromptTone   string
	TuningFile       string
}

func Load() Config {
	return Config{
		Port:             envInt("WAYFINDER_PORT", 8760),
		NatsURL:          envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:        envStr("NATS_TOKEN", ""),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey:  envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   envStr("WAYFINDER_MODEL", "claude-sonnet-4-20250514"),
		APIToken:         envStr("WAYFINDER_API_TOKEN", ""),
		AllowCardPrompts: envBool("WAYFINDER_CARD_PROMPTS", true),
		CardPromptTone:   envStr("WAYFINDER_CARD_TONE", "normal"),
		TuningFile:       envStr("WAYFINDER_TUNING_FILE", ""),
	}
}

// tuningFile is the YAML shape of WAYFINDER_TUNING_FILE.
type tuningFile struct {
	Rubric rubric.Params `yaml:"rubric"`
}

// LoadTuning reads rubric thresholds from a YAML file. An empty path returns
// the defaults; fields missing from the file keep their default values.
func LoadTuning(path string) (rubric.Params, error) {
	if path == "" {
		return rubric.DefaultParams(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rubric.Params{}, fmt.Errorf("read tuning file: %w", err)
	}

	tf := tuningFile{Rubric: rubric.DefaultParams()}
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return rubric.Params{}, fmt.Errorf("parse tuning file: %w", err)
	}
	return tf.Rubric, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

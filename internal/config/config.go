package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values come from an optional
// YAML file first, then environment variables override.
type Config struct {
	DatabaseURL      string `yaml:"database_url"`
	ServerPort       string `yaml:"server_port"`
	BaseURL          string `yaml:"base_url"`
	FrontendURL      string `yaml:"frontend_url"`
	OpenAIKey        string `yaml:"openai_api_key"`
	AIProvider       string `yaml:"ai_provider"`
	AIModel          string `yaml:"ai_model"`
	AIBaseURL        string `yaml:"ai_base_url"`
	EnableHSTS       bool   `yaml:"enable_hsts"`
	RedisURL         string `yaml:"redis_url"`
	RabbitMQURL      string `yaml:"rabbitmq_url"`
	RabbitMQPrefetch int    `yaml:"rabbitmq_prefetch"`
	MaxScoringTasks  int    `yaml:"max_scoring_tasks"`
	WorkerDebugMode  bool   `yaml:"worker_debug_mode"`
	ServerDebugMode  bool   `yaml:"server_debug_mode"`
	OTELEnabled      bool   `yaml:"otel_enabled"`
	OTELEndpoint     string `yaml:"otel_endpoint"`
}

// Load loads configuration from the optional YAML file named by
// GTDFLOW_CONFIG, with environment variables taking precedence
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       "8080",
		BaseURL:          "http://localhost:8080",
		FrontendURL:      "http://localhost:3000",
		AIProvider:       "openai",
		RedisURL:         "redis://localhost:6379/0",
		RabbitMQPrefetch: 1,
		MaxScoringTasks:  30,
	}

	if path := os.Getenv("GTDFLOW_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (prioritization runs through RabbitMQ)")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setEnvString(&cfg.DatabaseURL, "DATABASE_URL")
	setEnvString(&cfg.ServerPort, "SERVER_PORT")
	setEnvString(&cfg.BaseURL, "BASE_URL")
	setEnvString(&cfg.FrontendURL, "FRONTEND_URL")
	setEnvString(&cfg.OpenAIKey, "OPENAI_API_KEY")
	setEnvString(&cfg.AIProvider, "AI_PROVIDER")
	setEnvString(&cfg.AIModel, "AI_MODEL")
	setEnvString(&cfg.AIBaseURL, "AI_BASE_URL")
	setEnvBool(&cfg.EnableHSTS, "ENABLE_HSTS")
	setEnvString(&cfg.RedisURL, "REDIS_URL")
	setEnvString(&cfg.RabbitMQURL, "RABBITMQ_URL")
	setEnvInt(&cfg.RabbitMQPrefetch, "RABBITMQ_PREFETCH")
	setEnvInt(&cfg.MaxScoringTasks, "MAX_SCORING_TASKS")
	setEnvBool(&cfg.WorkerDebugMode, "WORKER_DEBUG_MODE")
	setEnvBool(&cfg.ServerDebugMode, "SERVER_DEBUG_MODE")
	setEnvBool(&cfg.OTELEnabled, "OTEL_ENABLED")
	setEnvString(&cfg.OTELEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func setEnvBool(target *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value == "true" || value == "1" || value == "yes"
	}
}

func setEnvInt(target *int, key string) {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			*target = intValue
		}
	}
}

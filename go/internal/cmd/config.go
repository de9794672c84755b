package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Anything not set here
// falls back to environment variables and defaults.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	NATS struct {
		URL           string `yaml:"url"`
		StreamName    string `yaml:"stream_name"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
	Engine struct {
		SubmitRetries int `yaml:"submit_retries"`
		RetryDelaySec int `yaml:"retry_delay_sec"`
	} `yaml:"engine"`
	Outbox struct {
		PollIntervalSec int `yaml:"poll_interval_sec"`
		BatchSize       int `yaml:"batch_size"`
	} `yaml:"outbox"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// loadConfigWithDefaults loads the YAML config when present and fills the
// gaps from environment variables.
func loadConfigWithDefaults(path string) *Config {
	config := &Config{}
	if path != "" {
		if loaded, err := loadConfig(path); err == nil {
			config = loaded
		}
	}

	if config.Server.Port == "" {
		config.Server.Port = getEnv("PORT", "8080")
	}
	if config.NATS.URL == "" {
		config.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	}
	if config.NATS.StreamName == "" {
		config.NATS.StreamName = getEnv("NATS_STREAM", "INTERVIEW_EVENTS")
	}
	if config.NATS.SubjectPrefix == "" {
		config.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", "interview.events")
	}
	if config.Engine.SubmitRetries == 0 {
		config.Engine.SubmitRetries = getEnvAsInt("ENGINE_SUBMIT_RETRIES", 3)
	}
	if config.Engine.RetryDelaySec == 0 {
		config.Engine.RetryDelaySec = getEnvAsInt("ENGINE_RETRY_DELAY_SEC", 1)
	}
	if config.Outbox.PollIntervalSec == 0 {
		config.Outbox.PollIntervalSec = getEnvAsInt("OUTBOX_POLL_INTERVAL_SEC", 5)
	}
	if config.Outbox.BatchSize == 0 {
		config.Outbox.BatchSize = getEnvAsInt("OUTBOX_BATCH_SIZE", 100)
	}

	return config
}

func (c *Config) engineRetryDelay() time.Duration {
	return time.Duration(c.Engine.RetryDelaySec) * time.Second
}

func (c *Config) outboxPollInterval() time.Duration {
	return time.Duration(c.Outbox.PollIntervalSec) * time.Second
}

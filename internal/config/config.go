// Package config loads tinytasks settings from a YAML file with TINYTASKS_*
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

var ValidBackends = []string{BackendDynamoDB, BackendPostgres, BackendMemory}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Events     EventsConfig     `yaml:"events"`
	Identifier IdentifierConfig `yaml:"identifier"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Backend  string         `yaml:"backend"` // dynamodb, postgres, memory
	DynamoDB DynamoDBConfig `yaml:"dynamodb,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

type DynamoDBConfig struct {
	Profile   string `yaml:"profile,omitempty"`
	Region    string `yaml:"region,omitempty"`
	TableName string `yaml:"table_name,omitempty"`
	KMSKeyARN string `yaml:"kms_key_arn,omitempty"`
	// Endpoint points the client at DynamoDB Local or another compatible
	// service.
	Endpoint string `yaml:"endpoint,omitempty"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// EventsConfig enables Kafka record events when Brokers is set.
type EventsConfig struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty"`
}

type IdentifierConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	MaxClaimAttempts int `yaml:"max_claim_attempts"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			DynamoDB: DynamoDBConfig{
				TableName: "tinytasks",
			},
		},
		Events: EventsConfig{
			Topic: "tinytasks.records",
		},
		Identifier: IdentifierConfig{
			MaxAttempts:      1000,
			MaxClaimAttempts: 5,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("TINYTASKS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("TINYTASKS_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("TINYTASKS_AWS_PROFILE"); v != "" {
		c.Storage.DynamoDB.Profile = v
	}
	if v := os.Getenv("TINYTASKS_AWS_REGION"); v != "" {
		c.Storage.DynamoDB.Region = v
	}
	if v := os.Getenv("TINYTASKS_TABLE_NAME"); v != "" {
		c.Storage.DynamoDB.TableName = v
	}
	if v := os.Getenv("TINYTASKS_KMS_KEY_ARN"); v != "" {
		c.Storage.DynamoDB.KMSKeyARN = v
	}
	if v := os.Getenv("TINYTASKS_DYNAMODB_ENDPOINT"); v != "" {
		c.Storage.DynamoDB.Endpoint = v
	}
	if v := os.Getenv("TINYTASKS_POSTGRES_DSN"); v != "" {
		c.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("TINYTASKS_KAFKA_BROKERS"); v != "" {
		c.Events.Brokers = splitList(v)
	}
	if v := os.Getenv("TINYTASKS_KAFKA_TOPIC"); v != "" {
		c.Events.Topic = v
	}
	if v := os.Getenv("TINYTASKS_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TINYTASKS_MAX_ATTEMPTS: %w", err)
		}
		c.Identifier.MaxAttempts = n
	}
	if v := os.Getenv("TINYTASKS_MAX_CLAIM_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TINYTASKS_MAX_CLAIM_ATTEMPTS: %w", err)
		}
		c.Identifier.MaxClaimAttempts = n
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Storage.Backend {
	case BackendDynamoDB:
		if c.Storage.DynamoDB.Region == "" {
			return fmt.Errorf("storage.dynamodb.region is required for the dynamodb backend")
		}
		if c.Storage.DynamoDB.TableName == "" {
			return fmt.Errorf("storage.dynamodb.table_name is required for the dynamodb backend")
		}
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid storage backend: %q (valid: %v)", c.Storage.Backend, ValidBackends)
	}
	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		return fmt.Errorf("events.topic is required when brokers are set")
	}
	if c.Identifier.MaxAttempts < 1 {
		return fmt.Errorf("identifier.max_attempts must be positive")
	}
	if c.Identifier.MaxClaimAttempts < 1 {
		return fmt.Errorf("identifier.max_claim_attempts must be positive")
	}
	return nil
}

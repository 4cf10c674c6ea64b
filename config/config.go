/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/suparena/tablestore/errors"
)

// Backend names accepted in Config.Backend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "ddb"
)

// Config holds the settings of a tablestore process.
type Config struct {
	Backend      string `yaml:"backend"`
	Name         string `yaml:"name"`
	NameMatching bool   `yaml:"nameMatching"`
	Model        string `yaml:"model"`
	LogLevel     string `yaml:"logLevel"`

	AWS AWSConfig `yaml:"aws"`
}

// AWSConfig configures the DynamoDB backend.
type AWSConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Endpoint  string `yaml:"endpoint"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Backend:  BackendMemory,
		Name:     "tablestore",
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment variables. A .env file in
// the working directory is loaded into the environment first when present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.NewValidationError("config", fmt.Sprintf("invalid YAML in %s: %v", path, err))
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("TABLESTORE_BACKEND", &c.Backend)
	setString("TABLESTORE_NAME", &c.Name)
	setString("TABLESTORE_MODEL", &c.Model)
	setString("TABLESTORE_LOG_LEVEL", &c.LogLevel)
	setString("AWS_REGION", &c.AWS.Region)
	setString("AWS_ACCESS_KEY", &c.AWS.AccessKey)
	setString("AWS_SECRET_KEY", &c.AWS.SecretKey)
	setString("DDB_ENDPOINT", &c.AWS.Endpoint)

	if v, ok := os.LookupEnv("TABLESTORE_NAME_MATCHING"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.NewValidationError("TABLESTORE_NAME_MATCHING", fmt.Sprintf("not a boolean: %q", v))
		}
		c.NameMatching = b
	}
	return nil
}

// Validate checks the backend choice and the settings it requires.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQLite:
	case BackendDynamoDB:
		if c.AWS.Region == "" {
			return errors.NewValidationError("aws.region", "region is required for the ddb backend")
		}
	default:
		return errors.NewValidationError("backend", fmt.Sprintf("unknown backend %q", c.Backend))
	}
	if c.Name == "" {
		return errors.NewValidationError("name", "store name is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, errors.NewValidationError("logLevel", fmt.Sprintf("unknown log level %q", c.LogLevel))
	}
	return level, nil
}

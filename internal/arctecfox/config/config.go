// Package config loads the server configuration from a YAML file, an
// optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when ARCTECFOX_CONFIG is unset.
const DefaultPath = "internal/arctecfox/config/config.yaml"

// Config struct for YAML configuration
type Config struct {
	GRPCPort     int           `yaml:"GRPC_PORT"`
	HTTPPort     int           `yaml:"HTTP_PORT"`
	DBHost       string        `yaml:"DB_HOST"`
	DBPort       int           `yaml:"DB_PORT"`
	DBUser       string        `yaml:"DB_USER"`
	DBPassword   string        `yaml:"DB_PASSWORD"`
	DBName       string        `yaml:"DB_NAME"`
	DBSSLMode    string        `yaml:"DB_SSLMODE"`
	KafkaBrokers []string      `yaml:"KAFKA_BROKERS"`
	Topic        string        `yaml:"TOPIC"`
	JWTSecret    string        `yaml:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"TOKEN_TTL"`
	RedisAddr    string        `yaml:"REDIS_ADDR"`
	RedisPass    string        `yaml:"REDIS_PASSWORD"`
	RedisDB      int           `yaml:"REDIS_DB"`
	GeminiAPIKey string        `yaml:"GEMINI_API_KEY"`
	GeminiModel  string        `yaml:"GEMINI_MODEL"`
	RequestLog   string        `yaml:"REQUEST_LOG"`
	CORSOrigins  []string      `yaml:"CORS_ORIGINS"`
}

// Defaults returns the configuration used for keys the file leaves out.
func Defaults() *Config {
	return &Config{
		GRPCPort:   50051,
		HTTPPort:   8080,
		DBHost:     "localhost",
		DBPort:     5432,
		DBUser:     "postgres",
		DBName:     "arctecfox",
		DBSSLMode:  "disable",
		Topic:      "arctecfox-events",
		TokenTTL:   time.Hour,
		RedisAddr:  "localhost:6379",
		RequestLog: "pm_lite_logs.jsonl",
	}
}

// Load reads the file at path (ARCTECFOX_CONFIG or DefaultPath when
// empty), loads envFiles into the environment and applies environment
// overrides. A missing file or .env is not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	if path == "" {
		path = getEnv("ARCTECFOX_CONFIG", DefaultPath)
	}

	cfg := Defaults()
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPass = getEnv("REDIS_PASSWORD", c.RedisPass)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	if brokers, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(brokers)
	}

	var err error
	if c.HTTPPort, err = getEnvInt("HTTP_PORT", c.HTTPPort); err != nil {
		return err
	}
	if c.GRPCPort, err = getEnvInt("GRPC_PORT", c.GRPCPort); err != nil {
		return err
	}
	if c.DBPort, err = getEnvInt("DB_PORT", c.DBPort); err != nil {
		return err
	}
	return nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.HTTPPort <= 0 || c.GRPCPort <= 0 {
		return fmt.Errorf("HTTP_PORT and GRPC_PORT must be > 0")
	}
	if c.HTTPPort == c.GRPCPort {
		return fmt.Errorf("HTTP_PORT and GRPC_PORT must differ")
	}
	if c.DBHost == "" || c.DBName == "" {
		return fmt.Errorf("DB_HOST and DB_NAME cannot be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
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

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	JWTSecret              string
	AssessmentServiceURL   string
	StructureFetchTimeout  time.Duration
	EvaluationCacheTTL     time.Duration
	NATSURL                string
	CodeRunnerURL          string
	CodeRunnerTimeout      time.Duration
	CodeRunnerMinInterval  time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ASSESSLY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Assessly API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("structure.fetch_timeout", "10s")
	v.SetDefault("evaluation.cache_ttl", "5m")
	v.SetDefault("code_runner.timeout", "15s")
	v.SetDefault("code_runner.min_interval", "200ms")
	v.SetDefault("cloudinary.folder", "assessly/submissions")

	fetchTimeout, err := parseDuration(v.GetString("structure.fetch_timeout"), "structure fetch timeout")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v.GetString("evaluation.cache_ttl"), "evaluation cache ttl")
	if err != nil {
		return Config{}, err
	}
	runnerTimeout, err := parseDuration(v.GetString("code_runner.timeout"), "code runner timeout")
	if err != nil {
		return Config{}, err
	}
	runnerInterval, err := parseDuration(v.GetString("code_runner.min_interval"), "code runner min interval")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		AssessmentServiceURL:   v.GetString("assessment.service_url"),
		StructureFetchTimeout:  fetchTimeout,
		EvaluationCacheTTL:     cacheTTL,
		NATSURL:                v.GetString("nats.url"),
		CodeRunnerURL:          v.GetString("code_runner.url"),
		CodeRunnerTimeout:      runnerTimeout,
		CodeRunnerMinInterval:  runnerInterval,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.AssessmentServiceURL == "" {
		return Config{}, fmt.Errorf("assessment service url must be provided")
	}

	return cfg, nil
}

func parseDuration(value, label string) (time.Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", label, err)
	}
	return parsed, nil
}

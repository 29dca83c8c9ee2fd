// Package config loads service settings from the environment.
package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the catalog service.
type Config struct {
	AppPort        string
	ServiceName    string
	LogLevel       string
	DatabaseDriver string
	DatabaseDSN    string
	JWTSecret      string
	RabbitMQURL    string
	ConsumeEvents  bool
	EventsQueue    string
	RateLimitRPS   float64
	RateLimitBurst int
	SeedTestData   bool
}

// New returns a viper instance with every catalog default set and
// environment lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("SERVICE_NAME", "catalog")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=catalog port=5432 sslmode=disable")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_CONSUME_EVENTS", false)
	v.SetDefault("RABBITMQ_EVENTS_QUEUE", "catalog_events_audit")
	v.SetDefault("RATE_LIMIT_RPS", 20.0)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("SEED_TEST_DATA", false)
	v.AutomaticEnv()
	return v
}

// Load reads .env files, if any, then the environment.
func Load() *Config {
	// Missing files are fine; real deployments use plain env vars.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	return FromViper(New())
}

// FromViper builds a Config from an already prepared viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		AppPort:        v.GetString("APP_PORT"),
		ServiceName:    v.GetString("SERVICE_NAME"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		DatabaseDriver: v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		ConsumeEvents:  v.GetBool("RABBITMQ_CONSUME_EVENTS"),
		EventsQueue:    v.GetString("RABBITMQ_EVENTS_QUEUE"),
		RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		SeedTestData:   v.GetBool("SEED_TEST_DATA"),
	}
}

// Package config loads the server configuration from the process environment.
// A .env file, if present, is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// ServerConfig holds configuration variables for the HTTP server.
type ServerConfig struct {
	Host        string
	Port        int
	AllowOrigin string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MongoConfig holds configuration variables for the document store.
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// EventsConfig holds configuration variables for the user event publisher.
// An empty URL disables publishing.
type EventsConfig struct {
	URL      string
	Exchange string
}

// LogConfig holds configuration variables for the logger.
type LogConfig struct {
	Development bool
	Debug       bool
	Output      []string
}

// Config holds configuration information for the program.
type Config struct {
	Server      ServerConfig
	StoreDriver string
	Mongo       MongoConfig
	Events      EventsConfig
	Log         LogConfig
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("host", "")
	v.SetDefault("port", 3000)
	v.SetDefault("cors_allow_origins", "*")

	v.SetDefault("store_driver", StoreMongo)
	v.SetDefault("mongodb_uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb_database", "userdb")
	v.SetDefault("mongodb_collection", "users")
	v.SetDefault("mongodb_connect_timeout", "10s")

	v.SetDefault("rabbitmq_url", "")
	v.SetDefault("rabbitmq_exchange", "users")

	v.SetDefault("log_development", false)
	v.SetDefault("log_debug", false)
	v.SetDefault("log_output", "stdout")
}

// Load reads envFile into the environment (a missing file is ignored) and builds a Config
// from environment variables, falling back to defaults.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setConfigDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:        v.GetString("host"),
			Port:        v.GetInt("port"),
			AllowOrigin: v.GetString("cors_allow_origins"),
		},
		StoreDriver: strings.ToLower(v.GetString("store_driver")),
		Mongo: MongoConfig{
			URI:            v.GetString("mongodb_uri"),
			Database:       v.GetString("mongodb_database"),
			Collection:     v.GetString("mongodb_collection"),
			ConnectTimeout: v.GetDuration("mongodb_connect_timeout"),
		},
		Events: EventsConfig{
			URL:      v.GetString("rabbitmq_url"),
			Exchange: v.GetString("rabbitmq_exchange"),
		},
		Log: LogConfig{
			Development: v.GetBool("log_development"),
			Debug:       v.GetBool("log_debug"),
			Output:      strings.Split(v.GetString("log_output"), ","),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Server.Port)
	}
	switch c.StoreDriver {
	case StoreMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGODB_URI is required for the mongo store")
		}
		if !strings.HasPrefix(c.Mongo.URI, "mongodb://") && !strings.HasPrefix(c.Mongo.URI, "mongodb+srv://") {
			return errors.New("MONGODB_URI must use the mongodb:// or mongodb+srv:// scheme")
		}
		if c.Mongo.ConnectTimeout <= 0 {
			return fmt.Errorf("invalid MONGODB_CONNECT_TIMEOUT %s", c.Mongo.ConnectTimeout)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

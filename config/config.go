package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Defaults
const (
	DefaultAPIURL       = "https://api.github.com"
	DefaultFetchTimeout = 30 * time.Second
	DefaultLogLevel     = "info"
	DefaultServerAddr   = ":8080"
	DefaultConfigFile   = ".env"
)

// Config holds all configuration for the application
type Config struct {
	GitHubToken      string
	APIURL           string
	FetchTimeout     time.Duration
	LogLevel         string
	ServerAddr       string
	SnapshotsEnabled bool
	Database         DatabaseConfig
}

// DatabaseConfig configures the optional snapshot log
type DatabaseConfig struct {
	User            string
	Password        string
	Name            string
	Host            string
	Port            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s port=%s host=%s sslmode=disable",
		d.User, d.Password, d.Name, d.Port, d.Host,
	)
}

// NewConfig creates a new Config instance
func NewConfig() *Config {
	return &Config{}
}

// Load reads path (if present) and the environment into c. An empty path
// uses DefaultConfigFile; a missing file is not an error.
func (c *Config) Load(path string) error {
	return c.load(viper.New(), path)
}

func (c *Config) load(v *viper.Viper, path string) error {
	if path == "" {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("GITHUB_API_URL", DefaultAPIURL)
	v.SetDefault("FETCH_TIMEOUT", DefaultFetchTimeout.String())
	v.SetDefault("LOG_LEVEL", DefaultLogLevel)
	v.SetDefault("SERVER_ADDR", DefaultServerAddr)
	v.SetDefault("SNAPSHOTS_ENABLED", false)
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 25)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	c.GitHubToken = v.GetString("GITHUB_TOKEN")
	c.APIURL = v.GetString("GITHUB_API_URL")
	c.LogLevel = v.GetString("LOG_LEVEL")
	c.ServerAddr = v.GetString("SERVER_ADDR")
	c.SnapshotsEnabled = v.GetBool("SNAPSHOTS_ENABLED")

	timeout, err := time.ParseDuration(v.GetString("FETCH_TIMEOUT"))
	if err != nil {
		return fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}
	if timeout < 0 {
		return fmt.Errorf("invalid FETCH_TIMEOUT: must not be negative")
	}
	c.FetchTimeout = timeout

	lifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	c.Database = DatabaseConfig{
		User:            v.GetString("POSTGRES_USER"),
		Password:        v.GetString("POSTGRES_PASSWORD"),
		Name:            v.GetString("POSTGRES_DB"),
		Host:            v.GetString("POSTGRES_HOST"),
		Port:            v.GetString("POSTGRES_PORT"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: lifetime,
	}

	if c.SnapshotsEnabled && c.Database.Name == "" {
		return fmt.Errorf("POSTGRES_DB is required when SNAPSHOTS_ENABLED is set")
	}

	return nil
}

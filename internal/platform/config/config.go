// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds all application configuration.
type Config struct {
	Curriculum CurriculumConfig
	Store      string
	Database   DatabaseConfig
	Cache      CacheConfig
	Notebook   NotebookConfig
	Log        LogConfig
}

// CurriculumConfig locates the curriculum content.
type CurriculumConfig struct {
	Path string
	Name string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings.
type CacheConfig struct {
	URL      string
	TTLHours int // 0 keeps progress forever
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// NotebookConfig holds notebook output settings.
type NotebookConfig struct {
	Author    string
	OutputDir string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Curriculum: CurriculumConfig{
			Path: envStr("LEARN_CURRICULUM_PATH", "./curriculum"),
			Name: envStr("LEARN_CURRICULUM_NAME", "Kid's Learning Curriculum"),
		},
		Store: strings.ToLower(envStr("LEARN_STORE", StoreMemory)),
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL:      envStr("LEARN_CACHE_URL", ""),
			TTLHours: envInt("LEARN_CACHE_TTL_HOURS", 0),
		},
		Notebook: NotebookConfig{
			Author:    envStr("LEARN_NOTEBOOK_AUTHOR", "Learning System"),
			OutputDir: envStr("LEARN_OUTPUT_DIR", "./notebooks"),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("LEARN_DATABASE_URL is required when LEARN_STORE=postgres")
		}
	case StoreRedis:
		if c.Cache.URL == "" {
			return fmt.Errorf("LEARN_CACHE_URL is required when LEARN_STORE=redis")
		}
	default:
		return fmt.Errorf("LEARN_STORE must be 'memory', 'postgres' or 'redis', got %q", c.Store)
	}

	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("LEARN_DATABASE_MIN_CONNS (%d) exceeds LEARN_DATABASE_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	if c.Cache.TTLHours < 0 {
		return fmt.Errorf("LEARN_CACHE_TTL_HOURS must be non-negative, got %d", c.Cache.TTLHours)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// Package config loads geolocale settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kass/go-geo-locale/pkg/postgis"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "GEOLOCALE_"

type Config struct {
	Locales string        `yaml:"locales"`
	Meta    string        `yaml:"meta"`
	Log     LogConfig     `yaml:"log"`
	Cache   CacheConfig   `yaml:"cache"`
	Index   IndexConfig   `yaml:"index"`
	PostGIS PostGISConfig `yaml:"postgis"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type IndexConfig struct {
	Partitions int `yaml:"partitions"`
}

type PostGISConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	DSN      string `yaml:"dsn"`
}

// Default returns the settings used when no file is given
func Default() *Config {
	return &Config{
		Locales: "locales.json",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: CacheConfig{TTL: 5 * time.Minute},
		Index: IndexConfig{Partitions: 4},
		PostGIS: PostGISConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "geolocale",
			Database: "geolocale",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies .env and
// GEOLOCALE_* environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// a missing .env is fine
	_ = godotenv.Load(".env")

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	str("LOCALES", &c.Locales)
	str("META", &c.Meta)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("PG_HOST", &c.PostGIS.Host)
	str("PG_USER", &c.PostGIS.User)
	str("PG_PASSWORD", &c.PostGIS.Password)
	str("PG_DATABASE", &c.PostGIS.Database)
	str("PG_DSN", &c.PostGIS.DSN)

	if v, ok := lookup(EnvPrefix + "CACHE_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sCACHE_TTL: %w", EnvPrefix, err)
		}
		c.Cache.TTL = ttl
	}
	if v, ok := lookup(EnvPrefix + "INDEX_PARTITIONS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sINDEX_PARTITIONS: %w", EnvPrefix, err)
		}
		c.Index.Partitions = n
	}
	if v, ok := lookup(EnvPrefix + "PG_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sPG_PORT: %w", EnvPrefix, err)
		}
		c.PostGIS.Port = port
	}
	return nil
}

// ConnString returns the explicit DSN, or one built from the parts
func (p PostGISConfig) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	return postgis.ConnString(p.Host, p.User, p.Password, p.Database, p.Port)
}

// NewLogger builds a logrus logger writing to w with the configured level and format
func (l LogConfig) NewLogger(w io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)

	level := l.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(l.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.New("invalid log format: " + l.Format)
	}
	return logger, nil
}

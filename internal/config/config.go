// Package config loads the settings shared by the survey binaries from a
// YAML file, an optional .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-devsurvey/pkg/model"
	"github.com/goliatone/go-devsurvey/pkg/responses"
)

// Config holds the server, store, client and logging settings.
type Config struct {
	// DefinitionPath points at a survey YAML; empty uses the embedded one.
	DefinitionPath string        `yaml:"definition"`
	Server         ServerConfig  `yaml:"server"`
	Store          StoreConfig   `yaml:"store"`
	Client         ClientConfig  `yaml:"client"`
	Logging        LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the ingestion endpoint.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Metrics         bool          `yaml:"metrics"`
	SanitizeText    bool          `yaml:"sanitize_text"`
}

// StoreConfig selects the response store.
type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	URL         string `yaml:"url"`
	Key         string `yaml:"key"`
	EnsureTable bool   `yaml:"ensure_table"`
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	// Endpoint overrides the definition's endpoint URL.
	Endpoint     string `yaml:"endpoint"`
	SnapshotDir  string `yaml:"snapshot_dir"`
	UserAgent    string `yaml:"user_agent"`
	ThemeVariant string `yaml:"theme_variant"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Debug bool   `yaml:"debug"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			MaxBodyBytes:    1 << 20,
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Metrics:         true,
		},
		Store: StoreConfig{
			Driver:      responses.DriverMemory,
			EnsureTable: true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path (a missing file yields the defaults), then applies
// variables from envFiles and the process environment. Non-empty process
// variables win over .env entries.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	env, err := readEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, file := range files {
		if strings.TrimSpace(file) == "" {
			continue
		}
		vars, err := godotenv.Read(file)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: read env file %s: %w", file, err)
		}
		for k, v := range vars {
			if _, seen := out[k]; !seen {
				out[k] = v
			}
		}
	}
	return out, nil
}

// ApplyEnv overrides settings from lookup. SUPABASE_URL/SUPABASE_KEY select
// the REST store and DATABASE_URL the Postgres store unless
// SURVEY_STORE_DRIVER names one explicitly.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if v := get("SURVEY_DEFINITION"); v != "" {
		c.DefinitionPath = v
	}
	if v := get("SURVEY_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := get("SURVEY_ENDPOINT"); v != "" {
		c.Client.Endpoint = v
	}
	if v := get("SURVEY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := get("SURVEY_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: SURVEY_DEBUG: %w", err)
		}
		c.Logging.Debug = debug
	}

	url, key := get("SUPABASE_URL"), get("SUPABASE_KEY")
	if url != "" {
		c.Store.URL = url
		c.Store.Driver = responses.DriverREST
	}
	if key != "" {
		c.Store.Key = key
	}
	if dsn := get("DATABASE_URL"); dsn != "" {
		c.Store.DSN = dsn
		if url == "" {
			c.Store.Driver = responses.DriverPostgres
		}
	}
	if v := get("SURVEY_STORE_DRIVER"); v != "" {
		c.Store.Driver = strings.ToLower(v)
	}
	return nil
}

// Validate checks that the selected store has what it needs.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "", responses.DriverMemory:
	case responses.DriverPostgres, responses.DriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store driver %q requires a DSN (set DATABASE_URL or store.dsn)", c.Store.Driver)
		}
	case responses.DriverREST:
		if c.Store.URL == "" || c.Store.Key == "" {
			return errors.New("config: rest store requires SUPABASE_URL and SUPABASE_KEY")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Server.Addr == "" {
		return errors.New("config: server address is required")
	}
	return nil
}

// ResponsesConfig converts the store settings for responses.Open.
func (c *Config) ResponsesConfig() responses.Config {
	return responses.Config{
		Driver:      c.Store.Driver,
		DSN:         c.Store.DSN,
		URL:         c.Store.URL,
		Key:         c.Store.Key,
		EnsureTable: c.Store.EnsureTable,
	}
}

// Definition loads the configured survey definition, or the embedded one
// when no path is set.
func (c *Config) Definition() (*model.Definition, error) {
	if strings.TrimSpace(c.DefinitionPath) == "" {
		return model.DefaultDefinition()
	}
	f, err := os.Open(c.DefinitionPath)
	if err != nil {
		return nil, fmt.Errorf("config: open definition: %w", err)
	}
	defer func() { _ = f.Close() }()
	return model.LoadDefinition(f)
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the central typed configuration struct.
type Config struct {
	App      AppConfig
	Features FeaturesConfig
}

type AppConfig struct {
	Name     string
	Env      string // local | production | testing
	Debug    bool
	Port     string
	LogLevel string // debug | info | warn | error
}

// FeaturesConfig lists the feature gates transformers may depend on.
type FeaturesConfig struct {
	Enabled  []string
	Disabled []string
	// File is an optional YAML file, see LoadFeatureFile.
	File string
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:     env("APP_NAME", "GoKernel"),
			Env:      env("APP_ENV", "local"),
			Debug:    envBool("APP_DEBUG", true),
			Port:     env("APP_PORT", "8000"),
			LogLevel: env("LOG_LEVEL", "info"),
		},
		Features: FeaturesConfig{
			Enabled:  envList("APP_FEATURES"),
			Disabled: envList("APP_FEATURES_DISABLED"),
			File:     env("APP_FEATURES_FILE", ""),
		},
	}
}

// featureFile is the on-disk shape of a feature file:
//
//	features:
//	  billing: true
//	  shipping: false
type featureFile struct {
	Features map[string]bool `yaml:"features"`
}

// LoadFeatureFile parses a YAML feature file into name → enabled.
func LoadFeatureFile(path string) (map[string]bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature file %s: %w", path, err)
	}
	var file featureFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse feature file %s: %w", path, err)
	}
	out := make(map[string]bool, len(file.Features))
	for name, enabled := range file.Features {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = enabled
		}
	}
	return out, nil
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// envList splits a comma separated env value, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "category-admin"
	EnvFileName = "config.env"

	defaultDBPath  = "categories.db"
	defaultRole    = "admin"
	defaultTimeout = 30 * time.Second
)

// RequiredEnvVars lists the environment variables that must be set.
var RequiredEnvVars = []string{"API_BASE_URL", "API_TOKEN"}

// Config is the runtime configuration, read from the environment.
type Config struct {
	APIBaseURL   string
	APIToken     string
	APITimeout   time.Duration
	OperatorID   string
	OperatorName string
	OperatorRole string
	DBPath       string
	CacheTTL     time.Duration
}

// ConfigDir returns the application's config directory path.
func ConfigDir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configBase, AppName), nil
}

// FilePath returns the full path to the config file.
func FilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	configPath, err := FilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// MissingRequired returns the names of required variables that are unset.
func MissingRequired() []string {
	var missing []string
	for _, v := range RequiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// WriteEnvFile writes values to the config file with restrictive
// permissions, since it holds the API token. Returns the path written.
func WriteEnvFile(values map[string]string, order []string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(dir, EnvFileName)
	content := make(map[string]string, len(values))
	for _, key := range order {
		if val, ok := values[key]; ok {
			content[key] = val
		}
	}
	if err := godotenv.Write(content, configPath); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(configPath, 0600); err != nil {
		return "", fmt.Errorf("failed to set config file permissions: %w", err)
	}
	return configPath, nil
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	if missing := MissingRequired(); len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	cfg := Config{
		APIBaseURL:   strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		APIToken:     os.Getenv("API_TOKEN"),
		APITimeout:   defaultTimeout,
		OperatorID:   os.Getenv("OPERATOR_ID"),
		OperatorName: os.Getenv("OPERATOR_NAME"),
		OperatorRole: getEnv("OPERATOR_ROLE", defaultRole),
		DBPath:       getEnv("CATEGORY_DB_PATH", defaultDBPath),
	}
	if cfg.OperatorName == "" {
		cfg.OperatorName = os.Getenv("USER")
	}

	var err error
	if cfg.APITimeout, err = getDuration("API_TIMEOUT", defaultTimeout); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 0); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s: %w", key, err)
	}
	return d, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "quillscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "QUILLSCAN"
)

// Loader loads configuration from files, environment, and defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so cobra flag
// bindings take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load reads configuration from the search paths, environment variables,
// and defaults, then validates it. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return l.unmarshal()
}

// LoadWithFile reads configuration from a specific file path. An empty path
// falls back to the standard search paths.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configFile, err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// ConfigFileUsed returns the path of the config file actually read.
func (l *Loader) ConfigFileUsed() string { return l.v.ConfigFileUsed() }

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}

	l.v.AddConfigPath("/etc/quillscan")

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "quillscan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "quillscan"))
	}
}

// setupEnvironmentVariables configures environment variable handling, e.g.
// QUILLSCAN_ENGINE_MIN_CONFIDENCE overrides engine.min_confidence.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers defaults for every configuration key.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	l.v.SetDefault("pipeline.workers", defaults.Pipeline.Workers)
	l.v.SetDefault("pipeline.llm_threshold", defaults.Pipeline.LLMThreshold)
	l.v.SetDefault("pipeline.timeout_sec", defaults.Pipeline.TimeoutSec)

	l.v.SetDefault("engine.min_confidence", defaults.Engine.MinConfidence)
	l.v.SetDefault("engine.cache_capacity", defaults.Engine.CacheCapacity)
	l.v.SetDefault("engine.engine_retries", defaults.Engine.EngineRetries)
	l.v.SetDefault("engine.ladder", defaults.Engine.Ladder)

	l.v.SetDefault("tesseract.tessdata_dir", defaults.Tesseract.TessdataDir)
	l.v.SetDefault("tesseract.languages", defaults.Tesseract.Languages)

	l.v.SetDefault("limits.max_pages", defaults.Limits.MaxPages)
	l.v.SetDefault("limits.max_file_mb", defaults.Limits.MaxFileMB)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.file", defaults.Output.File)
}

// GenerateDefaultConfigFile writes the default configuration to filename
// (quillscan.yaml when empty). Marshaling the struct directly keeps the key
// order of the config types instead of viper's flattened map.
func GenerateDefaultConfigFile(filename string) error {
	if filename == "" {
		filename = "quillscan.yaml"
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}

// GetConfigSearchPaths returns the paths searched for configuration files.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
		paths = append(paths, filepath.Join(home, ".config", "quillscan"))
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "quillscan"))
	}
	paths = append(paths, "/etc/quillscan")
	return paths
}

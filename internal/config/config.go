package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Import    ImportConfig    `yaml:"import" mapstructure:"import"`
	Content   ContentConfig   `yaml:"content" mapstructure:"content"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// ImportConfig configures the import pipeline.
type ImportConfig struct {
	Workers       int      `yaml:"workers" mapstructure:"workers"`
	BatchSize     int      `yaml:"batch_size" mapstructure:"batch_size"`
	Delimiter     string   `yaml:"delimiter" mapstructure:"delimiter"`
	Sheet         string   `yaml:"sheet" mapstructure:"sheet"`
	PoisonMarkers []string `yaml:"poison_markers" mapstructure:"poison_markers"`
}

// ContentConfig locates the question banks and the import log.
type ContentConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	ImportLog string `yaml:"import_log" mapstructure:"import_log"`
}

// ExportConfig configures the content bundle output.
type ExportConfig struct {
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
	Out     string `yaml:"out" mapstructure:"out"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ImportLogPath returns the resume log location, defaulting to a file
// inside the content directory when not set explicitly.
func (c *Config) ImportLogPath() string {
	if c.Content.ImportLog != "" {
		return c.Content.ImportLog
	}
	return filepath.Join(c.Content.Dir, "new_questions_import_log.json")
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ILLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2000)
	v.SetDefault("anthropic.timeout_secs", 120)
	v.SetDefault("anthropic.requests_per_second", 0)
	v.SetDefault("anthropic.max_retries", 0)
	v.SetDefault("import.workers", 25)
	v.SetDefault("import.batch_size", 10)
	v.SetDefault("import.delimiter", ";")
	v.SetDefault("import.poison_markers", []string{"SE BILD"})
	v.SetDefault("content.dir", "data/medical_exam")
	v.SetDefault("export.data_dir", "data")
	v.SetDefault("export.out", "public/content.json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

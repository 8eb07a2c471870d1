package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Image     ImageConfig     `yaml:"image" mapstructure:"image"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history"`
	Trace     TraceConfig     `yaml:"trace" mapstructure:"trace"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings. The model id is a deployment
// concern, so it lives here rather than in code.
type AnthropicConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	Model             string `yaml:"model" mapstructure:"model"`
	AnalysisMaxTokens int64  `yaml:"analysis_max_tokens" mapstructure:"analysis_max_tokens"`
	ProbeMaxTokens    int64  `yaml:"probe_max_tokens" mapstructure:"probe_max_tokens"`
}

// ImageConfig bounds uploaded swing images.
type ImageConfig struct {
	MaxSizeMB    int      `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	AllowedTypes []string `yaml:"allowed_types" mapstructure:"allowed_types"`
	ThumbnailMax int      `yaml:"thumbnail_max" mapstructure:"thumbnail_max"`
}

// HistoryConfig configures how much prior context feeds the prompt.
type HistoryConfig struct {
	ContextDepth int `yaml:"context_depth" mapstructure:"context_depth"`
}

// TraceConfig configures the in-memory request trace ring.
type TraceConfig struct {
	RingSize int `yaml:"ring_size" mapstructure:"ring_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SWING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "swing-coach.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.analysis_max_tokens", 2048)
	v.SetDefault("anthropic.probe_max_tokens", 50)
	v.SetDefault("image.max_size_mb", 5)
	v.SetDefault("image.allowed_types", []string{"image/jpeg", "image/png", "image/jpg"})
	v.SetDefault("image.thumbnail_max", 200)
	v.SetDefault("history.context_depth", 3)
	v.SetDefault("trace.ring_size", 50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read config file")
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

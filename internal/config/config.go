// Package config handles loading and validating the toneshift configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the toneshift daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Backends   BackendsConfig   `mapstructure:"backends"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Document   DocumentConfig   `mapstructure:"document"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each intake.
type TransportsConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
	NATS NATSConfig `mapstructure:"nats"`
}

// HTTPConfig configures the HTTP intake.
type HTTPConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

// GRPCConfig configures the gRPC health endpoint.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// NATSConfig configures the NATS request/reply intake.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Queue   string `mapstructure:"queue"`
}

// BackendsConfig configures the two generation backends.
type BackendsConfig struct {
	Local LocalConfig `mapstructure:"local"`
	Chat  ChatConfig  `mapstructure:"chat"`
}

// LocalConfig holds the local seq2seq runtime settings.
type LocalConfig struct {
	Endpoint string        `mapstructure:"endpoint"` // model runtime base URL (e.g., "http://localhost:11434")
	Model    string        `mapstructure:"model"`    // runtime model name (e.g., "flan-t5-base")
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ChatConfig holds the chat-completion backend settings.
type ChatConfig struct {
	API      string        `mapstructure:"api"` // "ollama" (default), "openai" or "anthropic"
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SpeechConfig configures the asynchronous speech synthesis service.
type SpeechConfig struct {
	Enabled   bool              `mapstructure:"enabled"`
	BaseURL   string            `mapstructure:"base_url"`
	APIKey    string            `mapstructure:"api_key"`
	APIKeyEnv string            `mapstructure:"api_key_env"` // consulted per call when APIKey is empty
	Model     string            `mapstructure:"model"`
	Voices    map[string]string `mapstructure:"voices"` // tone -> voice override
}

// DocumentConfig bounds uploaded document text.
type DocumentConfig struct {
	MaxChars int `mapstructure:"max_chars"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./toneshift.yaml, ./configs/toneshift.yaml, /etc/toneshift/toneshift.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("toneshift")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/toneshift")
	}

	// Environment variables: TONESHIFT_SERVER_HEALTH_PORT, TONESHIFT_BACKENDS_CHAT_API, etc.
	v.SetEnvPrefix("TONESHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.Backends.Chat.APIKey = resolveEnvRef(cfg.Backends.Chat.APIKey)
	cfg.Speech.APIKey = resolveEnvRef(cfg.Speech.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8000)
	v.SetDefault("transports.http.cors_origins", []string{"http://localhost:3000", "http://localhost:3001"})
	v.SetDefault("transports.http.max_upload_bytes", 10<<20)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.nats.enabled", false)
	v.SetDefault("transports.nats.url", "nats://localhost:4222")
	v.SetDefault("transports.nats.subject", "toneshift.rewrite")
	v.SetDefault("transports.nats.queue", "toneshift")
	v.SetDefault("backends.local.endpoint", "http://localhost:11434")
	v.SetDefault("backends.local.model", "flan-t5-base")
	v.SetDefault("backends.local.timeout", 120*time.Second)
	v.SetDefault("backends.chat.api", "ollama")
	v.SetDefault("backends.chat.endpoint", "http://localhost:11434")
	v.SetDefault("backends.chat.model", "llama3.2")
	v.SetDefault("backends.chat.timeout", 120*time.Second)
	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.base_url", "https://api.speech.example")
	v.SetDefault("speech.api_key_env", "SPEECH_API_KEY")
	v.SetDefault("speech.model", "tts-1")
	v.SetDefault("document.max_chars", 1000)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects settings the daemon cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Backends.Chat.API) {
	case "ollama", "openai", "anthropic":
	default:
		return fmt.Errorf("backends.chat.api: unsupported value %q", c.Backends.Chat.API)
	}
	if c.Document.MaxChars <= 0 {
		return fmt.Errorf("document.max_chars must be positive, got %d", c.Document.MaxChars)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// Package config handles loading and validating the voxbridge configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the voxbridge daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Skill      SkillConfig      `mapstructure:"skill"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	LLM        LLMConfig        `mapstructure:"llm"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Transcode  TranscodeConfig  `mapstructure:"transcode"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts"`
	Proxy      ProxyConfig      `mapstructure:"proxy"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the public HTTP listener settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// PublicBaseURL is the externally reachable origin used to build artifact links.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// TransportsConfig holds optional secondary listeners.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
}

// GRPCConfig configures the gRPC health listener.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// SkillConfig configures the voice-platform endpoint.
type SkillConfig struct {
	// ApplicationID is the expected skill id. Empty disables the identity check.
	ApplicationID string `mapstructure:"application_id"`
	Path          string `mapstructure:"path"`
	ChatIntent    string `mapstructure:"chat_intent"`
	UtteranceSlot string `mapstructure:"utterance_slot"`
}

// MemoryConfig bounds the rolling conversation log.
type MemoryConfig struct {
	MaxTurns int           `mapstructure:"max_turns"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// LLMConfig holds the chat-completion backend settings.
type LLMConfig struct {
	APIKey string `mapstructure:"api_key"`
	// BaseURL overrides the OpenAI endpoint (Ollama, vLLM, llama.cpp server...).
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Persona     string        `mapstructure:"persona"`
	Language    string        `mapstructure:"language"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Backend    string           `mapstructure:"backend"` // "elevenlabs" or "piper"
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
	Piper      PiperConfig      `mapstructure:"piper"`
}

// ElevenLabsConfig holds the streaming synthesis settings.
type ElevenLabsConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	VoiceID         string        `mapstructure:"voice_id"`
	ModelID         string        `mapstructure:"model_id"`
	Language        string        `mapstructure:"language"` // forced ISO-639-1 tag, overrides auto-detection
	Stability       float64       `mapstructure:"stability"`
	SimilarityBoost float64       `mapstructure:"similarity_boost"`
	OutputFormat    string        `mapstructure:"output_format"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
type PiperConfig struct {
	Endpoint string        `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
	Voice    string        `mapstructure:"voice"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TranscodeConfig configures the ffmpeg subprocess.
type TranscodeConfig struct {
	FFmpegPath    string        `mapstructure:"ffmpeg_path"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// ArtifactsConfig describes where published audio lands and how it is addressed.
type ArtifactsConfig struct {
	StaticRoot string `mapstructure:"static_root"`
	Directory  string `mapstructure:"directory"`
	Extension  string `mapstructure:"extension"`
}

// ProxyConfig configures the action dispatch proxy.
type ProxyConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Port            int           `mapstructure:"port"`
	AppKey          string        `mapstructure:"app_key"`
	DownstreamURL   string        `mapstructure:"downstream_url"`
	DownstreamToken string        `mapstructure:"downstream_token"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// SecretsConfig enables external secret resolution.
type SecretsConfig struct {
	SSM SSMConfig `mapstructure:"ssm"`
}

// SSMConfig toggles "ssm:/name" references.
type SSMConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

const ssmPrefix = "ssm:"

// SecretGetter resolves a named secret. *paramstore.Client satisfies it.
type SecretGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./voxbridge.yaml, ./configs/voxbridge.yaml, /etc/voxbridge/voxbridge.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("voxbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/voxbridge")
	}

	// Environment variables: VOXBRIDGE_SERVER_PORT, VOXBRIDGE_LLM_API_KEY, etc.
	v.SetEnvPrefix("VOXBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

	for _, field := range cfg.secretFields() {
		*field = resolveEnvRef(*field)
	}
	cfg.Server.PublicBaseURL = strings.TrimRight(cfg.Server.PublicBaseURL, "/")
	cfg.Proxy.DownstreamURL = strings.TrimRight(resolveEnvRef(cfg.Proxy.DownstreamURL), "/")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.public_base_url", "http://localhost:3000")
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("skill.application_id", "")
	v.SetDefault("skill.path", "/alexa")
	v.SetDefault("skill.chat_intent", "ChatIntent")
	v.SetDefault("skill.utterance_slot", "query")
	v.SetDefault("memory.max_turns", 30)
	v.SetDefault("memory.max_age", "24h")
	v.SetDefault("llm.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 200)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "6s")
	v.SetDefault("llm.persona", "")
	v.SetDefault("llm.language", "en")
	v.SetDefault("tts.backend", "elevenlabs")
	v.SetDefault("tts.elevenlabs.api_key", "${ELEVENLABS_API_KEY}")
	v.SetDefault("tts.elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("tts.elevenlabs.voice_id", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("tts.elevenlabs.model_id", "eleven_turbo_v2_5")
	v.SetDefault("tts.elevenlabs.language", "en")
	v.SetDefault("tts.elevenlabs.stability", 0.5)
	v.SetDefault("tts.elevenlabs.similarity_boost", 0.75)
	v.SetDefault("tts.elevenlabs.output_format", "mp3_44100_128")
	v.SetDefault("tts.elevenlabs.timeout", "7s")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.piper.voice", "en_US-lessac-medium")
	v.SetDefault("tts.piper.timeout", "7s")
	v.SetDefault("transcode.ffmpeg_path", "ffmpeg")
	v.SetDefault("transcode.timeout", "5s")
	v.SetDefault("transcode.max_concurrent", 4)
	v.SetDefault("artifacts.static_root", "public")
	v.SetDefault("artifacts.directory", "audio")
	v.SetDefault("artifacts.extension", "mp3")
	v.SetDefault("proxy.enabled", false)
	v.SetDefault("proxy.port", 3001)
	v.SetDefault("proxy.app_key", "${APP_KEY}")
	v.SetDefault("proxy.downstream_url", "http://homeassistant.local:8123")
	v.SetDefault("proxy.downstream_token", "${HA_TOKEN}")
	v.SetDefault("proxy.timeout", "10s")
	v.SetDefault("secrets.ssm.enabled", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// secretFields lists the credentials that may hold "${VAR}" or "ssm:/name" references.
func (c *Config) secretFields() []*string {
	return []*string{
		&c.LLM.APIKey,
		&c.TTS.ElevenLabs.APIKey,
		&c.Proxy.AppKey,
		&c.Proxy.DownstreamToken,
	}
}

// ResolveSecrets replaces "ssm:/name" references in credential fields with
// the parameter value returned by getter.
func (c *Config) ResolveSecrets(ctx context.Context, getter SecretGetter) error {
	for _, field := range c.secretFields() {
		name, ok := strings.CutPrefix(*field, ssmPrefix)
		if !ok {
			continue
		}
		val, err := getter.GetParameter(ctx, name)
		if err != nil {
			return fmt.Errorf("resolving secret %q: %w", name, err)
		}
		*field = strings.TrimSpace(val)
	}
	return nil
}

// HasSecretRefs reports whether any credential still points at the parameter store.
func (c *Config) HasSecretRefs() bool {
	for _, field := range c.secretFields() {
		if strings.HasPrefix(*field, ssmPrefix) {
			return true
		}
	}
	return false
}

// Validate checks the settings the daemon cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Memory.MaxTurns <= 0 {
		errs = append(errs, errors.New("memory.max_turns must be positive"))
	}
	if c.Memory.MaxAge <= 0 {
		errs = append(errs, errors.New("memory.max_age must be positive"))
	}
	if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
		errs = append(errs, errors.New("llm.api_key is required when using the hosted OpenAI endpoint"))
	}
	switch c.TTS.Backend {
	case "elevenlabs":
		if c.TTS.ElevenLabs.APIKey == "" {
			errs = append(errs, errors.New("tts.elevenlabs.api_key is required"))
		}
		if c.TTS.ElevenLabs.VoiceID == "" {
			errs = append(errs, errors.New("tts.elevenlabs.voice_id is required"))
		}
	case "piper":
		if c.TTS.Piper.Endpoint == "" {
			errs = append(errs, errors.New("tts.piper.endpoint is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown tts backend %q", c.TTS.Backend))
	}
	if c.Server.PublicBaseURL == "" {
		errs = append(errs, errors.New("server.public_base_url is required"))
	}
	if c.Proxy.Enabled && c.Proxy.AppKey == "" {
		errs = append(errs, errors.New("proxy.app_key is required when the proxy is enabled"))
	}
	return errors.Join(errs...)
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
// An unset variable resolves to the empty string.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	slog.SetDefault(slog.New(NewLogHandler(cfg, os.Stdout)))
}

// NewLogHandler builds the slog handler described by cfg.
func NewLogHandler(cfg LoggingConfig, w io.Writer) slog.Handler {
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
	if strings.ToLower(cfg.Format) == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Engine names accepted by MR_ENGINE.
const (
	EngineOllama = "ollama"
	EngineGemini = "gemini"
)

// Config holds all environmentally dependent settings for the model router.
type Config struct {
	HTTPAddr string
	Engine   string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiEmbedModel string

	OllamaHost       string
	OllamaModel      string
	OllamaEmbedModel string
	PullModels       bool

	EngineTimeout    time.Duration
	BreakerThreshold int
	BreakerOpen      time.Duration

	DBPath       string
	MemoryWindow int
}

// Validate ensures that all required configuration is present and valid.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineOllama:
	case EngineGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("MR_GEMINI_API_KEY is required when MR_ENGINE is gemini")
		}
	default:
		return fmt.Errorf("MR_ENGINE must be %q or %q, got %q", EngineOllama, EngineGemini, c.Engine)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("MR_HTTP_ADDR is required")
	}
	if c.EngineTimeout <= 0 {
		return fmt.Errorf("MR_ENGINE_TIMEOUT_SEC must be positive")
	}
	if c.BreakerThreshold < 1 {
		return fmt.Errorf("MR_BREAKER_THRESHOLD must be at least 1")
	}
	if c.MemoryWindow < 1 {
		return fmt.Errorf("MR_MEMORY_WINDOW must be at least 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("engine", EngineOllama)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("gemini_embed_model", "text-embedding-004")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama3")
	v.SetDefault("ollama_embed_model", "nomic-embed-text")
	v.SetDefault("pull_models", false)
	v.SetDefault("engine_timeout_sec", 60)
	v.SetDefault("breaker_threshold", 5)
	v.SetDefault("breaker_open_sec", 30)
	v.SetDefault("db_path", "modelrouter.db")
	v.SetDefault("memory_window", 30)
}

// Load reads settings from MR_* environment variables, optionally layered over
// the file named by MR_CONFIG_FILE, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		log.Printf("[Config] Loaded settings from %s", v.ConfigFileUsed())
	}

	cfg := &Config{
		HTTPAddr:         v.GetString("http_addr"),
		Engine:           strings.ToLower(strings.TrimSpace(v.GetString("engine"))),
		GeminiAPIKey:     v.GetString("gemini_api_key"),
		GeminiModel:      v.GetString("gemini_model"),
		GeminiEmbedModel: v.GetString("gemini_embed_model"),
		OllamaHost:       v.GetString("ollama_host"),
		OllamaModel:      v.GetString("ollama_model"),
		OllamaEmbedModel: v.GetString("ollama_embed_model"),
		PullModels:       v.GetBool("pull_models"),
		EngineTimeout:    seconds(v, "engine_timeout_sec"),
		BreakerThreshold: intOrDefault(v, "breaker_threshold"),
		BreakerOpen:      seconds(v, "breaker_open_sec"),
		DBPath:           v.GetString("db_path"),
		MemoryWindow:     intOrDefault(v, "memory_window"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// intOrDefault falls back to the registered default when the value does not parse.
func intOrDefault(v *viper.Viper, key string) int {
	raw := v.GetString(key)
	n := v.GetInt(key)
	if n == 0 && raw != "" && raw != "0" {
		fallback := 0
		if d, ok := defaultInt(key); ok {
			fallback = d
		}
		log.Printf("[Config] Warning: Invalid int for %s: %q. Using fallback %d", key, raw, fallback)
		return fallback
	}
	return n
}

func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(intOrDefault(v, key)) * time.Second
}

func defaultInt(key string) (int, bool) {
	d := viper.New()
	setDefaults(d)
	if !d.IsSet(key) {
		return 0, false
	}
	return d.GetInt(key), true
}

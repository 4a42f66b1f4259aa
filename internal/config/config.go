package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama3-8b-8192"
	DefaultTemperature = 0.5
	DefaultAddr        = ":8080"
	DefaultServerURL   = "http://localhost:8080"

	// SystemPrompt is prepended to every conversation sent upstream.
	SystemPrompt = "You are Seally, a knowledgeable and friendly assistant who knows all about seals, " +
		"taking care of them, and how they live/facts about them. You are also committed to the conservation " +
		"of the seals habitat, lifestyle, and the seals itself. You are supposed to be lighthearted, fun, and " +
		"outgoing while providing very accurate and engaging answers to the seal related questions that the " +
		"individual sends. Always maintain a friendly and outgoing tone, and keep your answers with clarity and " +
		"conciseness. If you’re unsure about an answer, inform the user and offer to find additional information!"
)

// Config is built once at startup and handed to the server and the UI.
type Config struct {
	APIKey       string  `mapstructure:"api_key"`
	BaseURL      string  `mapstructure:"base_url"`
	Model        string  `mapstructure:"model"`
	Temperature  float64 `mapstructure:"temperature"`
	SystemPrompt string  `mapstructure:"system_prompt"`
	Addr         string  `mapstructure:"addr"`
	ServerURL    string  `mapstructure:"server_url"`
	Dev          bool    `mapstructure:"dev"`
	LogPath      string  `mapstructure:"log_path"`
}

// envBindings maps config keys onto the environment variables they are read from.
var envBindings = map[string]string{
	"api_key":       "GROQ_API_KEY",
	"base_url":      "SEALLY_BASE_URL",
	"model":         "SEALLY_MODEL",
	"temperature":   "SEALLY_TEMPERATURE",
	"system_prompt": "SEALLY_SYSTEM_PROMPT",
	"addr":          "SEALLY_ADDR",
	"server_url":    "SEALLY_SERVER_URL",
	"dev":           "SEALLY_DEV",
	"log_path":      "SEALLY_LOG_PATH",
}

// flagBindings maps config keys onto command line flag names.
var flagBindings = map[string]string{
	"base_url":    "base-url",
	"model":       "model",
	"temperature": "temperature",
	"addr":        "addr",
	"server_url":  "server-url",
	"dev":         "dev",
	"log_path":    "log-path",
}

// RegisterFlags adds the configuration flags to a flag set.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("base-url", DefaultBaseURL, "Base URL of the OpenAI compatible completion API")
	flags.String("model", DefaultModel, "Model identifier sent upstream")
	flags.Float64("temperature", DefaultTemperature, "Sampling temperature sent upstream")
	flags.String("addr", DefaultAddr, "Address the relay server listens on")
	flags.String("server-url", DefaultServerURL, "URL of the relay server the chat UI talks to")
	flags.Bool("dev", false, "Development mode")
	flags.String("log-path", "", "Path to save the log file")
}

// Load reads .env (if present), the environment and the given flags, in
// increasing order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("temperature", DefaultTemperature)
	v.SetDefault("system_prompt", SystemPrompt)
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("dev", false)
	v.SetDefault("log_path", "")
	v.SetDefault("api_key", "")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports configuration the relay cannot start without.
// A missing API key is not fatal: requests fail upstream with a 500.
func (c *Config) Validate() error {
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	if c.BaseURL == "" {
		return errors.New("base url must not be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %v out of range [0, 2]", c.Temperature)
	}
	return nil
}

// Package config loads runtime settings from defaults, an optional YAML file,
// .env files and ADBLAST_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/FranksOps/adblast/internal/fingerprint"
	"github.com/FranksOps/adblast/internal/llm"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ADBLAST"

type OracleConfig struct {
	URL         string        `mapstructure:"url"`
	Client      string        `mapstructure:"client"`
	Language    string        `mapstructure:"language"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RPS         float64       `mapstructure:"rps"`
	Jitter      float64       `mapstructure:"jitter"`
	Fingerprint string        `mapstructure:"fingerprint"`
	ProxiesFile string        `mapstructure:"proxies_file"`
	UserAgents  []string      `mapstructure:"user_agents"`
}

type SweepConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type HarvestConfig struct {
	SampleSize     int           `mapstructure:"sample_size"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base_url"`
	Temperature  float64       `mapstructure:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PredictCount int           `mapstructure:"predict_count"`
}

// Enabled reports whether a generator can be built.
func (c LLMConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Generator converts the section into llm.Config.
func (c LLMConfig) Generator() llm.Config {
	temp := c.Temperature
	return llm.Config{
		Provider:    c.Provider,
		APIKey:      c.APIKey,
		Model:       c.Model,
		BaseURL:     c.BaseURL,
		Temperature: &temp,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
	}
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	GinMode         string        `mapstructure:"gin_mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel maps Level onto slog. Unknown values mean info.
func (c LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type MetricsConfig struct {
	// Port serves /metrics in CLI mode; 0 disables it.
	Port int `mapstructure:"port"`
}

// Config is the full application configuration.
type Config struct {
	Oracle  OracleConfig  `mapstructure:"oracle"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Harvest HarvestConfig `mapstructure:"harvest"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("oracle.url", "https://suggestqueries.google.com/complete/search")
	v.SetDefault("oracle.client", "firefox")
	v.SetDefault("oracle.language", "pt-BR")
	v.SetDefault("oracle.timeout", 5*time.Second)
	v.SetDefault("oracle.rps", 0.0)
	v.SetDefault("oracle.jitter", 0.0)
	v.SetDefault("oracle.fingerprint", string(fingerprint.ProfileChrome))
	v.SetDefault("oracle.proxies_file", "")
	v.SetDefault("oracle.user_agents", []string{})

	v.SetDefault("sweep.concurrency", 6)

	v.SetDefault("harvest.sample_size", 50)
	v.SetDefault("harvest.request_timeout", 90*time.Second)

	v.SetDefault("llm.provider", llm.ProviderOpenAI)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", llm.DefaultTemperature)
	v.SetDefault("llm.max_tokens", llm.DefaultMaxTokens)
	v.SetDefault("llm.timeout", llm.DefaultTimeout)
	v.SetDefault("llm.predict_count", 20)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.port", 0)
}

// Load reads configuration. configFile may be empty, in which case
// ./adblast.yaml is used when present. envFiles default to ".env"; missing
// env files are ignored.
func Load(configFile string, envFiles ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("adblast")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}
	for _, key := range v.AllKeys() {
		name := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if val, ok := dotenv[name]; ok {
			v.Set(key, val)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider, dotenv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// providerKey honours the unprefixed variables the provider SDKs use.
func providerKey(provider string, dotenv map[string]string) string {
	name := "OPENAI_API_KEY"
	if strings.EqualFold(provider, llm.ProviderGemini) {
		name = "GEMINI_API_KEY"
	}
	if v := os.Getenv(name); v != "" {
		return v
	}
	return dotenv[name]
}

func readEnvFiles(files []string) (map[string]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	out := make(map[string]string)
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		vals, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", f, err)
		}
		for k, val := range vals {
			if _, seen := out[k]; !seen {
				out[k] = val
			}
		}
	}
	return out, nil
}

// Validate normalizes ranges and rejects values that cannot work.
func (c *Config) Validate() error {
	if _, err := fingerprint.ParseProfile(c.Oracle.Fingerprint); err != nil {
		return fmt.Errorf("config: oracle.fingerprint: %w", err)
	}
	if c.Oracle.RPS < 0 {
		return fmt.Errorf("config: oracle.rps must not be negative, got %v", c.Oracle.RPS)
	}
	if c.Oracle.Jitter < 0 || c.Oracle.Jitter > 1 {
		return fmt.Errorf("config: oracle.jitter must be within [0,1], got %v", c.Oracle.Jitter)
	}
	if c.Sweep.Concurrency < 1 {
		c.Sweep.Concurrency = 1
	}
	if c.Sweep.Concurrency > 10 {
		c.Sweep.Concurrency = 10
	}
	if c.Harvest.SampleSize <= 0 {
		return fmt.Errorf("config: harvest.sample_size must be positive, got %d", c.Harvest.SampleSize)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderOpenAI, llm.ProviderGemini:
	default:
		return fmt.Errorf("config: unknown llm.provider %q", c.LLM.Provider)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

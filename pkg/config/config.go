package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmarinova/cvgate/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all cvgate configuration.
type Config struct {
	Listen  string             `yaml:"listen"`
	CVPath  string             `yaml:"cv_path"`
	Subject string             `yaml:"subject"`
	LLM     LLMConfig          `yaml:"llm"`
	Limits  LimitsConfig       `yaml:"limits"`
	Cache   CacheConfig        `yaml:"cache"`
	Audit   models.AuditConfig `yaml:"audit"`
	Web     WebConfig          `yaml:"web"`
}

// LLMConfig defines the upstream completion provider.
type LLMConfig struct {
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	Timeout     Duration `yaml:"timeout"`
}

// LimitsConfig controls request admission.
type LimitsConfig struct {
	Cooldown         Duration `yaml:"cooldown"`
	MaxPerDay        int      `yaml:"max_per_day"`
	MaxQuestionChars int      `yaml:"max_question_chars"`
	MaxContextChars  int      `yaml:"max_context_chars"`
	SweepInterval    Duration `yaml:"sweep_interval"`
}

// CacheConfig controls the answer cache.
type CacheConfig struct {
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// WebConfig locates the home page template and static assets.
type WebConfig struct {
	TemplatesDir string `yaml:"templates_dir"`
	StaticDir    string `yaml:"static_dir"`
}

// Default returns a Config with sensible defaults. The admission limits
// mirror the published ones: one request per 15s per client, 20 requests
// per client per day, 300-character questions, 8000 characters of CV
// context, answers cached for 24h.
func Default() *Config {
	return &Config{
		Listen:  ":8080",
		CVPath:  "data/cv.txt",
		Subject: "Detelina Marinova",
		LLM: LLMConfig{
			BaseURL:     "https://api.deepseek.com",
			Model:       "deepseek-chat",
			Temperature: 0.2,
			MaxTokens:   350,
			Timeout:     Duration(60 * time.Second),
		},
		Limits: LimitsConfig{
			Cooldown:         Duration(15 * time.Second),
			MaxPerDay:        20,
			MaxQuestionChars: 300,
			MaxContextChars:  8000,
			SweepInterval:    Duration(time.Hour),
		},
		Cache: CacheConfig{
			TTL:           Duration(24 * time.Hour),
			SweepInterval: Duration(time.Hour),
		},
		Audit: models.AuditConfig{
			Enabled:       false,
			DBPath:        "cvgate.db",
			RetentionDays: 30,
			LogQuestions:  true,
			LogAnswers:    false,
			MaxBodySize:   8192,
		},
		Web: WebConfig{
			TemplatesDir: "web/templates",
			StaticDir:    "web/static",
		},
	}
}

// Load reads a YAML config file and expands environment variables, so
// secrets like the provider API key can be written as ${DEEPSEEK_API_KEY}.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults (with the
// API key taken from the environment) when no config file exists at path.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.LLM.APIKey = os.Getenv("DEEPSEEK_API_KEY")
		return cfg, nil
	}
	return Load(path)
}

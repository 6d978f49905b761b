package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dshills/issuelens/internal/redact"
	"github.com/dshills/issuelens/internal/triage"
)

// Config represents the issuelens configuration.
type Config struct {
	GitHub   GitHubConfig `json:"github"`
	LLM      LLMConfig    `json:"llm"`
	Cache    CacheConfig  `json:"cache"`
	Triage   TriageConfig `json:"triage"`
	Output   OutputConfig `json:"output"`
	LogLevel string       `json:"logLevel" env:"LOG_LEVEL"`
}

// GitHubConfig controls issue fetching. The token is read from GH_TOKEN or
// GITHUB_TOKEN by Load.
type GitHubConfig struct {
	Token             string  `json:"token,omitempty"`
	APIURL            string  `json:"apiUrl,omitempty" env:"GITHUB_API_URL"`
	MaxItems          int     `json:"maxItems" env:"GITHUB_MAX_ITEMS"`
	RequestsPerSecond float64 `json:"requestsPerSecond" env:"GITHUB_RPS"`
}

// LLMConfig selects the summary model and bounds its use.
type LLMConfig struct {
	Provider       string `json:"provider" env:"LLM_PROVIDER"`
	BaseURL        string `json:"baseUrl,omitempty" env:"OPENAI_BASE_URL"`
	APIKey         string `json:"apiKey,omitempty" env:"OPENAI_API_KEY"`
	Model          string `json:"model" env:"MODEL_NAME"`
	PromptFile     string `json:"promptFile,omitempty" env:"PROMPT_FILE"`
	TimeoutSeconds int    `json:"timeoutSeconds" env:"LLM_TIMEOUT"`
	MaxRetries     int    `json:"maxRetries" env:"LLM_MAX_RETRIES"`
	Concurrency    int    `json:"concurrency" env:"LLM_CONCURRENCY_LIMIT"`
	BatchSize      int    `json:"batchSize" env:"LLM_BATCH_SIZE"`
}

// CacheConfig controls the two-tier cache.
type CacheConfig struct {
	Path                   string `json:"path" env:"CACHE_DB_PATH"`
	MaxMemoryItems         int    `json:"maxMemoryItems" env:"CACHE_MAX_MEMORY_ITEMS"`
	CleanupIntervalSeconds int    `json:"cleanupIntervalSeconds" env:"CACHE_CLEANUP_INTERVAL"`
	DefaultTTLSeconds      int    `json:"defaultTtlSeconds" env:"CACHE_DEFAULT_TTL"`
	IssuesTTLSeconds       int    `json:"issuesTtlSeconds" env:"CACHE_ISSUES_TTL"`
}

// TriageConfig overrides the built-in triage rules. Empty lists keep the
// defaults.
type TriageConfig struct {
	RulesFile    string   `json:"rulesFile,omitempty" env:"RULES_FILE"`
	DoneKeywords []string `json:"doneKeywords,omitempty" env:"DONE_KEYWORDS" envSeparator:","`
	NoiseLabels  []string `json:"noiseLabels,omitempty" env:"NOISE_LABELS" envSeparator:","`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format       string `json:"format" env:"OUTPUT_FORMAT"`
	Dir          string `json:"dir" env:"OUTPUT_DIR"`
	SummaryLimit int    `json:"summaryLimit" env:"SUMMARY_LIMIT"`
}

// DefaultTTL returns the summary lifetime.
func (c CacheConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

// IssuesTTL returns the issue list lifetime.
func (c CacheConfig) IssuesTTL() time.Duration {
	return time.Duration(c.IssuesTTLSeconds) * time.Second
}

// CleanupInterval returns the time between expiry sweeps.
func (c CacheConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

// Timeout returns the per-call LLM timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		GitHub: GitHubConfig{
			MaxItems:          10000,
			RequestsPerSecond: 5,
		},
		LLM: LLMConfig{
			Provider:       "deepseek",
			Model:          "deepseek-chat",
			TimeoutSeconds: 30,
			MaxRetries:     3,
			Concurrency:    10,
			BatchSize:      50,
		},
		Cache: CacheConfig{
			Path:                   filepath.Join(".cache", "cache.db"),
			MaxMemoryItems:         1000,
			CleanupIntervalSeconds: 3600,
			DefaultTTLSeconds:      86400,
			IssuesTTLSeconds:       3600,
		},
		Output: OutputConfig{
			Format:       "text",
			Dir:          "output",
			SummaryLimit: 100,
		},
		LogLevel: "info",
	}
}

// ConfigDir returns the platform-appropriate config directory for issuelens.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "issuelens"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "issuelens"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "issuelens"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "issuelens"), nil
	default:
		return filepath.Join(home, ".config", "issuelens"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// loadFile decodes the config file over cfg. A missing file is not an error.
func loadFile(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// LoadFileOrDefault returns the defaults overlaid with the config file only,
// so environment values are not written back by Save.
func LoadFileOrDefault() (Config, error) {
	cfg := Default()
	if err := loadFile(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the config to the config file. The file may hold tokens, so
// it is only readable by the owner.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags and uses SetField keys; empty
// values are ignored.
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()
	if err := loadFile(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type tokenEnv struct {
	GHToken     string `env:"GH_TOKEN"`
	GitHubToken string `env:"GITHUB_TOKEN"`
}

// mergeEnv applies environment variables. Unset variables leave cfg alone.
func mergeEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	var tok tokenEnv
	if err := env.Parse(&tok); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	switch {
	case tok.GHToken != "":
		cfg.GitHub.Token = tok.GHToken
	case tok.GitHubToken != "":
		cfg.GitHub.Token = tok.GitHubToken
	}
	cfg.Triage.DoneKeywords = triage.SplitList(strings.Join(cfg.Triage.DoneKeywords, ","))
	cfg.Triage.NoiseLabels = triage.SplitList(strings.Join(cfg.Triage.NoiseLabels, ","))
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k, v := range overrides {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := SetField(cfg, k, overrides[k]); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects settings no run could work with.
func (c Config) Validate() error {
	bounds := []struct {
		name string
		v    int
	}{
		{"github.maxItems", c.GitHub.MaxItems},
		{"llm.timeoutSeconds", c.LLM.TimeoutSeconds},
		{"llm.maxRetries", c.LLM.MaxRetries},
		{"llm.concurrency", c.LLM.Concurrency},
		{"llm.batchSize", c.LLM.BatchSize},
		{"cache.maxMemoryItems", c.Cache.MaxMemoryItems},
		{"cache.cleanupIntervalSeconds", c.Cache.CleanupIntervalSeconds},
		{"cache.defaultTtlSeconds", c.Cache.DefaultTTLSeconds},
		{"cache.issuesTtlSeconds", c.Cache.IssuesTTLSeconds},
		{"output.summaryLimit", c.Output.SummaryLimit},
	}
	for _, b := range bounds {
		if b.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", b.name, b.v)
		}
	}
	if c.GitHub.RequestsPerSecond < 0 {
		return fmt.Errorf("github.requestsPerSecond must not be negative")
	}
	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path must be set")
	}
	switch c.Output.Format {
	case "text", "json", "markdown", "md":
	default:
		return fmt.Errorf("unsupported output format: %s", c.Output.Format)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.GitHub.Token != "" {
		c.GitHub.Token = redact.Token(c.GitHub.Token)
	}
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = redact.Token(c.LLM.APIKey)
	}
	return c
}

// SetField sets a single config field by dotted key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "github.token":
		cfg.GitHub.Token = value
	case "github.apiUrl":
		cfg.GitHub.APIURL = value
	case "github.maxItems":
		cfg.GitHub.MaxItems, err = atoi(key, value)
	case "github.requestsPerSecond":
		cfg.GitHub.RequestsPerSecond, err = strconv.ParseFloat(value, 64)
		if err != nil {
			err = fmt.Errorf("%s must be a number: %w", key, err)
		}
	case "llm.provider":
		cfg.LLM.Provider = value
	case "llm.baseUrl":
		cfg.LLM.BaseURL = value
	case "llm.apiKey":
		cfg.LLM.APIKey = value
	case "llm.model":
		cfg.LLM.Model = value
	case "llm.promptFile":
		cfg.LLM.PromptFile = value
	case "llm.timeoutSeconds":
		cfg.LLM.TimeoutSeconds, err = atoi(key, value)
	case "llm.maxRetries":
		cfg.LLM.MaxRetries, err = atoi(key, value)
	case "llm.concurrency":
		cfg.LLM.Concurrency, err = atoi(key, value)
	case "llm.batchSize":
		cfg.LLM.BatchSize, err = atoi(key, value)
	case "cache.path":
		cfg.Cache.Path = value
	case "cache.maxMemoryItems":
		cfg.Cache.MaxMemoryItems, err = atoi(key, value)
	case "cache.cleanupIntervalSeconds":
		cfg.Cache.CleanupIntervalSeconds, err = atoi(key, value)
	case "cache.defaultTtlSeconds":
		cfg.Cache.DefaultTTLSeconds, err = atoi(key, value)
	case "cache.issuesTtlSeconds":
		cfg.Cache.IssuesTTLSeconds, err = atoi(key, value)
	case "triage.rulesFile":
		cfg.Triage.RulesFile = value
	case "triage.doneKeywords":
		cfg.Triage.DoneKeywords = triage.SplitList(value)
	case "triage.noiseLabels":
		cfg.Triage.NoiseLabels = triage.SplitList(value)
	case "output.format":
		cfg.Output.Format = value
	case "output.dir":
		cfg.Output.Dir = value
	case "output.summaryLimit":
		cfg.Output.SummaryLimit, err = atoi(key, value)
	case "logLevel":
		cfg.LogLevel = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return err
}

func atoi(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

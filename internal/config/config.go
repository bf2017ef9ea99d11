// Package config loads revagent's startup configuration: environment
// variables (spec §6, read once at startup) with an optional static YAML
// overlay for settings that are awkward to express as env vars (the
// blackbox preset bundle, cache sizing).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMProviderKind selects which LLM backend Config.DefaultLLMProvider
// points at.
type LLMProviderKind string

const (
	ProviderOpenAI    LLMProviderKind = "openai"
	ProviderAnthropic LLMProviderKind = "anthropic"
)

// Config is the fully resolved, validated startup configuration.
type Config struct {
	// LLM provider selection and credentials.
	DefaultLLMProvider LLMProviderKind
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	AnthropicAPIKey    string
	AnthropicModel     string

	// Browser.
	PuppeteerHeadless bool
	PuppeteerTimeout  time.Duration

	// DebugPort, when non-empty, starts a loopback-only HTTP surface
	// (/healthz, /metrics) alongside the stdio MCP transport. Empty
	// disables it. From PUPPETEER_DEBUG_PORT.
	DebugPort string

	// Disk cache for code artifacts (§6 persisted state (b)).
	EnableCache bool
	CacheDir    string
	CacheTTL    time.Duration

	MaxConcurrentAnalysis int
	MaxCodeSizeMB         int

	LogLevel string

	MCPServerName    string
	MCPServerVersion string

	// Static overlay (optional).
	BlackboxPresets []string
	MaxCacheBytes   int64
}

func defaults() Config {
	return Config{
		DefaultLLMProvider:    ProviderOpenAI,
		OpenAIModel:           "gpt-4o-mini",
		AnthropicModel:        "claude-3-5-sonnet-latest",
		PuppeteerHeadless:     true,
		PuppeteerTimeout:      30 * time.Second,
		EnableCache:           false,
		CacheDir:              "./.revagent-cache",
		CacheTTL:              24 * time.Hour,
		MaxConcurrentAnalysis: 4,
		MaxCodeSizeMB:         10,
		LogLevel:              "info",
		MCPServerName:         "revagent",
		MCPServerVersion:      "0.1.0",
		MaxCacheBytes:         100 << 20,
	}
}

// staticOverlay is the shape of the optional YAML file whose path Load
// receives (cmd/revagent passes the REVAGENT_CONFIG env var). Env vars always
// win over it (12-factor precedent: secrets never live in a committed
// file).
type staticOverlay struct {
	LogLevel        string   `yaml:"log_level"`
	BlackboxPresets []string `yaml:"blackbox_presets"`
	MaxCacheBytes   int64    `yaml:"max_cache_bytes"`
	CacheDir        string   `yaml:"cache_dir"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
}

// Load reads environment variables and, if configPath is non-empty, a
// YAML overlay, returning the merged Config. It never exits the process;
// callers are expected to slog.Error and os.Exit(1) on error, matching
// cmd/revagent/main.go.
func Load(configPath string) (Config, error) {
	cfg := defaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", configPath, err)
		}
		var overlay staticOverlay
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", configPath, err)
		}
		if overlay.LogLevel != "" {
			cfg.LogLevel = overlay.LogLevel
		}
		if len(overlay.BlackboxPresets) > 0 {
			cfg.BlackboxPresets = overlay.BlackboxPresets
		}
		if overlay.MaxCacheBytes > 0 {
			cfg.MaxCacheBytes = overlay.MaxCacheBytes
		}
		if overlay.CacheDir != "" {
			cfg.CacheDir = overlay.CacheDir
		}
		if overlay.CacheTTLSeconds > 0 {
			cfg.CacheTTL = time.Duration(overlay.CacheTTLSeconds) * time.Second
		}
	}

	cfg.DefaultLLMProvider = LLMProviderKind(env("DEFAULT_LLM_PROVIDER", string(cfg.DefaultLLMProvider)))
	cfg.OpenAIAPIKey = env("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = env("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = env("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.AnthropicAPIKey = env("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = env("ANTHROPIC_MODEL", cfg.AnthropicModel)

	cfg.PuppeteerHeadless = envBool("PUPPETEER_HEADLESS", cfg.PuppeteerHeadless)
	if ms := os.Getenv("PUPPETEER_TIMEOUT"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil {
			return cfg, fmt.Errorf("config: PUPPETEER_TIMEOUT: %w", err)
		}
		cfg.PuppeteerTimeout = time.Duration(n) * time.Millisecond
	}
	cfg.DebugPort = env("PUPPETEER_DEBUG_PORT", cfg.DebugPort)

	cfg.EnableCache = envBool("ENABLE_CACHE", cfg.EnableCache)
	cfg.CacheDir = env("CACHE_DIR", cfg.CacheDir)
	if s := os.Getenv("CACHE_TTL"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return cfg, fmt.Errorf("config: CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = time.Duration(n) * time.Second
	}

	if s := os.Getenv("MAX_CONCURRENT_ANALYSIS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return cfg, fmt.Errorf("config: MAX_CONCURRENT_ANALYSIS: %w", err)
		}
		cfg.MaxConcurrentAnalysis = n
	}
	if s := os.Getenv("MAX_CODE_SIZE_MB"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return cfg, fmt.Errorf("config: MAX_CODE_SIZE_MB: %w", err)
		}
		cfg.MaxCodeSizeMB = n
	}

	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)
	cfg.MCPServerName = env("MCP_SERVER_NAME", cfg.MCPServerName)
	cfg.MCPServerVersion = env("MCP_SERVER_VERSION", cfg.MCPServerVersion)

	if cfg.DefaultLLMProvider != ProviderOpenAI && cfg.DefaultLLMProvider != ProviderAnthropic {
		return cfg, fmt.Errorf("config: DEFAULT_LLM_PROVIDER must be %q or %q, got %q",
			ProviderOpenAI, ProviderAnthropic, cfg.DefaultLLMProvider)
	}

	return cfg, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server     ServerConfig
	Ollama     OllamaConfig
	OpenRouter OpenRouterConfig
	Storage    StorageConfig
	Extraction ExtractionConfig
	Sync       SyncConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
	// Token protects the management HTTP endpoints. Empty disables auth,
	// which is acceptable only because the server binds to loopback.
	Token string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type OpenRouterConfig struct {
	APIKey string
	Model  string
}

type StorageConfig struct {
	DataDir string
}

type ExtractionConfig struct {
	// FailureThreshold is the number of consecutive all-provider failures
	// after which the run stops calling providers entirely.
	FailureThreshold int
	// DisableAI forces heuristic-only extraction.
	DisableAI bool
}

type SyncConfig struct {
	Query       string
	Concurrency int
	// MailDir is the directory the file-based message source reads from.
	// Empty means <data dir>/inbox.
	MailDir      string
	SkipSenders  []string
	SkipSubjects []string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4500,
			MCPPort: 4501,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "qwen2.5",
		},
		OpenRouter: OpenRouterConfig{
			Model: "openai/gpt-4o-mini",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Extraction: ExtractionConfig{
			FailureThreshold: 3,
		},
		Sync: SyncConfig{
			Query:       "in:inbox newer_than:30d",
			Concurrency: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.huntd.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/huntd/config.json
// and secrets must be provided via environment variables.
//
// Environment variables (HUNTD_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try platform keychain for API key if still empty. An absent key is
	// not an error: extraction falls back to local models and heuristics.
	if cfg.OpenRouter.APIKey == "" {
		if key, err := kc.Get("huntd", "openrouter_api_key"); err == nil && key != "" {
			cfg.OpenRouter.APIKey = key
		}
	}
	if cfg.Server.Token == "" {
		if tok, err := kc.Get("huntd", "api_token"); err == nil && tok != "" {
			cfg.Server.Token = tok
		}
	}

	if cfg.Sync.Concurrency < 1 {
		return Config{}, fmt.Errorf("sync.concurrency must be at least 1, got %d", cfg.Sync.Concurrency)
	}
	if cfg.Extraction.FailureThreshold < 1 {
		return Config{}, fmt.Errorf("extraction.failure_threshold must be at least 1, got %d", cfg.Extraction.FailureThreshold)
	}

	return cfg, nil
}

// keychainReader reads from macOS Keychain via the security CLI.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// splitList parses a comma-separated config value into trimmed entries.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

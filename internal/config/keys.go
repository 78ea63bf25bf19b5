package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kList
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "HUNTD_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "HUNTD_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "server.token", typ: kString, env: "HUNTD_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "ollama.base_url", typ: kString, env: "HUNTD_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "HUNTD_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "openrouter.api_key", typ: kString, env: "HUNTD_OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.APIKey },
	},
	{
		key: "openrouter.model", typ: kString, env: "HUNTD_OPENROUTER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.Model },
	},
	{
		key: "storage.data_dir", typ: kString, env: "HUNTD_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "extraction.failure_threshold", typ: kInt, env: "HUNTD_EXTRACTION_FAILURE_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Extraction.FailureThreshold = v.(int) },
		extract: func(cfg Config) any { return cfg.Extraction.FailureThreshold },
	},
	{
		key: "extraction.disable_ai", typ: kBool, env: "HUNTD_EXTRACTION_DISABLE_AI",
		apply:   func(cfg *Config, v any) { cfg.Extraction.DisableAI = v.(bool) },
		extract: func(cfg Config) any { return cfg.Extraction.DisableAI },
	},
	{
		key: "sync.query", typ: kString, env: "HUNTD_SYNC_QUERY",
		apply:   func(cfg *Config, v any) { cfg.Sync.Query = v.(string) },
		extract: func(cfg Config) any { return cfg.Sync.Query },
	},
	{
		key: "sync.concurrency", typ: kInt, env: "HUNTD_SYNC_CONCURRENCY",
		apply:   func(cfg *Config, v any) { cfg.Sync.Concurrency = v.(int) },
		extract: func(cfg Config) any { return cfg.Sync.Concurrency },
	},
	{
		key: "sync.mail_dir", typ: kString, env: "HUNTD_SYNC_MAIL_DIR",
		apply:   func(cfg *Config, v any) { cfg.Sync.MailDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Sync.MailDir },
	},
	{
		key: "sync.skip_senders", typ: kList, env: "HUNTD_SYNC_SKIP_SENDERS",
		apply:   func(cfg *Config, v any) { cfg.Sync.SkipSenders = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Sync.SkipSenders, ",") },
	},
	{
		key: "sync.skip_subjects", typ: kList, env: "HUNTD_SYNC_SKIP_SUBJECTS",
		apply:   func(cfg *Config, v any) { cfg.Sync.SkipSubjects = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Sync.SkipSubjects, ",") },
	},
	{
		key: "log.level", typ: kString, env: "HUNTD_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString, kList, kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if !ok || v == "" {
				continue
			}
			switch s.typ {
			case kString:
				s.apply(cfg, v)
			case kList:
				s.apply(cfg, splitList(v))
			case kBool:
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kList:
			s.apply(cfg, splitList(raw))
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

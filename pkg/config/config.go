// Package config loads the agent configuration from defaults, YAML files,
// SPACEAGENT_ environment variables and command line overrides, in that
// order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SPACEAGENT_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Tools     ToolsConfig     `koanf:"tools"`
	Audit     AuditConfig     `koanf:"audit"`
	Knowledge KnowledgeConfig `koanf:"knowledge"`
	MCP       MCPConfig       `koanf:"mcp"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider string `koanf:"provider"` // ollama, anthropic, mock
	Model    string `koanf:"model"`
	// BaseURL overrides the provider endpoint; empty uses the provider default.
	BaseURL     string  `koanf:"base_url"`
	APIKey      string  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
	Retries     int     `koanf:"retries"`
	AgentName   string  `koanf:"agent_name"`
	// AnswerModel, when set, answers planned turns with a plain text model
	// instead of a second JSON call to Model.
	AnswerModel string `koanf:"answer_model"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type ToolsConfig struct {
	Timeout  time.Duration `koanf:"timeout"`
	Disabled []string      `koanf:"disabled"`
}

type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Driver  string `koanf:"driver"` // memory, sqlite
	DSN     string `koanf:"dsn"`
}

type KnowledgeConfig struct {
	Enabled         bool   `koanf:"enabled"`
	Source          string `koanf:"source"`
	Store           string `koanf:"store"` // memory, qdrant
	CachePath       string `koanf:"cache_path"`
	QdrantAddr      string `koanf:"qdrant_addr"`
	Collection      string `koanf:"collection"`
	EmbedderBaseURL string `koanf:"embedder_base_url"`
	EmbedderModel   string `koanf:"embedder_model"`
	Workers         int    `koanf:"workers"`
	MaxTopK         int    `koanf:"max_top_k"`
}

type MCPConfig struct {
	Name    string                     `koanf:"name"`
	Version string                     `koanf:"version"`
	Servers map[string]MCPServerConfig `koanf:"servers"`
}

// MCPServerConfig describes a remote MCP server whose tools join the catalog
// under the map key as namespace.
type MCPServerConfig struct {
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
}

var defaults = map[string]any{
	"log.level":  "info",
	"log.format": "text",

	"llm.provider":    "ollama",
	"llm.model":       "qwen2.5:7b-instruct",
	"llm.temperature": 0.0,
	"llm.retries":     2,

	"telemetry.exporter":      "none",
	"telemetry.otlp_endpoint": "localhost:4317",
	"telemetry.otlp_insecure": true,

	"tools.timeout": "30s",

	"audit.enabled": false,
	"audit.driver":  "memory",
	"audit.dsn":     "file:spaceagent-audit.db",

	"knowledge.enabled":           false,
	"knowledge.source":            "data/encyclopedia.md",
	"knowledge.store":             "memory",
	"knowledge.cache_path":        "data/encyclopedia.json",
	"knowledge.qdrant_addr":       "localhost:6334",
	"knowledge.collection":        "encyclopedia",
	"knowledge.embedder_base_url": "http://localhost:11434",
	"knowledge.embedder_model":    "nomic-embed-text",
	"knowledge.workers":           4,
	"knowledge.max_top_k":         25,

	"mcp.name":    "spaceagent",
	"mcp.version": "0.1.0",
}

// Load reads defaults, the YAML file at path (optional) and the environment.
func Load(path string) (*Config, error) {
	return load([]string{path}, nil)
}

// LoadWithProfile loads path and then its profile sibling, e.g.
// config.dev.yaml for profile "dev", when it exists.
func LoadWithProfile(path, profile string) (*Config, error) {
	return load([]string{path, profileConfigPath(path, profile)}, nil)
}

// LoadWithCLI loads configuration using command line arguments:
//
//	--config <path>     YAML file, may be repeated; later files win
//	--profile <name>    profile sibling of the last --config (alias --env)
//	--set key=value     override a single key; dots address nested keys
func LoadWithCLI(args []string) (*Config, error) {
	paths, sets, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(paths, sets)
}

func load(paths []string, sets map[string]string) (*Config, error) {
	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, err
		}
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// SPACEAGENT_LLM_BASE_URL -> llm.base_url: only the first underscore
	// after the prefix separates the section.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	for key, raw := range sets {
		if err := k.Set(key, parseValue(raw)); err != nil {
			return nil, fmt.Errorf("set %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + rest
}

// parseValue turns --set values into typed values. JSON objects, arrays
// and scalars are decoded with the YAML parser; anything else stays a string.
func parseValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if m, err := yaml.Parser().Unmarshal([]byte("v: " + trimmed)); err == nil {
		if v, ok := m["v"]; ok && v != nil {
			return v
		}
	}
	return raw
}

func parseCLIOverrides(args []string) ([]string, map[string]string, error) {
	var (
		paths   []string
		profile string
		sets    = map[string]string{}
	)
	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(args[i], "=")
		switch name {
		case "--config", "-config", "--profile", "-profile", "--env", "-env", "--set", "-set":
		default:
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("missing value for %s", name)
			}
			i++
			value = args[i]
		}
		switch strings.TrimLeft(name, "-") {
		case "config":
			paths = append(paths, value)
		case "profile", "env":
			profile = value
		case "set":
			key, v, ok := strings.Cut(value, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return nil, nil, fmt.Errorf("invalid --set value %q, want key=value", value)
			}
			sets[strings.TrimSpace(key)] = v
		}
	}
	if profile != "" && len(paths) > 0 {
		if p := profileConfigPath(paths[len(paths)-1], profile); p != "" {
			paths = append(paths, p)
		}
	}
	return paths, sets, nil
}

// profileConfigPath returns the existing profile sibling of base, or "".
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(base)
	p := strings.TrimSuffix(base, ext) + "." + profile + ext
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

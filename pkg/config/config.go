package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oarkflow/bcl"
	"github.com/oarkflow/json"
	"gopkg.in/yaml.v3"

	"github.com/oarkflow/calc"
)

// REPLConfig controls how the interactive front-end prompts and prints.
type REPLConfig struct {
	Prompt       string `json:"prompt" yaml:"prompt"`
	HistoryFile  string `json:"history_file" yaml:"history_file"`
	ResultPrefix string `json:"result_prefix" yaml:"result_prefix"`
	VoidText     string `json:"void_text" yaml:"void_text"`
	ErrorPrefix  string `json:"error_prefix" yaml:"error_prefix"`
}

type RuntimeConfig struct {
	MaxExpressionDepth int  `json:"max_expression_depth" yaml:"max_expression_depth"`
	MaxLineLength      int  `json:"max_line_length" yaml:"max_line_length"`
	LogEvaluation      bool `json:"log_evaluation" yaml:"log_evaluation"`
}

// CacheConfig sizes the token cache. Zero disables it.
type CacheConfig struct {
	TokenCacheSize int `json:"token_cache_size" yaml:"token_cache_size"`
}

type ServerConfig struct {
	Address     string `json:"address" yaml:"address"`
	MaxSessions int    `json:"max_sessions" yaml:"max_sessions"`
}

type Config struct {
	REPL    REPLConfig    `json:"repl" yaml:"repl"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Cache   CacheConfig   `json:"cache" yaml:"cache"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}

func Default() *Config {
	return &Config{
		REPL: REPLConfig{
			Prompt:       "calc> ",
			HistoryFile:  "~/.calc_history",
			ResultPrefix: "= ",
			VoidText:     "()",
			ErrorPrefix:  "Error: ",
		},
		Runtime: RuntimeConfig{
			MaxExpressionDepth: 256,
			MaxLineLength:      4096,
		},
		Cache: CacheConfig{
			TokenCacheSize: 1024,
		},
		Server: ServerConfig{
			Address:     ":8080",
			MaxSessions: 1000,
		},
	}
}

// Load reads a config file based on its extension. Environment variables in
// the content are expanded before decoding; fields absent from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := decoders[strings.TrimPrefix(ext, ".")]
	if !ok {
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(raw, fn)
}

// LoadFromString loads the config from raw text, useful for tests.
func LoadFromString(content, format string) (*Config, error) {
	fn, ok := decoders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return decode([]byte(content), fn)
}

// Detect tries JSON, YAML and BCL in turn.
func Detect(content string) (*Config, error) {
	trimmed := strings.TrimSpace(content)
	for _, format := range []string{"json", "yaml", "bcl"} {
		if cfg, err := LoadFromString(trimmed, format); err == nil {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("unable to detect config format, please provide valid JSON, YAML, or BCL")
}

var decoders = map[string]func([]byte, any) error{
	"yaml": yaml.Unmarshal,
	"yml":  yaml.Unmarshal,
	"json": func(data []byte, v any) error {
		return json.Unmarshal(data, v)
	},
	"bcl": func(data []byte, v any) error {
		_, err := bcl.Unmarshal(data, v)
		return err
	},
}

func decode(data []byte, fn func([]byte, any) error) (*Config, error) {
	cfg := Default()
	if err := fn([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Runtime.MaxExpressionDepth < 0 {
		return fmt.Errorf("runtime.max_expression_depth must not be negative")
	}
	if cfg.Runtime.MaxLineLength < 0 {
		return fmt.Errorf("runtime.max_line_length must not be negative")
	}
	if cfg.Cache.TokenCacheSize < 0 {
		return fmt.Errorf("cache.token_cache_size must not be negative")
	}
	if cfg.Server.MaxSessions < 0 {
		return fmt.Errorf("server.max_sessions must not be negative")
	}
	if strings.TrimSpace(cfg.Server.Address) == "" {
		return fmt.Errorf("server.address is required")
	}
	return nil
}

func (cfg *Config) ApplyRuntime() calc.RuntimeConfig {
	return calc.RuntimeConfig{
		MaxExpressionDepth: cfg.Runtime.MaxExpressionDepth,
		MaxLineLength:      cfg.Runtime.MaxLineLength,
		LogEvaluation:      cfg.Runtime.LogEvaluation,
	}
}

// HistoryPath resolves a leading ~ in the history file against the home
// directory. An empty result disables history.
func (cfg *Config) HistoryPath() string {
	path := cfg.REPL.HistoryFile
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

// Package config parses the process's TOML configuration file into a
// policy set and server settings. It is a thin, swappable collaborator
// (the core decision engine never imports it), but still uses a real
// third-party TOML decoder rather than a hand-rolled scanner.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/windowgate/slidinglimit/policy"
	"github.com/windowgate/slidinglimit/utils"
)

// Server holds the [server] table.
type Server struct {
	Address        string `toml:"address"`
	RedisURL       string `toml:"redis_url"`
	RedisTimeoutMs int64  `toml:"redis_timeout_ms"`
}

// policyEntry mirrors one [[policies]] table before it is turned into a
// policy.Policy — the wire format uses window_secs and a string type tag
// instead of policy.Kind/time.Duration.
type policyEntry struct {
	Pattern    string `toml:"pattern"`
	Type       string `toml:"type"`
	MaxTokens  int64  `toml:"max_tokens"`
	WindowSecs int64  `toml:"window_secs"`
	Priority   int    `toml:"priority"`
}

type defaultPolicyEntry struct {
	MaxTokens  int64 `toml:"max_tokens"`
	WindowSecs int64 `toml:"window_secs"`
}

// file is the root of the TOML document.
type file struct {
	ServerTable  Server             `toml:"server"`
	DefaultTable defaultPolicyEntry `toml:"default_policy"`
	Policies     []policyEntry      `toml:"policies"`
}

// Config is the fully validated, decoded configuration.
type Config struct {
	Server   Server
	Policies *policy.Set
}

// Load reads and validates a TOML configuration file at path: max_tokens
// >= 0, window_secs >= 1, redis_timeout_ms >= 1, pattern non-empty, type
// in {exact, prefix}, no duplicate (type, pattern) pairs.
func Load(path string) (Config, error) {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return build(f)
}

// LoadString parses TOML content directly, mainly for tests.
func LoadString(data string) (Config, error) {
	var f file
	if _, err := toml.Decode(data, &f); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse: %w", err)
	}
	return build(f)
}

func build(f file) (Config, error) {
	if f.ServerTable.RedisTimeoutMs < 1 {
		return Config{}, fmt.Errorf("config: redis_timeout_ms must be >= 1, got %d", f.ServerTable.RedisTimeoutMs)
	}
	if f.DefaultTable.MaxTokens < 0 {
		return Config{}, fmt.Errorf("config: default_policy.max_tokens must be >= 0, got %d", f.DefaultTable.MaxTokens)
	}
	if f.DefaultTable.WindowSecs < 1 {
		return Config{}, fmt.Errorf("config: default_policy.window_secs must be >= 1, got %d", f.DefaultTable.WindowSecs)
	}

	defaultPolicy := policy.Policy{
		Pattern:   "default",
		Kind:      policy.Exact,
		MaxTokens: f.DefaultTable.MaxTokens,
		Window:    time.Duration(f.DefaultTable.WindowSecs) * time.Second,
	}

	policies := make([]policy.Policy, 0, len(f.Policies))
	for i, p := range f.Policies {
		if err := utils.ValidateKey(p.Pattern, fmt.Sprintf("policies[%d].pattern", i)); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if p.MaxTokens < 0 {
			return Config{}, fmt.Errorf("config: policies[%d].max_tokens must be >= 0, got %d", i, p.MaxTokens)
		}
		if p.WindowSecs < 1 {
			return Config{}, fmt.Errorf("config: policies[%d].window_secs must be >= 1, got %d", i, p.WindowSecs)
		}

		var kind policy.Kind
		switch p.Type {
		case "exact":
			kind = policy.Exact
		case "prefix":
			kind = policy.Prefix
		default:
			return Config{}, fmt.Errorf("config: policies[%d].type must be 'exact' or 'prefix', got %q", i, p.Type)
		}

		policies = append(policies, policy.Policy{
			Pattern:   p.Pattern,
			Kind:      kind,
			MaxTokens: p.MaxTokens,
			Window:    time.Duration(p.WindowSecs) * time.Second,
			Priority:  p.Priority,
		})
	}

	ps, err := policy.New(policies, defaultPolicy)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return Config{Server: f.ServerTable, Policies: ps}, nil
}

// Package config provides configuration management for hackmate.
// Configuration is resolved once at process start, from highest to lowest
// priority:
//  1. Command-line flags (applied by the caller)
//  2. Environment variables (HACKMATE_*)
//  3. Project config (.hackmate.yaml in cwd)
//  4. Home config ($HACKMATE_HOME/config.yaml, default ~/.hackmate/config.yaml)
//  5. Defaults
//
// The resulting *Config is passed explicitly to every component that needs it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTimeout bounds a single tool invocation when neither the config nor
// the step overrides it.
const DefaultTimeout = 300 * time.Second

// Config holds all hackmate configuration.
type Config struct {
	// WorkspaceDir is the root under which per-target workspaces are created.
	WorkspaceDir string `yaml:"workspace_dir" json:"workspace_dir"`

	// Concurrency is passed to tools that take a thread count (httpx, ffuf).
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// DefaultTimeout applies to every command that does not set its own.
	DefaultTimeout time.Duration `yaml:"default_timeout" json:"default_timeout"`

	SafeDefaults SafeDefaults `yaml:"safe_defaults" json:"safe_defaults"`

	// Tools maps a tool key (subfinder, nmap, ...) to the executable to run.
	Tools map[string]string `yaml:"tools" json:"tools"`

	Safety Safety `yaml:"safety" json:"safety"`

	// Steps holds per-step overrides keyed by step name.
	Steps map[string]StepOverride `yaml:"steps,omitempty" json:"steps,omitempty"`

	AI AIConfig `yaml:"ai" json:"ai"`
}

// SafeDefaults are conservative values used when a workflow step does not
// set its own.
type SafeDefaults struct {
	MasscanRate      int    `yaml:"masscan_rate" json:"masscan_rate"`
	NmapTiming       string `yaml:"nmap_timing" json:"nmap_timing"`
	Wordlist         string `yaml:"wordlist" json:"wordlist"`
	AllowDestructive bool   `yaml:"allow_destructive" json:"allow_destructive"`
}

// Safety configures the safety gate.
type Safety struct {
	// EnforceScope turns the scope advisory into a hard precondition.
	EnforceScope    bool            `yaml:"enforce_scope" json:"enforce_scope"`
	AllowedCommands []string        `yaml:"allowed_commands,omitempty" json:"allowed_commands,omitempty"`
	DeniedCommands  []string        `yaml:"denied_commands,omitempty" json:"denied_commands,omitempty"`
	DenyEnvVars     []string        `yaml:"deny_env_vars,omitempty" json:"deny_env_vars,omitempty"`
	DenyRules       []DenyRule      `yaml:"deny_rules,omitempty" json:"deny_rules,omitempty"`
	Redact          []RedactionRule `yaml:"redact,omitempty" json:"redact,omitempty"`
}

// DenyRule rejects any command for which When evaluates to true.
// When is an expr-lang expression over tool, step, target, intrusive,
// requires_scope and args.
type DenyRule struct {
	When   string `yaml:"when" json:"when"`
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// RedactionRule is a regex pattern-replacement pair for sanitizing output.
type RedactionRule struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Replace string `yaml:"replace" json:"replace"`
}

// StepOverride customizes a registered step.
type StepOverride struct {
	// ExtraArgs are text/template strings appended to the step's arguments.
	ExtraArgs []string `yaml:"extra_args,omitempty" json:"extra_args,omitempty"`
}

// AIConfig controls the next-step advisor.
type AIConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Model   string `yaml:"model,omitempty" json:"model,omitempty"`
	APIKey  string `yaml:"api_key,omitempty" json:"-"`
}

var nmapTimingRe = regexp.MustCompile(`^T[0-5]$`)

// Home returns the hackmate data directory.
func Home() string {
	if v := strings.TrimSpace(os.Getenv("HACKMATE_HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hackmate"
	}
	return filepath.Join(home, ".hackmate")
}

// HomeConfigPath returns the path of the home config file.
func HomeConfigPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// ProjectConfigPath returns the path of the project config file.
func ProjectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("HACKMATE_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".hackmate.yaml")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		WorkspaceDir:   filepath.Join(Home(), "workspaces"),
		Concurrency:    10,
		DefaultTimeout: DefaultTimeout,
		SafeDefaults: SafeDefaults{
			MasscanRate: 1000,
			NmapTiming:  "T3",
			Wordlist:    "/usr/share/wordlists/dirb/common.txt",
		},
		Tools: map[string]string{
			"subfinder": "subfinder",
			"httpx":     "httpx",
			"nmap":      "nmap",
			"masscan":   "masscan",
			"ffuf":      "ffuf",
			"whatweb":   "whatweb",
			"nuclei":    "nuclei",
		},
		Safety: Safety{
			EnforceScope: true,
			DenyEnvVars:  []string{"OPENAI_API_KEY", "HACKMATE_AI_*"},
		},
		AI: AIConfig{
			Model:  "gpt-4.1-mini",
			APIKey: os.Getenv("OPENAI_API_KEY"),
		},
	}
}

// Load resolves configuration from the home file, the project file and the
// environment, in that order, on top of Default. Missing files are skipped;
// malformed files are an error.
func Load() (*Config, error) {
	cfg := Default()
	for _, path := range []string{HomeConfigPath(), ProjectConfigPath()} {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile resolves configuration from a single file on top of Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.overlayFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayFile decodes path on top of c. Keys absent from the file keep their
// current values; maps are merged key by key.
func (c *Config) overlayFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() error {
	if v := os.Getenv("HACKMATE_WORKSPACE_DIR"); v != "" {
		c.WorkspaceDir = v
	}
	if v := os.Getenv("HACKMATE_ENFORCE_SCOPE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HACKMATE_ENFORCE_SCOPE: %w", err)
		}
		c.Safety.EnforceScope = b
	}
	if v := os.Getenv("HACKMATE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HACKMATE_TIMEOUT: %w", err)
		}
		c.DefaultTimeout = d
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.WorkspaceDir) == "" {
		problems = append(problems, "workspace_dir must not be empty")
	}
	if c.Concurrency <= 0 {
		problems = append(problems, fmt.Sprintf("concurrency must be positive, got %d", c.Concurrency))
	}
	if c.DefaultTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("default_timeout must be positive, got %s", c.DefaultTimeout))
	}
	if c.SafeDefaults.MasscanRate <= 0 {
		problems = append(problems, fmt.Sprintf("safe_defaults.masscan_rate must be positive, got %d", c.SafeDefaults.MasscanRate))
	}
	if !nmapTimingRe.MatchString(c.SafeDefaults.NmapTiming) {
		problems = append(problems, fmt.Sprintf("safe_defaults.nmap_timing must be T0..T5, got %q", c.SafeDefaults.NmapTiming))
	}
	for i, r := range c.Safety.DenyRules {
		if strings.TrimSpace(r.When) == "" {
			problems = append(problems, fmt.Sprintf("safety.deny_rules[%d].when must not be empty", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ToolPath returns the executable configured for a tool key, falling back to
// the key itself so tools on PATH work without configuration.
func (c *Config) ToolPath(tool string) string {
	if p, ok := c.Tools[tool]; ok && strings.TrimSpace(p) != "" {
		return p
	}
	return tool
}

// WriteDefault writes the default configuration to path unless a file is
// already there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	cfg := Default()
	cfg.AI.APIKey = ""
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all pipedream configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Embedded engine settings
	Shell ShellConfig `yaml:"shell"`

	// External command execution (!cmd lines and sh.Exec)
	Execution ExecutionConfig `yaml:"execution"`

	// Presentation
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ShellConfig configures the interpreter session.
type ShellConfig struct {
	// Packages imported once at startup so one-liners can use them.
	Prelude []string `yaml:"prelude"`

	// Unrestricted gives interpreted code the real os/exec/syscall symbols.
	Unrestricted bool `yaml:"unrestricted"`

	// AllowExec enables !cmd lines and sh.Exec.
	AllowExec bool `yaml:"allow_exec"`

	// WorkingDirectory overrides the session's starting PWD.
	WorkingDirectory string `yaml:"working_directory"`
}

// ExecutionConfig configures the tactile interface.
type ExecutionConfig struct {
	// ShellBinary runs !cmd lines as `<ShellBinary> -c <cmd>`.
	ShellBinary string `yaml:"shell_binary"`

	// Allowed binaries; empty allows everything.
	AllowedBinaries []string `yaml:"allowed_binaries"`

	// Environment variables passed through to child processes.
	AllowedEnvVars []string `yaml:"allowed_env_vars"`
}

// UIConfig configures rendering.
type UIConfig struct {
	Theme              string `yaml:"theme"` // dark, light
	NothingPlaceholder string `yaml:"nothing_placeholder"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	DebugMode  bool            `yaml:"debug_mode"` // Master toggle - false = no logging
	Categories map[string]bool `yaml:"categories"` // Per-category toggles
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "pipedream",
		Version: "0.3.0",

		Shell: ShellConfig{
			Prelude:   []string{"fmt", "math", "os", "strconv", "strings", "time", "pipedream/sh"},
			AllowExec: true,
		},

		Execution: ExecutionConfig{
			ShellBinary: "sh",
			AllowedBinaries: []string{
				"sh", "bash", "cat", "date", "echo", "env", "find", "git", "go",
				"grep", "head", "ls", "ps", "pwd", "tail", "uname", "wc",
			},
			AllowedEnvVars: []string{"PATH", "HOME", "USER", "LANG", "TERM", "PWD"},
		},

		UI: UIConfig{
			Theme:              "dark",
			NothingPlaceholder: "Nothing",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath is where the config lives inside a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".pipedream", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if theme := os.Getenv("PIPEDREAM_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if lvl := os.Getenv("PIPEDREAM_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
	if v := os.Getenv("PIPEDREAM_DEBUG"); v != "" {
		c.Logging.DebugMode = v == "1" || strings.EqualFold(v, "true")
	}
	if sh := os.Getenv("PIPEDREAM_SHELL"); sh != "" {
		c.Execution.ShellBinary = sh
	}
}

// ValidThemes lists the supported UI themes.
var ValidThemes = []string{"dark", "light"}

// ValidLevels lists the supported log levels.
var ValidLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !contains(ValidThemes, c.UI.Theme) {
		return fmt.Errorf("invalid ui theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}
	if c.Logging.Level != "" && !contains(ValidLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	if c.Shell.AllowExec && c.Execution.ShellBinary == "" {
		return fmt.Errorf("execution.shell_binary is required when shell.allow_exec is set")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BakeLens/galley/internal/fileutil"
	"github.com/BakeLens/galley/internal/logger"
	"github.com/BakeLens/galley/internal/types"
	"gopkg.in/yaml.v3"
)

var cfgLog = logger.New("config")

// Config represents the galley configuration
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Workspace WorkspaceCfg   `yaml:"workspace"`
	Sessions  SessionsConfig `yaml:"sessions"`
	Commands  CommandsConfig `yaml:"commands"`
	Audit     AuditConfig    `yaml:"audit"`
}

// ServerConfig holds the control API and logging settings
type ServerConfig struct {
	Port     int            `yaml:"port"`
	LogLevel types.LogLevel `yaml:"log_level"`
	NoColor  bool           `yaml:"no_color"`
	// SocketPath is the Unix domain socket path (or named pipe identifier
	// on Windows). Auto-derived from the port if empty:
	// ~/.galley/galley-api-{port}.sock
	SocketPath string `yaml:"socket_path"`
}

// WorkspaceCfg holds the path security boundary settings
type WorkspaceCfg struct {
	// Root is the directory commands are confined to. Empty means the
	// process working directory at startup.
	Root string `yaml:"root"`
	// AllowTmp also admits the OS temp directory, for commands whose
	// scratch output lands there.
	AllowTmp bool `yaml:"allow_tmp"`
}

// SessionsConfig holds terminal session settings
type SessionsConfig struct {
	MaxConcurrency   int `yaml:"max_concurrency"`
	DefaultTimeoutMs int `yaml:"default_timeout_ms"`
	MaxTimeoutMs     int `yaml:"max_timeout_ms"`
	// SanitizeEnv starts sessions from a safe-key base environment
	// instead of the full parent environment.
	SanitizeEnv        bool `yaml:"sanitize_env"`
	PreviewOutputLimit int  `yaml:"preview_output_limit"`
}

// CommandsConfig holds allowlist and shell-feature settings
type CommandsConfig struct {
	UserDir        string `yaml:"user_dir"`        // directory for user allowlist files (default: ~/.galley/allowlist.d)
	DisableBuiltin bool   `yaml:"disable_builtin"` // disable embedded builtin entries
	Watch          bool   `yaml:"watch"`           // enable file watching for hot reload

	// Shell feature gates, all off unless opted in.
	AllowPipes               bool `yaml:"allow_pipes"`
	AllowRedirections        bool `yaml:"allow_redirections"`
	AllowCommandSubstitution bool `yaml:"allow_command_substitution"`
	AllowBackground          bool `yaml:"allow_background"`
}

// AuditConfig holds execution history settings
type AuditConfig struct {
	Enabled        bool   `yaml:"enabled"`
	DBPath         string `yaml:"db_path"`
	RetentionDays  int    `yaml:"retention_days"` // 0 = keep forever
	OutputLimit    int    `yaml:"output_limit"`   // bytes of output stored per execution
	CompressOutput bool   `yaml:"compress_output"`
}

// DefaultDataDir returns the galley data directory, ~/.galley unless
// GALLEY_DATA_DIR overrides it.
func DefaultDataDir() string {
	if dir := os.Getenv("GALLEY_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".galley"
	}
	return filepath.Join(home, ".galley")
}

// DefaultConfigPath returns the default config file path (~/.galley/config.yaml).
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// defaultDBPath returns the default audit database path under ~/.galley/.
func defaultDBPath() string {
	return filepath.Join(DefaultDataDir(), "galley.db")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     9191,
			LogLevel: types.LogLevelInfo,
			NoColor:  false,
		},
		Workspace: WorkspaceCfg{
			Root: "", // empty means the working directory at startup
		},
		Sessions: SessionsConfig{
			MaxConcurrency:   5,
			DefaultTimeoutMs: 60000,
			MaxTimeoutMs:     300000,
			SanitizeEnv:      false,
		},
		Commands: CommandsConfig{
			UserDir:        "", // empty means use default ~/.galley/allowlist.d
			DisableBuiltin: false,
			Watch:          true,
		},
		Audit: AuditConfig{
			Enabled:       true,
			DBPath:        defaultDBPath(),
			RetentionDays: 30,
			OutputLimit:   64 * 1024,
		},
	}
}

// ResolveWorkspaceRoot returns the configured root, falling back to the
// process working directory.
func (c *Config) ResolveWorkspaceRoot() (string, error) {
	if c.Workspace.Root != "" {
		return c.Workspace.Root, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return wd, nil
}

// Validate checks all Config fields and returns a multi-error report.
// Call this AFTER CLI overrides have been applied, not during Load().
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be 1-65535 (got %d)", c.Server.Port))
	}

	if !c.Server.LogLevel.Valid() {
		errs = append(errs, fmt.Sprintf("server.log_level: unknown log level %q (valid: trace, debug, info, warn, error)", c.Server.LogLevel))
	}

	if c.Sessions.MaxConcurrency < 1 || c.Sessions.MaxConcurrency > 100 {
		errs = append(errs, fmt.Sprintf("sessions.max_concurrency: must be 1-100 (got %d)", c.Sessions.MaxConcurrency))
	}

	if c.Sessions.DefaultTimeoutMs < 1000 {
		errs = append(errs, fmt.Sprintf("sessions.default_timeout_ms: must be >= 1000 (got %d)", c.Sessions.DefaultTimeoutMs))
	}

	if c.Sessions.MaxTimeoutMs < c.Sessions.DefaultTimeoutMs {
		errs = append(errs, fmt.Sprintf("sessions.max_timeout_ms: must be >= default_timeout_ms (got %d < %d)", c.Sessions.MaxTimeoutMs, c.Sessions.DefaultTimeoutMs))
	}

	if c.Sessions.PreviewOutputLimit < 0 {
		errs = append(errs, fmt.Sprintf("sessions.preview_output_limit: must be >= 0 (got %d)", c.Sessions.PreviewOutputLimit))
	}

	if c.Audit.RetentionDays < 0 || c.Audit.RetentionDays > 36500 {
		errs = append(errs, fmt.Sprintf("audit.retention_days: must be 0-36500 (got %d)", c.Audit.RetentionDays))
	}

	if c.Audit.OutputLimit < 0 {
		errs = append(errs, fmt.Sprintf("audit.output_limit: must be >= 0 (got %d)", c.Audit.OutputLimit))
	}

	if len(errs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for i, e := range errs {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e)
	}
	return errors.New(sb.String())
}

// isUnknownFieldError returns true if the error is from yaml.Decoder.KnownFields(true)
// detecting an unrecognized key (e.g. typo like "servr:").
func isUnknownFieldError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found in type")
}

// Load loads configuration from a YAML file.
// Note: Load does NOT call Validate(). Callers should apply CLI overrides
// first, then call cfg.Validate() themselves.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// Try strict decode to warn about unknown fields (typos like "servr:")
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if isUnknownFieldError(err) {
			cfgLog.Warn("config has unknown fields (ignored): %v", err)
			// Re-parse without strict mode for forward compatibility
			cfg = DefaultConfig()
			if err2 := yaml.Unmarshal(data, cfg); err2 != nil {
				return nil, fmt.Errorf("config parse error: %w", err2)
			}
		} else {
			return nil, fmt.Errorf("config parse error: %w", err)
		}
	}

	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories as
// needed. Used by the interactive setup.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config marshal error: %w", err)
	}
	if err := fileutil.SecureMkdirAll(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the name of both the global (~/.usertags) and the repo
// configuration directory.
const DirName = ".usertags"

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config holds application configuration.
type Config struct {
	// Namespace scopes every persisted key (UserData, TagIndex, GlobalTags).
	Namespace string `json:"namespace"`

	// Backend selects the key-value store: "sqlite" (default), "badger" or "memory".
	Backend string `json:"backend"`

	// Locale is the BCP 47 tag used to collate tag names for display.
	Locale string `json:"locale"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "json" or "text". Empty picks text.
	LogFormat string `json:"log_format,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.usertags/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open SQLite connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle SQLite connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names ("tag", "user") to disable entirely.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Namespace: "UserTags",
		Backend:   BackendSQLite,
		Locale:    "en",
		LogLevel:  "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.usertags) and repo (.usertags) directories.
// Repo config is found by walking upward from startDir to find the nearest .usertags/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .usertags/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendBadger, BackendMemory:
	default:
		return errors.New("backend must be one of: sqlite, badger, memory")
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return errors.New("namespace must not be empty")
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Namespace: firstNonEmpty(overlay.Namespace, base.Namespace),
		Backend:   firstNonEmpty(overlay.Backend, base.Backend),
		Locale:    firstNonEmpty(overlay.Locale, base.Locale),
		LogLevel:  firstNonEmpty(overlay.LogLevel, base.LogLevel),
		LogFormat: firstNonEmpty(overlay.LogFormat, base.LogFormat),
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

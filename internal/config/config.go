package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Recall configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Paths     PathsConfig     `yaml:"paths" json:"paths"`
	Watch     WatchConfig     `yaml:"watch" json:"watch"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Vector    VectorConfig    `yaml:"vector" json:"vector"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// PathsConfig configures where index data lives, relative to the project root.
type PathsConfig struct {
	// DataDir holds the document store, vector snapshots, and locks.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// WatchConfig configures change detection.
type WatchConfig struct {
	// DebounceWindowMS is the per-path rate-limit window in milliseconds.
	// The first event for a path passes through; repeats within the window
	// are suppressed and counted.
	DebounceWindowMS int `yaml:"debounce_window_ms" json:"debounce_window_ms"`

	// QueueCapacity bounds the change queue. When full, the incoming event
	// is dropped and counted; the watcher never blocks.
	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity"`
}

// DebounceWindow returns the debounce window as a duration.
func (w WatchConfig) DebounceWindow() time.Duration {
	return time.Duration(w.DebounceWindowMS) * time.Millisecond
}

// IndexConfig configures which files are eligible for indexing.
type IndexConfig struct {
	// AllowedExtensions is the extension allow-list (with leading dot).
	AllowedExtensions []string `yaml:"allowed_extensions" json:"allowed_extensions"`

	// IgnoredPatterns are path components that exclude a file or directory.
	IgnoredPatterns []string `yaml:"ignored_patterns" json:"ignored_patterns"`

	// NoGitignore disables .gitignore handling. When false, patterns from
	// .gitignore files under the root also exclude paths.
	NoGitignore bool `yaml:"no_gitignore" json:"no_gitignore"`

	// MaxFileSizeBytes skips files larger than this.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes" json:"max_file_size_bytes"`
}

// EmbeddingConfig configures the vocabulary embedding model.
type EmbeddingConfig struct {
	// Dimension is the embedding vector width. Valid range: 64-1024.
	Dimension int `yaml:"dimension" json:"dimension"`

	// Seed drives the deterministic weight initialization. The same corpus
	// and seed always produce the same table.
	Seed int64 `yaml:"seed" json:"seed"`

	// CacheSize is the encoder LRU capacity (0 disables caching).
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig configures result shaping.
type SearchConfig struct {
	// DefaultLimit is the result count when the caller passes k <= 0.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// PreviewChars caps the per-result content preview.
	PreviewChars int `yaml:"preview_chars" json:"preview_chars"`

	// MaxContextChars is the default assembled-context budget.
	MaxContextChars int `yaml:"max_context_chars" json:"max_context_chars"`

	// KeywordBackend selects the keyword index backend.
	// Options: "fts5" (default, shares the SQLite store) or "bleve".
	KeywordBackend string `yaml:"keyword_backend" json:"keyword_backend"`
}

// VectorConfig selects and tunes the vector index.
type VectorConfig struct {
	// Kind selects the index implementation.
	// Options: "exact" (default, exhaustive scan) or "hnsw" (approximate).
	Kind string `yaml:"kind" json:"kind"`

	HNSW HNSWConfig `yaml:"hnsw" json:"hnsw"`
}

// HNSWConfig tunes the approximate index graph. Ignored when Kind is "exact".
type HNSWConfig struct {
	M              int `yaml:"m" json:"m"`
	EfConstruction int `yaml:"ef_construction" json:"ef_construction"`
	EfSearch       int `yaml:"ef_search" json:"ef_search"`
}

// LoggingConfig configures the structured log output.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	FilePath  string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
	Stderr    bool   `yaml:"stderr" json:"stderr"`
}

// defaultAllowedExtensions is the out-of-the-box extension allow-list.
var defaultAllowedExtensions = []string{
	".md", ".txt",
	".py",
	".js", ".jsx", ".ts", ".tsx",
	".go",
	".json", ".yml", ".yaml",
}

// defaultIgnoredPatterns are always excluded.
var defaultIgnoredPatterns = []string{
	".git",
	".recall",
	"__pycache__",
	"node_modules",
	".vscode",
	"vendor",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir: ".recall",
		},
		Watch: WatchConfig{
			DebounceWindowMS: 500,
			QueueCapacity:    1000,
		},
		Index: IndexConfig{
			AllowedExtensions: defaultAllowedExtensions,
			IgnoredPatterns:   defaultIgnoredPatterns,
			MaxFileSizeBytes:  2 * 1024 * 1024, // 2 MiB
		},
		Embedding: EmbeddingConfig{
			Dimension: 256,
			Seed:      42,
			CacheSize: 1000,
		},
		Search: SearchConfig{
			DefaultLimit:    10,
			PreviewChars:    300,
			MaxContextChars: 1000,
			KeywordBackend:  "fts5",
		},
		Vector: VectorConfig{
			Kind: "exact",
			HNSW: HNSWConfig{
				M:              16,
				EfConstruction: 200,
				EfSearch:       100,
			},
		},
		Logging: LoggingConfig{
			Level:     "info",
			FilePath:  "", // empty resolves to <data_dir>/logs/recall.log
			MaxSizeMB: 10,
			MaxFiles:  5,
			Stderr:    false,
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/recall/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/recall/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "recall", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback - should rarely happen
		return filepath.Join(os.TempDir(), ".config", "recall", "config.yaml")
	}
	return filepath.Join(home, ".config", "recall", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration for the project rooted at dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/recall/config.yaml)
//  3. Project config (recall.yaml in project root)
//  4. Environment variables (RECALL_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	// Step 1: Load user/global config (if exists)
	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	// Step 2: Load project config (overrides user config)
	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	// Step 3: Apply environment variable overrides (highest precedence)
	cfg.applyEnvOverrides()

	// Step 4: Validate the final configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from recall.yaml or recall.yml.
func (c *Config) loadFromFile(dir string) error {
	// Try .yaml first (takes precedence)
	yamlPath := filepath.Join(dir, "recall.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	// Try .yml as fallback
	ymlPath := filepath.Join(dir, "recall.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Use a temporary struct for parsing to detect type errors
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Merge parsed values with defaults (only non-zero values)
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Paths
	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}

	// Watch
	if other.Watch.DebounceWindowMS != 0 {
		c.Watch.DebounceWindowMS = other.Watch.DebounceWindowMS
	}
	if other.Watch.QueueCapacity != 0 {
		c.Watch.QueueCapacity = other.Watch.QueueCapacity
	}

	// Index
	if len(other.Index.AllowedExtensions) > 0 {
		c.Index.AllowedExtensions = other.Index.AllowedExtensions
	}
	if len(other.Index.IgnoredPatterns) > 0 {
		// Merge with defaults rather than replace
		c.Index.IgnoredPatterns = append(c.Index.IgnoredPatterns, other.Index.IgnoredPatterns...)
	}
	if other.Index.NoGitignore {
		c.Index.NoGitignore = true
	}
	if other.Index.MaxFileSizeBytes != 0 {
		c.Index.MaxFileSizeBytes = other.Index.MaxFileSizeBytes
	}

	// Embedding
	if other.Embedding.Dimension != 0 {
		c.Embedding.Dimension = other.Embedding.Dimension
	}
	if other.Embedding.Seed != 0 {
		c.Embedding.Seed = other.Embedding.Seed
	}
	if other.Embedding.CacheSize != 0 {
		c.Embedding.CacheSize = other.Embedding.CacheSize
	}

	// Search
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.PreviewChars != 0 {
		c.Search.PreviewChars = other.Search.PreviewChars
	}
	if other.Search.MaxContextChars != 0 {
		c.Search.MaxContextChars = other.Search.MaxContextChars
	}
	if other.Search.KeywordBackend != "" {
		c.Search.KeywordBackend = other.Search.KeywordBackend
	}

	// Vector
	if other.Vector.Kind != "" {
		c.Vector.Kind = other.Vector.Kind
	}
	if other.Vector.HNSW.M != 0 {
		c.Vector.HNSW.M = other.Vector.HNSW.M
	}
	if other.Vector.HNSW.EfConstruction != 0 {
		c.Vector.HNSW.EfConstruction = other.Vector.HNSW.EfConstruction
	}
	if other.Vector.HNSW.EfSearch != 0 {
		c.Vector.HNSW.EfSearch = other.Vector.HNSW.EfSearch
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
	// Stderr is boolean - only merge when something else in the logging
	// section was set, since false is indistinguishable from "not set"
	if other.Logging.Level != "" || other.Logging.FilePath != "" {
		c.Logging.Stderr = other.Logging.Stderr
	}
}

// applyEnvOverrides applies RECALL_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RECALL_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("RECALL_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			c.Watch.DebounceWindowMS = ms
		}
	}
	if v := os.Getenv("RECALL_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Watch.QueueCapacity = n
		}
	}
	if v := os.Getenv("RECALL_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Index.MaxFileSizeBytes = n
		}
	}
	if v := os.Getenv("RECALL_NO_GITIGNORE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Index.NoGitignore = b
		}
	}
	if v := os.Getenv("RECALL_EMBEDDING_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embedding.Dimension = n
		}
	}
	if v := os.Getenv("RECALL_EMBEDDING_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Embedding.Seed = n
		}
	}
	if v := os.Getenv("RECALL_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Embedding.CacheSize = n
		}
	}
	if v := os.Getenv("RECALL_SEARCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("RECALL_KEYWORD_BACKEND"); v != "" {
		c.Search.KeywordBackend = v
	}
	if v := os.Getenv("RECALL_VECTOR_KIND"); v != "" {
		c.Vector.Kind = v
	}
	if v := os.Getenv("RECALL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// FindProjectRoot finds the project root directory.
// It looks for a .git directory or recall.yaml/.yml file by walking up the
// directory tree; when neither is found it returns the starting directory.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		// Check for .git directory
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		// Check for recall.yaml or recall.yml
		if fileExists(filepath.Join(currentDir, "recall.yaml")) ||
			fileExists(filepath.Join(currentDir, "recall.yml")) {
			return currentDir, nil
		}

		// Move up one directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}

	if c.Watch.DebounceWindowMS < 0 {
		return fmt.Errorf("watch.debounce_window_ms must be non-negative, got %d", c.Watch.DebounceWindowMS)
	}
	if c.Watch.QueueCapacity < 1 {
		return fmt.Errorf("watch.queue_capacity must be at least 1, got %d", c.Watch.QueueCapacity)
	}

	if c.Index.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("index.max_file_size_bytes must be positive, got %d", c.Index.MaxFileSizeBytes)
	}

	if c.Embedding.Dimension < 64 || c.Embedding.Dimension > 1024 {
		return fmt.Errorf("embedding.dimension must be between 64 and 1024, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("embedding.cache_size must be non-negative, got %d", c.Embedding.CacheSize)
	}

	if c.Search.DefaultLimit < 1 {
		return fmt.Errorf("search.default_limit must be at least 1, got %d", c.Search.DefaultLimit)
	}
	if c.Search.PreviewChars < 0 {
		return fmt.Errorf("search.preview_chars must be non-negative, got %d", c.Search.PreviewChars)
	}
	if c.Search.MaxContextChars < 1 {
		return fmt.Errorf("search.max_context_chars must be at least 1, got %d", c.Search.MaxContextChars)
	}

	// Validate keyword backend
	validBackends := map[string]bool{"fts5": true, "bleve": true}
	if !validBackends[strings.ToLower(c.Search.KeywordBackend)] {
		return fmt.Errorf("search.keyword_backend must be 'fts5' or 'bleve', got %s", c.Search.KeywordBackend)
	}

	// Validate vector index kind
	validKinds := map[string]bool{"exact": true, "hnsw": true}
	if !validKinds[strings.ToLower(c.Vector.Kind)] {
		return fmt.Errorf("vector.kind must be 'exact' or 'hnsw', got %s", c.Vector.Kind)
	}
	if strings.ToLower(c.Vector.Kind) == "hnsw" {
		if c.Vector.HNSW.M < 2 {
			return fmt.Errorf("vector.hnsw.m must be at least 2, got %d", c.Vector.HNSW.M)
		}
		if c.Vector.HNSW.EfConstruction < 1 {
			return fmt.Errorf("vector.hnsw.ef_construction must be at least 1, got %d", c.Vector.HNSW.EfConstruction)
		}
		if c.Vector.HNSW.EfSearch < 1 {
			return fmt.Errorf("vector.hnsw.ef_search must be at least 1, got %d", c.Vector.HNSW.EfSearch)
		}
	}

	// Validate log level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// Save writes the configuration to a YAML file, creating parent directories
// as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

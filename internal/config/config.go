// Package config loads vaulttasks settings from defaults, a TOML file and the
// environment, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	FileName = ".vaulttasks.toml"

	EnvRoot     = "VAULTTASKS_ROOT"
	EnvLogLevel = "VAULTTASKS_LOG_LEVEL"
	EnvDebounce = "VAULTTASKS_DEBOUNCE"

	DefaultReadBatchSize   = 10
	DefaultRecountDebounce = "100ms"
	DefaultLogLevel        = "info"
)

var ErrInvalid = errors.New("invalid config")

// DefaultTags seed tag suggestions before any vault tags are known.
var DefaultTags = []string{"feature", "bug", "improvement"}

type Config struct {
	Root                  string   `toml:"root"`
	ReadBatchSize         int      `toml:"read_batch_size"`
	RecountDebounce       string   `toml:"recount_debounce"`
	CloseSectionAtHeading bool     `toml:"close_section_at_heading"`
	DefaultTags           []string `toml:"default_tags"`
	DefaultProject        string   `toml:"default_project"`
	LogLevel              string   `toml:"log_level"`
	ExportDir             string   `toml:"export_dir"`

	// Path is the file the config was read from, if any.
	Path string `toml:"-"`
}

// Default returns the built-in settings for a vault at root.
func Default(root string) *Config {
	return &Config{
		Root:            root,
		ReadBatchSize:   DefaultReadBatchSize,
		RecountDebounce: DefaultRecountDebounce,
		DefaultTags:     append([]string(nil), DefaultTags...),
		LogLevel:        DefaultLogLevel,
	}
}

// DefaultRoot returns $VAULTTASKS_ROOT or the working directory.
func DefaultRoot() string {
	if env := strings.TrimSpace(os.Getenv(EnvRoot)); env != "" {
		return env
	}
	return "."
}

// Load reads settings for the vault at root. path overrides the default
// location <root>/.vaulttasks.toml; an explicit path must exist.
func Load(root, path string) (*Config, error) {
	root = ExpandPath(root)
	cfg := Default(root)

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	}
	path = ExpandPath(path)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			path = ""
		} else {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	cfg.Path = path

	loadFromEnv(cfg)

	if err := cfg.finalize(root); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDebounce)); v != "" {
		cfg.RecountDebounce = v
	}
}

func (c *Config) finalize(root string) error {
	if strings.TrimSpace(c.Root) == "" {
		c.Root = root
	}
	c.Root = ExpandPath(c.Root)
	if c.ReadBatchSize <= 0 {
		c.ReadBatchSize = DefaultReadBatchSize
	}
	if strings.TrimSpace(c.RecountDebounce) == "" {
		c.RecountDebounce = DefaultRecountDebounce
	}
	if _, err := time.ParseDuration(c.RecountDebounce); err != nil {
		return fmt.Errorf("%w: recount_debounce %q: %v", ErrInvalid, c.RecountDebounce, err)
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.ExportDir == "" {
		c.ExportDir = filepath.Join(c.Root, ".vaulttasks", "exports")
	}
	c.ExportDir = ExpandPath(c.ExportDir)
	return nil
}

// Debounce returns the recount window.
func (c *Config) Debounce() time.Duration {
	d, err := time.ParseDuration(c.RecountDebounce)
	if err != nil || d < 0 {
		d, _ = time.ParseDuration(DefaultRecountDebounce)
	}
	return d
}

// Set updates one key from its string form, as used by `config set`.
func (c *Config) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	switch key {
	case "read_batch_size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: read_batch_size %q", ErrInvalid, value)
		}
		c.ReadBatchSize = n
	case "recount_debounce":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: recount_debounce %q", ErrInvalid, value)
		}
		c.RecountDebounce = value
	case "close_section_at_heading":
		v, ok := ParseBool(value)
		if !ok {
			return fmt.Errorf("%w: close_section_at_heading %q", ErrInvalid, value)
		}
		c.CloseSectionAtHeading = v
	case "default_tags":
		var tags []string
		for _, t := range strings.Split(value, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		c.DefaultTags = tags
	case "default_project":
		if value == "none" || value == "null" {
			value = ""
		}
		c.DefaultProject = value
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(value)
		default:
			return fmt.Errorf("%w: log_level %q", ErrInvalid, value)
		}
	case "export_dir":
		c.ExportDir = ExpandPath(value)
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	return nil
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"read_batch_size",
		"recount_debounce",
		"close_section_at_heading",
		"default_tags",
		"default_project",
		"log_level",
		"export_dir",
	}
}

// Save writes the config as TOML to path, or to <root>/.vaulttasks.toml when
// path is empty.
func (c *Config) Save(path string) error {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join(c.Root, FileName)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%d", time.Now().UTC().UnixNano()))
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	c.Path = path
	return nil
}

// ParseBool accepts the usual yes/no spellings.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// ExpandPath expands a leading ~ to the home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~"+string(os.PathSeparator)) {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

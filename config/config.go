// Package config loads storage settings for superstore.
//
// Settings come from an optional YAML file, then from the environment
// (optionally seeded from .env files):
//
//	dir: ./state
//	file: local.yaml
//	namespace: myapp
//
// Environment overrides:
//
//	SUPERSTORE_DIR        directory holding the local document
//	SUPERSTORE_FILE       document name; its extension picks the format
//	SUPERSTORE_FORMAT     json, yaml or toml; overrides the extension
//	SUPERSTORE_NAMESPACE  key prefix for persisted stores
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/odvcencio/superstore/persist"
	"github.com/odvcencio/superstore/storage"
)

// Environment variable names.
const (
	EnvDir       = "SUPERSTORE_DIR"
	EnvFile      = "SUPERSTORE_FILE"
	EnvFormat    = "SUPERSTORE_FORMAT"
	EnvNamespace = "SUPERSTORE_NAMESPACE"
)

// Config describes where persisted stores live.
type Config struct {
	// Dir holds the local document. Defaults to ".superstore".
	Dir string `yaml:"dir"`

	// File is the local document name. Defaults to "local.json".
	File string `yaml:"file"`

	// Format overrides the codec picked from File's extension.
	Format string `yaml:"format"`

	// Namespace prefixes every persisted key.
	Namespace string `yaml:"namespace"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Dir:  ".superstore",
		File: "local.json",
	}
}

// Load reads a YAML config file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(cfg, data)
}

// Parse reads YAML config data over the defaults.
func Parse(data []byte) (*Config, error) {
	return parse(Default(), data)
}

func parse(cfg *Config, data []byte) (*Config, error) {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads the given .env files (missing files are skipped) into the
// process environment without overriding existing variables, then applies
// the SUPERSTORE_* variables to c.
func (c *Config) LoadEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return fmt.Errorf("load env: %w", err)
		}
	}
	if v, ok := os.LookupEnv(EnvDir); ok {
		c.Dir = v
	}
	if v, ok := os.LookupEnv(EnvFile); ok {
		c.File = v
	}
	if v, ok := os.LookupEnv(EnvFormat); ok {
		c.Format = v
	}
	if v, ok := os.LookupEnv(EnvNamespace); ok {
		c.Namespace = v
	}
	return c.Validate()
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.Dir == "" {
		c.Dir = Default().Dir
	}
	if c.File == "" {
		c.File = Default().File
	}
	if strings.ContainsAny(c.File, `/\`) {
		return fmt.Errorf("file must be a name, not a path: %q", c.File)
	}
	if c.Format != "" {
		if _, err := storage.CodecFor(c.Format); err != nil {
			return err
		}
		return nil
	}
	if _, err := storage.CodecForPath(c.File); err != nil {
		return err
	}
	return nil
}

// Path returns the local document path.
func (c *Config) Path() string {
	return filepath.Join(c.Dir, c.File)
}

// Backends holds the two well-known storage instances.
type Backends struct {
	Local   *storage.File
	Session *storage.Memory
}

// Open opens the local document and a fresh session backend.
func (c *Config) Open(opts ...storage.FileOption) (*Backends, error) {
	local, err := c.OpenLocal(opts...)
	if err != nil {
		return nil, err
	}
	return &Backends{Local: local, Session: storage.NewMemory()}, nil
}

// OpenLocal opens only the local document.
func (c *Config) OpenLocal(opts ...storage.FileOption) (*storage.File, error) {
	if c.Format != "" {
		codec, err := storage.CodecFor(c.Format)
		if err != nil {
			return nil, err
		}
		opts = append(opts, storage.WithCodec(codec))
	}
	return storage.OpenFile(c.Path(), opts...)
}

// For returns the backend of the given kind.
func (b *Backends) For(kind storage.Kind) (storage.Backend, error) {
	switch kind {
	case storage.Local:
		return b.Local, nil
	case storage.Session:
		return b.Session, nil
	}
	return nil, fmt.Errorf("config: unknown storage kind %q", kind)
}

// Init returns persist settings for kind under the configured namespace.
func (c *Config) Init(b *Backends, kind storage.Kind) (persist.Init, error) {
	backend, err := b.For(kind)
	if err != nil {
		return persist.Init{}, err
	}
	return persist.Init{Storage: backend, Namespace: c.Namespace}, nil
}

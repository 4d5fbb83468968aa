// Package config loads the YAML runtime configuration for
// cmd/ntag424ctl: which key files to use and which PC/SC reader to
// bind to. Grounded on the teacher's reset/internal/config package.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Keys    KeysConfig    `yaml:"keys"`
	Runtime RuntimeConfig `yaml:"runtime"`
}

// KeysConfig names the .hex key files for each slot this tool touches.
// Unused slots may be left empty; ChangeApplicationKey/GetKeyVersion
// callers validate their own slot's key is present.
type KeysConfig struct {
	MasterKeyFile string            `yaml:"master_key_file"`
	SlotKeyFiles  map[string]string `yaml:"slot_key_files,omitempty"`
}

// RuntimeConfig names the PC/SC reader to use.
type RuntimeConfig struct {
	ReaderIndex *int `yaml:"reader_index"`
}

// Load reads, strictly decodes, resolves relative paths against the
// config file's directory, and validates the YAML document at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.resolvePaths(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the document is complete enough to run any command.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Keys.MasterKeyFile) == "" {
		return fmt.Errorf("config.keys.master_key_file is required")
	}
	if err := validateReadableFile(c.Keys.MasterKeyFile, "config.keys.master_key_file"); err != nil {
		return err
	}
	for slot, path := range c.Keys.SlotKeyFiles {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := validateReadableFile(path, fmt.Sprintf("config.keys.slot_key_files[%s]", slot)); err != nil {
			return err
		}
	}
	if c.Runtime.ReaderIndex == nil {
		return fmt.Errorf("config.runtime.reader_index is required")
	}
	if *c.Runtime.ReaderIndex < 0 {
		return fmt.Errorf("config.runtime.reader_index must be >= 0")
	}
	return nil
}

func (c *Config) resolvePaths(configPath string) {
	dir := filepath.Dir(configPath)
	c.Keys.MasterKeyFile = resolvePath(dir, c.Keys.MasterKeyFile)
	for slot, path := range c.Keys.SlotKeyFiles {
		c.Keys.SlotKeyFiles[slot] = resolvePath(dir, path)
	}
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}

func validateReadableFile(path, field string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s must point to a file, got directory", field)
	}
	return nil
}

// DefaultPath resolves the config file location next to the running
// executable, falling back to the current working directory (for `go
// run`, where the executable lives in a temp directory).
func DefaultPath(fileName string) (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	exeConfigPath := filepath.Join(filepath.Dir(exePath), fileName)
	if fileExists(exeConfigPath) {
		return exeConfigPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return exeConfigPath, nil
	}
	cwdConfigPath := filepath.Join(cwd, fileName)
	if fileExists(cwdConfigPath) {
		return cwdConfigPath, nil
	}
	return exeConfigPath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

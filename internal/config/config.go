// Package config loads infra.yaml, the workspace description: modules, their
// classpath dependencies and the file sets that form application contexts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the workspace root.
const FileName = "infra.yaml"

// DefaultCacheSize bounds each per-model lookup cache.
const DefaultCacheSize = 42

// ErrNoConfig is returned when an explicitly requested config file is missing.
var ErrNoConfig = errors.New("config file not found")

// Config is the workspace configuration.
type Config struct {
	AutoConfiguration bool           `mapstructure:"autoConfiguration" yaml:"autoConfiguration"`
	CacheSize         int            `mapstructure:"cacheSize" yaml:"cacheSize"`
	LogLevel          string         `mapstructure:"logLevel" yaml:"logLevel"`
	ActiveProfiles    []string       `mapstructure:"activeProfiles" yaml:"activeProfiles,omitempty"`
	Modules           []ModuleConfig `mapstructure:"modules" yaml:"modules"`
}

// ModuleConfig describes one module. Root is relative to the workspace root;
// files are assigned to the module with the longest matching root.
type ModuleConfig struct {
	Name      string          `mapstructure:"name" yaml:"name"`
	Root      string          `mapstructure:"root" yaml:"root"`
	DependsOn []string        `mapstructure:"dependsOn" yaml:"dependsOn,omitempty"`
	FileSets  []FileSetConfig `mapstructure:"fileSets" yaml:"fileSets,omitempty"`
}

// FileSetConfig is an explicitly configured application context. Files are
// XML paths (workspace relative or classpath: locations) or class names.
// Dependencies name other file sets of the same module by id.
type FileSetConfig struct {
	ID             string   `mapstructure:"id" yaml:"id"`
	Name           string   `mapstructure:"name" yaml:"name,omitempty"`
	Files          []string `mapstructure:"files" yaml:"files"`
	Dependencies   []string `mapstructure:"dependencies" yaml:"dependencies,omitempty"`
	ActiveProfiles []string `mapstructure:"activeProfiles" yaml:"activeProfiles,omitempty"`
	Removed        bool     `mapstructure:"removed" yaml:"removed,omitempty"`
}

// Default returns the configuration used when no file exists: one module
// rooted at the workspace root, auto-configuration on.
func Default() *Config {
	return &Config{
		AutoConfiguration: true,
		CacheSize:         DefaultCacheSize,
		LogLevel:          "warn",
		Modules:           []ModuleConfig{{Name: "main"}},
	}
}

// Load reads the configuration for the workspace at root. path overrides the
// default location; a missing default file yields Default().
// INFRA_ prefixed environment variables override scalar keys.
func Load(root, path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("autoConfiguration", true)
	v.SetDefault("cacheSize", DefaultCacheSize)
	v.SetDefault("logLevel", "warn")
	v.SetDefault("activeProfiles", []string{})
	v.SetEnvPrefix("INFRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%s: %w", path, ErrNoConfig)
			}
			return nil, fmt.Errorf("checking config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.AddConfigPath(root)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			cfg := Default()
			if err := v.Unmarshal(cfg); err != nil {
				return nil, fmt.Errorf("applying environment: %w", err)
			}
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", v.ConfigFileUsed(), err)
	}
	if len(cfg.Modules) == 0 {
		cfg.Modules = []ModuleConfig{{Name: "main"}}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks module names, module dependencies and file set ids.
func (c *Config) Validate() error {
	if c.CacheSize <= 0 {
		return &Error{Field: "cacheSize", Message: "must be positive"}
	}
	names := make(map[string]struct{}, len(c.Modules))
	for _, m := range c.Modules {
		if m.Name == "" {
			return &Error{Field: "modules", Message: "module without a name"}
		}
		if _, dup := names[m.Name]; dup {
			return &Error{Field: "modules", Message: fmt.Sprintf("duplicate module %q", m.Name)}
		}
		names[m.Name] = struct{}{}
	}
	for _, m := range c.Modules {
		for _, dep := range m.DependsOn {
			if _, ok := names[dep]; !ok {
				return &Error{Field: "modules." + m.Name + ".dependsOn", Message: fmt.Sprintf("unknown module %q", dep)}
			}
		}
		ids := make(map[string]struct{}, len(m.FileSets))
		for _, fs := range m.FileSets {
			if fs.ID == "" {
				return &Error{Field: "modules." + m.Name + ".fileSets", Message: "file set without an id"}
			}
			if _, dup := ids[fs.ID]; dup {
				return &Error{Field: "modules." + m.Name + ".fileSets", Message: fmt.Sprintf("duplicate file set %q", fs.ID)}
			}
			ids[fs.ID] = struct{}{}
		}
	}
	return nil
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// Error is a validation failure.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

const (
	DefaultListenAddr       = "localhost:8080"
	DefaultPageSize         = 12
	DefaultMaxPageSize      = 100
	DefaultMergeDistance    = 2
	DefaultRequestTimeout   = 30 * time.Second
	DefaultOptimizeInterval = time.Hour
	defaultStoragePathHint  = "/home/user/.local/share/fulltext"
)

type Config struct {
	StorageDir     string   `toml:"storage_dir"`
	ListenAddr     string   `toml:"listen_addr"`
	RequestTimeout Duration `toml:"request_timeout"`
	// OptimizeInterval schedules database maintenance in serve. Negative
	// values disable it.
	OptimizeInterval Duration           `toml:"optimize_interval"`
	DebugServices    []string           `toml:"debug_services,omitempty"`
	Search           SearchConfig       `toml:"search"`
	Presentation     PresentationConfig `toml:"presentation"`
}

// SearchConfig tunes the search within a record.
type SearchConfig struct {
	DefaultPageSize int  `toml:"default_page_size"`
	MaxPageSize     int  `toml:"max_page_size"`
	MergeDistance   *int `toml:"merge_distance,omitempty"`
	// Debug includes engine snippets and hits in every response.
	Debug bool `toml:"debug"`
}

// PresentationConfig holds the base URLs used to build the ids of the
// search response.
type PresentationConfig struct {
	ResourceBaseURL     string `toml:"resource_base_url"`
	AnnoPageBaseURL     string `toml:"annopage_base_url"`
	AnnotationBaseURL   string `toml:"annotation_base_url"`
	SearchBaseURL       string `toml:"search_base_url"`
	AnnoPageDirectory   string `toml:"annopage_directory"`
	AnnotationDirectory string `toml:"annotation_directory"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// DefaultPresentation returns the presentation settings used when the
// config file has none.
func DefaultPresentation() PresentationConfig {
	return PresentationConfig{
		ResourceBaseURL:     "https://iiif.europeana.eu/presentation/",
		AnnoPageBaseURL:     "https://iiif.europeana.eu/presentation/",
		AnnotationBaseURL:   "https://iiif.europeana.eu/presentation/",
		SearchBaseURL:       "https://iiif.europeana.eu/presentation/",
		AnnoPageDirectory:   "/annopage/",
		AnnotationDirectory: "/anno/",
	}
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	cfg := &Config{StorageDir: storageDir}
	cfg.applyDefaults()
	return cfg, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout = Duration{DefaultRequestTimeout}
	}
	if c.OptimizeInterval.Duration == 0 {
		c.OptimizeInterval = Duration{DefaultOptimizeInterval}
	}
	if c.Search.DefaultPageSize == 0 {
		c.Search.DefaultPageSize = DefaultPageSize
	}
	if c.Search.MaxPageSize == 0 {
		c.Search.MaxPageSize = DefaultMaxPageSize
	}
	if c.Search.MergeDistance == nil {
		d := DefaultMergeDistance
		c.Search.MergeDistance = &d
	}

	defaults := DefaultPresentation()
	p := &c.Presentation
	for _, f := range []struct {
		value *string
		def   string
	}{
		{&p.ResourceBaseURL, defaults.ResourceBaseURL},
		{&p.AnnoPageBaseURL, defaults.AnnoPageBaseURL},
		{&p.AnnotationBaseURL, defaults.AnnotationBaseURL},
		{&p.SearchBaseURL, defaults.SearchBaseURL},
		{&p.AnnoPageDirectory, defaults.AnnoPageDirectory},
		{&p.AnnotationDirectory, defaults.AnnotationDirectory},
	} {
		if *f.value == "" {
			*f.value = f.def
		}
	}
}

// Validate checks the values that defaults cannot fix.
func (c *Config) Validate() error {
	if c.Search.DefaultPageSize < 0 || c.Search.MaxPageSize < 0 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("default_page_size %d is larger than max_page_size %d", c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	if c.RequestTimeout.Duration < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	return nil
}

// MergeDistance returns the configured hit merge distance.
func (c *Config) MergeDistance() int {
	if c.Search.MergeDistance == nil {
		return DefaultMergeDistance
	}
	return *c.Search.MergeDistance
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return "", fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	// Replace the placeholder storage_dir with the actual path
	return strings.Replace(configTemplate, defaultStoragePathHint, storageDir, 1), nil
}

// GetDefaultStorageDir returns the default storage directory for databases
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "fulltext")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetConfigDir returns the configuration directory
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "fulltext")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

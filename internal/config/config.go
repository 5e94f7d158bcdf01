// Package config loads and validates the site builder configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
)

// Config represents the application configuration
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Content   ContentConfig   `yaml:"content"`
	Reference ReferenceConfig `yaml:"reference"`
	Execution ExecutionConfig `yaml:"execution"`
	Output    OutputConfig    `yaml:"output"`
	Preview   PreviewConfig   `yaml:"preview,omitempty"`
}

// SiteConfig holds site-wide presentation metadata.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
	Author      string `yaml:"author,omitempty"`
	AuthorURL   string `yaml:"author_url,omitempty"`
}

// ContentConfig describes where article sources live. Dir points at a local
// content tree (one subdirectory per section). Sources optionally lists
// remote git repositories synced into Dir before loading.
type ContentConfig struct {
	Dir     string   `yaml:"dir"`
	Sources []Source `yaml:"sources,omitempty"`
}

// Source represents a remote git repository holding article content.
type Source struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Branch string `yaml:"branch,omitempty"`
	Path   string `yaml:"path,omitempty"` // Subdirectory with content, defaults to repository root
}

// Package identifies an external reference package and where its published
// documentation index lives.
type Package struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
}

// ReferenceConfig drives the reference-table extraction.
type ReferenceConfig struct {
	Packages []Package `yaml:"packages,omitempty"`
	// Filter is an optional regular expression; only symbols matching it are
	// retained. Empty means all symbols.
	Filter string `yaml:"filter,omitempty"`
	// AttributesFile is a YAML records file with per-alias model attributes
	// (modes, engines) and parameter aliases, joined into the tables.
	AttributesFile string `yaml:"attributes_file,omitempty"`
	// FetchConcurrency caps parallel index fetches. Defaults to 4; values <1
	// are coerced to 1.
	FetchConcurrency int `yaml:"fetch_concurrency,omitempty"`
}

// ExecutionConfig configures the external interpreter that evaluates embedded
// code segments.
type ExecutionConfig struct {
	// Command is the interpreter argv, e.g. ["Rscript", "-"]. The interpreter
	// reads code on stdin and writes results to stdout.
	Command []string `yaml:"command,omitempty"`
	WorkDir string   `yaml:"work_dir,omitempty"`
	// Timeout bounds a single article's rendering. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// CachePath is the sqlite database for cached segment results. Empty
	// disables the persistent cache.
	CachePath string `yaml:"cache_path,omitempty"`
}

// OutputConfig represents output configuration
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // Clean output directory before build
}

// PreviewConfig configures the local preview server.
type PreviewConfig struct {
	Addr string `yaml:"addr,omitempty"` // Defaults to :8080
	// RefreshInterval re-fetches the reference metadata periodically while
	// previewing. Zero disables the refresh job.
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, sgerrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- path provided on the command line
	if err != nil {
		return nil, sgerrors.Wrap(err, sgerrors.CategoryConfig, sgerrors.SeverityFatal, "failed to read configuration").
			WithContext("path", configPath)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, sgerrors.Wrap(err, sgerrors.CategoryConfig, sgerrors.SeverityFatal, "failed to parse configuration").
			WithContext("path", configPath)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load()
}

func (c *Config) applyDefaults() {
	if c.Content.Dir == "" {
		c.Content.Dir = "content"
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "./site"
	}
	if c.Reference.FetchConcurrency < 1 {
		c.Reference.FetchConcurrency = 4
	}
	if c.Preview.Addr == "" {
		c.Preview.Addr = ":8080"
	}
}

// Validate checks the configuration for required fields and consistency.
// Validation errors name the offending field.
func (c *Config) Validate() error {
	if c.Site.Title == "" {
		return sgerrors.ConfigRequired("site.title")
	}
	for i, src := range c.Content.Sources {
		if src.Name == "" {
			return sgerrors.ConfigRequired(fmt.Sprintf("content.sources[%d].name", i))
		}
		if src.URL == "" {
			return sgerrors.ConfigRequired(fmt.Sprintf("content.sources[%d].url", i))
		}
	}
	for i, pkg := range c.Reference.Packages {
		if pkg.Name == "" {
			return sgerrors.ConfigRequired(fmt.Sprintf("reference.packages[%d].name", i))
		}
		if pkg.BaseURL == "" {
			return sgerrors.ConfigRequired(fmt.Sprintf("reference.packages[%d].base_url", i))
		}
	}
	if c.Reference.Filter != "" {
		if _, err := regexp.Compile(c.Reference.Filter); err != nil {
			return sgerrors.ValidationFailed("reference.filter", err.Error())
		}
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Init writes an example configuration to configPath. Refuses to overwrite an
// existing file unless force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Site: SiteConfig{
			Title:       "Modeling Tutorials",
			Description: "Articles and reference tables for the modeling packages",
			BaseURL:     "https://example.com",
			Author:      "The Docs Team",
		},
		Content: ContentConfig{
			Dir: "content",
			Sources: []Source{
				{
					Name:   "tutorials",
					URL:    "https://github.com/example/tutorials.git",
					Branch: "main",
					Path:   "content",
				},
			},
		},
		Reference: ReferenceConfig{
			Packages: []Package{
				{Name: "parsnip", BaseURL: "https://parsnip.example.org"},
				{Name: "recipes", BaseURL: "https://recipes.example.org"},
			},
			Filter:         "^(step_|check_)",
			AttributesFile: "reference/attributes.yaml",
		},
		Execution: ExecutionConfig{
			Command: []string{"Rscript", "-"},
			Timeout: 10 * time.Minute,
		},
		Output: OutputConfig{
			Directory: "./site",
			Clean:     true,
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil { // #nosec G306 -- example config is not sensitive
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

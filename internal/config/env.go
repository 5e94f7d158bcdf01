package config

import "os"

// Environment variable overrides. These win over file values so deployments
// can adjust paths without editing the checked-in configuration.
const (
	EnvOutputDir   = "SITEGEN_OUTPUT_DIR"
	EnvContentDir  = "SITEGEN_CONTENT_DIR"
	EnvCachePath   = "SITEGEN_CACHE_PATH"
	EnvPreviewAddr = "SITEGEN_PREVIEW_ADDR"
)

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv(EnvContentDir); v != "" {
		c.Content.Dir = v
	}
	if v := os.Getenv(EnvCachePath); v != "" {
		c.Execution.CachePath = v
	}
	if v := os.Getenv(EnvPreviewAddr); v != "" {
		c.Preview.Addr = v
	}
}

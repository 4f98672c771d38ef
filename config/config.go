package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "10s" decode directly.
type Duration time.Duration

// UnmarshalYAML decodes a duration string such as "10s" or "1m30s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard-library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ScrapeConfig holds settings for the scraping pipeline.
type ScrapeConfig struct {
	// BaseURL is the origin of the scraped site. Listing pages live at
	// {BaseURL}/topic/{topic}/page/{n}.
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each individual page fetch.
	Timeout Duration `yaml:"timeout"`
	// Workers caps the number of concurrent article fetches.
	Workers int `yaml:"workers"`
}

// StorageConfig holds settings for the news database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Config represents the application configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Scrape  ScrapeConfig  `yaml:"scrape"`
	Storage StorageConfig `yaml:"storage"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Scrape: ScrapeConfig{
			BaseURL: "https://digiato.com",
			Timeout: Duration(10 * time.Second),
			Workers: 5,
		},
		Storage: StorageConfig{
			Path: "technews.db",
		},
	}
}

// Load loads configuration from the given YAML file. A missing file is not
// an error; defaults are returned. A file that exists but cannot be parsed
// is an error. Fields omitted from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Scrape.Workers < 1 {
		cfg.Scrape.Workers = 1
	}
	if cfg.Scrape.Timeout <= 0 {
		cfg.Scrape.Timeout = Default().Scrape.Timeout
	}

	return cfg, nil
}

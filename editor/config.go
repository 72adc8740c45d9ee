package editor

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level editor configuration.
type Config struct {
	Project  ProjectConfig  `yaml:"project"`
	Frame    FrameConfig    `yaml:"frame"`
	Timing   TimingConfig   `yaml:"timing"`
	Viewport ViewportConfig `yaml:"viewport"`
	Index    IndexConfig    `yaml:"index"`
}

// ProjectConfig identifies the project being edited.
type ProjectConfig struct {
	ID   string `yaml:"id"`
	Root string `yaml:"root"`
}

// FrameConfig controls the parent-frame channel.
type FrameConfig struct {
	// AllowedOrigins is the send/receive allowlist. The wildcard "*" must
	// be listed explicitly; an empty list refuses everything.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// TimingConfig holds the interaction and correlation delays.
type TimingConfig struct {
	HoverDelay     time.Duration `yaml:"hover_delay"`
	BlurGrace      time.Duration `yaml:"blur_grace"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ViewportConfig is the geometry model used when the host supplies none.
type ViewportConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// IndexConfig points at the optional source index database.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Project.Root == "" {
		c.Project.Root = "."
	}
	if c.Timing.HoverDelay <= 0 {
		c.Timing.HoverDelay = 10 * time.Millisecond
	}
	if c.Timing.BlurGrace <= 0 {
		c.Timing.BlurGrace = 150 * time.Millisecond
	}
	if c.Timing.RequestTimeout <= 0 {
		c.Timing.RequestTimeout = 5 * time.Second
	}
	if c.Viewport.Width <= 0 {
		c.Viewport.Width = 1280
	}
	if c.Viewport.Height <= 0 {
		c.Viewport.Height = 800
	}
}

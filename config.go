package gfx

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/gfx/backend"
)

// BackendAuto selects the best registered adapter.
const BackendAuto = "auto"

// Config is the file form of the settings a gfx program starts with.
// It is read by LoadConfig and applied with WithConfig.
//
// A YAML file:
//
//	backend: native
//	width: 800
//	height: 600
//	buffer_count: 3
//	hal: vulkan
//	texture: sample_assets/hero.png
type Config struct {
	// Backend names the adapter: "software", "native" or "wgpu".
	// "auto" picks the highest priority registered adapter.
	Backend string `yaml:"backend" toml:"backend"`

	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`

	// BufferCount is the swapchain length, 2 or 3.
	BufferCount int  `yaml:"buffer_count" toml:"buffer_count"`
	VSync       bool `yaml:"vsync" toml:"vsync"`

	// HAL pins the native adapter to "vulkan", "metal", "dx12" or "gl".
	// Empty picks the first that works.
	HAL      string `yaml:"hal" toml:"hal"`
	Headless bool   `yaml:"headless" toml:"headless"`

	// Texture is the sprite image the demo draws.
	Texture string `yaml:"texture" toml:"texture"`
}

// DefaultConfig returns the settings of the sample program.
func DefaultConfig() *Config {
	return &Config{
		Backend:     backend.NameSoftware,
		Width:       800,
		Height:      600,
		BufferCount: 2,
		Texture:     "sample_assets/hero.png",
	}
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) config file.
// Keys missing from the file keep their DefaultConfig values; unknown keys
// are an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("gfx: read config: %w", err)
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("gfx: parse %s: %w", filepath.Base(path), err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("gfx: parse %s: %w", filepath.Base(path), err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return nil, fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undec[0].String(), filepath.Base(path))
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedConfig, ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes c to path in the format chosen by its extension.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("gfx: encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("gfx: encode config: %w", err)
		}
	case ".toml":
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("gfx: encode config: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedConfig, ext)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("gfx: write config: %w", err)
	}
	return nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if c.Kind() == backend.KindUnknown {
		return fmt.Errorf("%w: backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.BufferCount != 0 && (c.BufferCount < 2 || c.BufferCount > 3) {
		return fmt.Errorf("%w: buffer_count %d, want 2 or 3", ErrInvalidConfig, c.BufferCount)
	}
	if _, err := parseHALBackend(c.HAL); err != nil {
		return err
	}
	return nil
}

// Kind returns the configured backend kind, or KindUnknown if Backend does
// not name one. For BackendAuto it is the best registered kind.
func (c *Config) Kind() backend.Kind {
	if strings.EqualFold(strings.TrimSpace(c.Backend), BackendAuto) {
		return backend.DefaultKind()
	}
	k, err := backend.ParseKind(c.Backend)
	if err != nil {
		return backend.KindUnknown
	}
	return k
}

func parseHALBackend(name string) (gputypes.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return gputypes.BackendEmpty, nil
	case "vulkan":
		return gputypes.BackendVulkan, nil
	case "metal":
		return gputypes.BackendMetal, nil
	case "dx12", "d3d12":
		return gputypes.BackendDX12, nil
	case "gl", "gles", "opengl":
		return gputypes.BackendGL, nil
	default:
		return gputypes.BackendEmpty, fmt.Errorf("%w: hal %q", ErrInvalidConfig, name)
	}
}

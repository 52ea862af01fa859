package render

import (
	"bytes"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// QueueFamilies maps each logical queue to the Vulkan queue family that
// backs it. Logical queues sharing a family need no ownership transfers.
type QueueFamilies struct {
	Graphics uint32 `toml:"graphics"`
	Compute  uint32 `toml:"compute"`
	Transfer uint32 `toml:"transfer"`
}

// Config holds the tunables of the frame graph.
type Config struct {
	// MaxPasses caps the number of passes declared in one frame.
	MaxPasses int `toml:"max_passes"`
	// MaxResources caps images and buffers, counted separately.
	MaxResources int `toml:"max_resources"`
	// Validate re-checks the lowered plan after every compile.
	Validate bool `toml:"validate"`

	Queues QueueFamilies `toml:"queues"`
}

const (
	defaultMaxPasses    = 64
	defaultMaxResources = 256
)

func DefaultConfig() *Config {
	return &Config{
		MaxPasses:    defaultMaxPasses,
		MaxResources: defaultMaxResources,
	}
}

// ParseConfig decodes a TOML document over the defaults. Unknown keys are
// rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "render: decode config")
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "render: read config %s", path)
	}
	return ParseConfig(data)
}

func (c *Config) check() error {
	if c.MaxPasses <= 0 {
		return errors.Errorf("render: max_passes must be positive, got %d", c.MaxPasses)
	}
	if c.MaxResources <= 0 {
		return errors.Errorf("render: max_resources must be positive, got %d", c.MaxResources)
	}
	return nil
}

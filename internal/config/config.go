// Package config loads normalizer settings from YAML or TOML files and
// IMAGE_NORMALIZER_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
	"github.com/ironsheep/image-normalizer-mcp/internal/pipeline"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IMAGE_NORMALIZER_"

// Config represents the application configuration
type Config struct {
	LogLevel     string          `yaml:"log_level" toml:"log_level"`
	Reference    ReferenceConfig `yaml:"reference" toml:"reference"`
	Quality      int             `yaml:"quality" toml:"quality"`
	Greyscale    bool            `yaml:"greyscale" toml:"greyscale"`
	AllowUpscale bool            `yaml:"allow_upscale" toml:"allow_upscale"`
	OutputDir    string          `yaml:"output_dir" toml:"output_dir"`
	Recursive    bool            `yaml:"recursive" toml:"recursive"`
	Workers      int             `yaml:"workers" toml:"workers"`
	Watch        WatchConfig     `yaml:"watch" toml:"watch"`
}

type ReferenceConfig struct {
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`
}

type WatchConfig struct {
	Dir        string `yaml:"dir" toml:"dir"`
	DebounceMS int    `yaml:"debounce_ms" toml:"debounce_ms"`
}

// Default returns the built-in settings: HD reference, quality 95, colour
// output, one worker per CPU.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Reference: ReferenceConfig{
			Width:  imaging.HD.Width,
			Height: imaging.HD.Height,
		},
		Quality: imaging.DefaultCompressionValue,
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}

// Load reads the configuration file over the defaults. The format follows the
// extension: .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config")
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config")
		}
	default:
		return nil, errors.Errorf("unsupported config format %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// ApplyEnv overrides fields from IMAGE_NORMALIZER_* variables looked up with
// getenv. Unset or empty variables leave the field alone.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(EnvPrefix + key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s%s", EnvPrefix, key)
		}
		*dst = n
		return nil
	}
	flag := func(key string, dst *bool) error {
		v := getenv(EnvPrefix + key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "%s%s", EnvPrefix, key)
		}
		*dst = b
		return nil
	}

	str("LOG_LEVEL", &c.LogLevel)
	str("OUTPUT_DIR", &c.OutputDir)
	str("WATCH_DIR", &c.Watch.Dir)

	for _, err := range []error{
		num("QUALITY", &c.Quality),
		num("WORKERS", &c.Workers),
		num("REFERENCE_WIDTH", &c.Reference.Width),
		num("REFERENCE_HEIGHT", &c.Reference.Height),
		num("WATCH_DEBOUNCE_MS", &c.Watch.DebounceMS),
		flag("GREYSCALE", &c.Greyscale),
		flag("ALLOW_UPSCALE", &c.AllowUpscale),
		flag("RECURSIVE", &c.Recursive),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return errors.Errorf("log_level %q is not one of trace, debug, info, warn, error, off", c.LogLevel)
	}
	if c.Reference.Width <= 0 || c.Reference.Height <= 0 {
		return errors.Errorf("reference must be positive, got %dx%d", c.Reference.Width, c.Reference.Height)
	}
	if _, err := imaging.NewCompression(c.Quality); err != nil {
		return errors.Wrap(err, "quality")
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Watch.DebounceMS < 0 {
		return errors.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMS)
	}
	if c.Watch.Dir != "" && c.OutputDir != "" && sameDir(c.Watch.Dir, c.OutputDir) {
		return errors.New("output_dir must differ from watch.dir")
	}
	return nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// Level returns the hclog level for LogLevel.
func (c *Config) Level() hclog.Level {
	return hclog.LevelFromString(c.LogLevel)
}

// Debounce returns the watcher debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// PipelineOptions converts the settings for pipeline.New.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	compression, err := imaging.NewCompression(c.Quality)
	if err != nil {
		return pipeline.Options{}, errors.Wrap(err, "quality")
	}
	return pipeline.Options{
		Reference:    imaging.Size{Width: c.Reference.Width, Height: c.Reference.Height},
		Compression:  compression,
		Greyscale:    c.Greyscale,
		AllowUpscale: c.AllowUpscale,
		OutputDir:    c.OutputDir,
	}, nil
}

// Package config loads xdrtool settings from a YAML file and XDRTOOL_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Format names a text or byte representation. Values are read and printed
// as yaml or json; encoded XDR is read and written as hex or binary.
type Format string

const (
	FormatYAML   Format = "yaml"
	FormatJSON   Format = "json"
	FormatHex    Format = "hex"
	FormatBinary Format = "binary"
)

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatYAML, FormatJSON, FormatHex, FormatBinary:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "bin", "raw":
		return FormatBinary, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Config is the xdrtool configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Schema is the default schema file for commands that need one.
	Schema string `mapstructure:"schema" yaml:"schema"`

	// Format is the value format of encode input and decode output.
	Format Format `mapstructure:"format" validate:"required,oneof=yaml json" yaml:"format"`

	// Wire is how encoded bytes are written by encode and read by decode.
	Wire Format `mapstructure:"wire" validate:"required,oneof=hex binary" yaml:"wire"`

	Frame FrameConfig `mapstructure:"frame" yaml:"frame"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	// Output is stdout, stderr or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// FrameConfig controls the checked envelope around encoded payloads.
type FrameConfig struct {
	Enabled  bool `mapstructure:"enabled" yaml:"enabled"`
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "WARN", Format: "text", Output: "stderr"},
		Format:  FormatYAML,
		Wire:    FormatHex,
	}
}

// Load reads configuration with this precedence: XDRTOOL_* environment
// variables, then the config file, then defaults. An empty path looks for
// xdrtool.yaml in the working directory and $HOME/.config/xdrtool; a
// missing file is not an error unless path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setupViper(v, path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !(errors.As(err, &notFound) || os.IsNotExist(err)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and option combinations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Frame.Compress && !c.Frame.Enabled {
		return fmt.Errorf("frame.compress needs frame.enabled")
	}
	return nil
}

// setupViper registers every key with its default so that environment
// variables such as XDRTOOL_LOGGING_LEVEL are seen by Unmarshal.
func setupViper(v *viper.Viper, path string) {
	def := Default()
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.output", def.Logging.Output)
	v.SetDefault("schema", def.Schema)
	v.SetDefault("format", string(def.Format))
	v.SetDefault("wire", string(def.Wire))
	v.SetDefault("frame.enabled", def.Frame.Enabled)
	v.SetDefault("frame.compress", def.Frame.Compress)

	v.SetEnvPrefix("XDRTOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		return
	}
	v.SetConfigName("xdrtool")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.config/xdrtool")
	}
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		formatDecodeHook(),
	)
}

// formatDecodeHook validates and normalizes Format values.
func formatDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(Format("")) {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		return ParseFormat(s)
	}
}

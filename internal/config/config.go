package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hpackCodec/internal/hpack"
	"hpackCodec/internal/logging"
)

const (
	minFrameSize = 1 << 14
	maxFrameSize = 1<<24 - 1
)

type ServerConfig struct {
	Port int `yaml:"port"`
	// MaxFrameSize bounds HEADERS and CONTINUATION frames written by the
	// service.
	MaxFrameSize uint32 `yaml:"max_frame_size"`
}

type EncoderConfig struct {
	HeaderTableSize uint32 `yaml:"header_table_size"`
	OutputLimit     int    `yaml:"output_limit"`
	// UnindexedNames replaces the default deny-list when set.
	UnindexedNames []string `yaml:"unindexed_names"`
}

type InternConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
	MaxLength  int  `yaml:"max_length"`
}

type DecoderConfig struct {
	HeaderTableSize uint32       `yaml:"header_table_size"`
	MaxStringLength int          `yaml:"max_string_length"`
	Intern          InternConfig `yaml:"intern"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Encoder EncoderConfig `yaml:"encoder"`
	Decoder DecoderConfig `yaml:"decoder"`
	Logger  LoggerConfig  `yaml:"logger"`
}

// Default returns the configuration used for anything a file leaves out.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			MaxFrameSize: minFrameSize,
		},
		Encoder: EncoderConfig{
			HeaderTableSize: hpack.DefaultMaxDynamicTableSize,
		},
		Decoder: DecoderConfig{
			HeaderTableSize: hpack.DefaultMaxDynamicTableSize,
			MaxStringLength: 1 << 16,
		},
		Logger: LoggerConfig{
			Level: string(logging.LogLevelInfo),
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", c.Server.Port)
	}
	if c.Server.MaxFrameSize < minFrameSize || c.Server.MaxFrameSize > maxFrameSize {
		return fmt.Errorf("server max frame size %d is out of range", c.Server.MaxFrameSize)
	}
	if c.Encoder.OutputLimit < 0 {
		return errors.New("encoder output limit is negative")
	}
	for _, name := range c.Encoder.UnindexedNames {
		if name == "" {
			return errors.New("encoder unindexed names contain an empty name")
		}
	}
	if c.Decoder.MaxStringLength < 0 {
		return errors.New("decoder max string length is negative")
	}
	if c.Decoder.Intern.MaxEntries < 0 || c.Decoder.Intern.MaxLength < 0 {
		return errors.New("decoder intern limits are negative")
	}
	if c.Logger.Level == "" {
		return errors.New("logger level is not set")
	}
	if _, err := logging.ParseLevel(c.Logger.Level); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads a YAML file on top of Default and validates the result.
func LoadConfig(configFileName string) (*Config, error) {
	data, err := os.ReadFile(configFileName)
	if err != nil {
		return nil, err
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", configFileName, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFileName, err)
	}

	return config, nil
}

// NewLogger builds the logger described by the logger section.
func (c *Config) NewLogger() (*logging.DefaultLogger, error) {
	level, err := logging.ParseLevel(c.Logger.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewDefaultLogger(level, c.Logger.File)
}

func (c *EncoderConfig) Options(logger logging.Logger) []hpack.EncoderOption {
	opts := []hpack.EncoderOption{
		hpack.WithEncoderTableSize(c.HeaderTableSize),
		hpack.WithOutputLimit(c.OutputLimit),
		hpack.WithEncoderLogger(logger),
	}
	if c.UnindexedNames != nil {
		opts = append(opts, hpack.WithUnindexedNames(c.UnindexedNames...))
	}
	return opts
}

// Options translates the section into decoder options. interner may be nil;
// it is only used when interning is enabled.
func (c *DecoderConfig) Options(logger logging.Logger, interner hpack.Interner) []hpack.DecoderOption {
	opts := []hpack.DecoderOption{
		hpack.WithDecoderTableSize(c.HeaderTableSize),
		hpack.WithMaxStringLength(c.MaxStringLength),
		hpack.WithDecoderLogger(logger),
	}
	if c.Intern.Enabled && interner != nil {
		opts = append(opts, hpack.WithInterner(interner))
	}
	return opts
}

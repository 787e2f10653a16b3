package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpackCodec/internal/cache"
	"hpackCodec/internal/hpack"
	"hpackCodec/internal/logging"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
encoder:
  header_table_size: 256
  output_limit: 1024
  unindexed_names: [x-request-id]
decoder:
  max_string_length: 512
  intern:
    enabled: true
    max_entries: 100
logger:
  level: debug
`)

	conf, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, conf.Server.Port)
	assert.Equal(t, uint32(16384), conf.Server.MaxFrameSize)
	assert.Equal(t, uint32(256), conf.Encoder.HeaderTableSize)
	assert.Equal(t, 1024, conf.Encoder.OutputLimit)
	assert.Equal(t, []string{"x-request-id"}, conf.Encoder.UnindexedNames)
	assert.Equal(t, uint32(4096), conf.Decoder.HeaderTableSize)
	assert.Equal(t, 512, conf.Decoder.MaxStringLength)
	assert.True(t, conf.Decoder.Intern.Enabled)
	assert.Equal(t, 100, conf.Decoder.Intern.MaxEntries)
	assert.Equal(t, "debug", conf.Logger.Level)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeConfig(t, "server: [not, a, map]"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "logger:\n  level: verbose\n"))
	assert.ErrorContains(t, err, "unknown log level")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"frame size", func(c *Config) { c.Server.MaxFrameSize = 100 }},
		{"output limit", func(c *Config) { c.Encoder.OutputLimit = -1 }},
		{"empty unindexed name", func(c *Config) { c.Encoder.UnindexedNames = []string{""} }},
		{"string length", func(c *Config) { c.Decoder.MaxStringLength = -1 }},
		{"intern", func(c *Config) { c.Decoder.Intern.MaxLength = -1 }},
		{"no level", func(c *Config) { c.Logger.Level = "" }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestCodecOptions(t *testing.T) {
	conf := Default()
	conf.Encoder.HeaderTableSize = 256
	conf.Encoder.UnindexedNames = []string{}
	conf.Decoder.HeaderTableSize = 256
	conf.Decoder.MaxStringLength = 8
	conf.Decoder.Intern.Enabled = true

	enc := hpack.NewEncoder(conf.Encoder.Options(logging.NopLogger{})...)
	assert.Equal(t, uint32(256), enc.DynamicTable().MaxSize())

	// With an empty deny-list even :path is indexed.
	block, err := enc.Encode([]hpack.HeaderField{{HeaderFieldName: ":path", HeaderFieldValue: "/a"}})
	require.NoError(t, err)
	assert.Equal(t, 1, enc.DynamicTable().Len())

	interner := cache.NewInterner(0, 0)
	dec := hpack.NewDecoder(conf.Decoder.Options(logging.NopLogger{}, interner)...)
	fields, err := dec.DecodeFull(block)
	require.NoError(t, err)
	assert.Equal(t, []hpack.HeaderField{{HeaderFieldName: ":path", HeaderFieldValue: "/a"}}, fields)
	assert.Equal(t, 1, interner.Len())

	_, err = dec.DecodeFull([]byte{0x00, 0x09, 'x', '-', 'l', 'o', 'n', 'g', 'e', 's', 't', 0x00})
	assert.ErrorIs(t, err, hpack.ErrStringTooLong)
}

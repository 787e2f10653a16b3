package cmd

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestDecodeHexBlocks(t *testing.T) {
	input := "828684418cf1e3c2e5f23a6ba0ab90f4ff\n828684be5886a8eb10649cbf\n"

	out, err := run(t, input, "decode", "--hex", "--show-table")
	require.NoError(t, err)
	assert.Equal(t, `:method: GET
:scheme: http
:path: /
:authority: www.example.com

:method: GET
:scheme: http
:path: /
:authority: www.example.com
cache-control: no-cache

# dynamic table: 2 entries, 110/4096 octets
# [62] cache-control: no-cache (s = 53)
# [63] :authority: www.example.com (s = 57)
`, out)
}

func TestDecodeErrors(t *testing.T) {
	_, err := run(t, "be\n", "decode", "--hex")
	assert.ErrorContains(t, err, "invalid index")

	_, err = run(t, "8\n", "decode", "--hex")
	assert.ErrorContains(t, err, "line 1")

	_, err = run(t, "", "decode", "--log-level", "loud")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestEncodeThenDecodeFrames(t *testing.T) {
	fields := ":method: GET\n:scheme: https\n:path: /\n:authority: www.example.com\n\n:method: GET\n:scheme: https\n:path: /\n:authority: www.example.com\n!authorization: secret\n"

	out, err := run(t, fields, "encode", "--stream", "3", "--end-stream")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	out, err = run(t, strings.Join(lines, "\n"), "decode", "--hex", "--frames")
	require.NoError(t, err)
	assert.Equal(t, `# stream 3 (end stream)
:method: GET
:scheme: https
:path: /
:authority: www.example.com

# stream 3 (end stream)
:method: GET
:scheme: https
:path: /
:authority: www.example.com
!authorization: secret
`, out)
}

func TestEncodeFromFileWithConfig(t *testing.T) {
	dir := t.TempDir()
	request := filepath.Join(dir, "request.txt")
	require.NoError(t, os.WriteFile(request, []byte(":method: GET\n"), 0644))
	conf := filepath.Join(dir, "hpack.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("encoder:\n  header_table_size: 256\n"), 0644))

	out, err := run(t, "", "encode", "-c", conf, request)
	require.NoError(t, err)
	assert.Equal(t, "3fe10182\n", out)

	out, err = run(t, "", "encode", "--table-size", "4096", request)
	require.NoError(t, err)
	assert.Equal(t, "82\n", out)

	_, err = run(t, "", "encode", filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestEncodeDecodeBinaryRoundTrip(t *testing.T) {
	out, err := run(t, "x-custom: 1\nx-custom: 2\n", "encode")
	require.NoError(t, err)
	block, err := hex.DecodeString(strings.TrimSpace(out))
	require.NoError(t, err)

	out, err = run(t, string(block), "decode")
	require.NoError(t, err)
	assert.Equal(t, "x-custom: 1\nx-custom: 2\n", out)
}

func TestEncodeDump(t *testing.T) {
	out, err := run(t, ":method: GET\n", "encode", "--dump")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "00000000  82 "), out)
}

func TestSplitBlocks(t *testing.T) {
	assert.Equal(t, []string{"a: 1\nb: 2\n", "c: 3\n"}, splitBlocks("\na: 1\nb: 2\n\n\nc: 3"))
	assert.Empty(t, splitBlocks("\n \n"))
}

package commands

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/goxdr/pkg/frame"
	"github.com/rawbytedev/goxdr/pkg/schema"
)

const fsSchema = "../../../pkg/schema/testdata/fs.yaml"

const attrYAML = `
type: DIR
mode: 493
size: "8589934592"
mtime: -5
verf: "deadbeef"
`

const attrHex = "00000002000001ed0000000200000000fffffffffffffffbdeadbeef"

// resetFlags undoes flag values left behind by an earlier Execute.
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
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	cfg = nil

	var out bytes.Buffer
	root := GetRootCmd()
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "xdrtool dev (commit none"), out)
}

func TestTypes(t *testing.T) {
	out, err := run(t, "", "--schema", fsSchema, "types")
	require.NoError(t, err)
	assert.Equal(t, "Filename\nFileType\nAttr\nEntry\nBody\nStatus\nReply\nTags\n", out)

	out, err = run(t, "", "-s", fsSchema, "types", "Attr")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Attr", "FileType"}, strings.Fields(out))

	_, err = run(t, "", "-s", fsSchema, "types", "Nope")
	require.Error(t, err)
}

func TestTypesLong(t *testing.T) {
	out, err := run(t, "", "-s", fsSchema, "types", "--long", "Body")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6, out)
	assert.Equal(t, []string{"NAME", "KIND", "REFERENCES"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"Body", "union", "Entry,", "FileType"}, strings.Fields(lines[1]))
}

func TestEncodeDecode(t *testing.T) {
	out, err := run(t, attrYAML, "-s", fsSchema, "encode", "Attr")
	require.NoError(t, err)
	assert.Equal(t, attrHex+"\n", out)

	out, err = run(t, attrHex, "-s", fsSchema, "decode", "Attr")
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &back))
	assert.Equal(t, map[string]any{
		"type":  "DIR",
		"mode":  493,
		"size":  "8589934592",
		"mtime": "-5",
		"verf":  "deadbeef",
	}, back)
}

func TestDecodeJSON(t *testing.T) {
	out, err := run(t, "00000000 00000003", "-s", fsSchema, "-f", "json", "decode", "Status")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]any{
		"type":  float64(0),
		"value": map[string]any{"type": "LNK"},
	}, got)
}

func TestEncodeJSONInput(t *testing.T) {
	out, err := run(t, `{"default": 7, "value": "boom"}`, "-s", fsSchema, "encode", "Status")
	require.NoError(t, err)
	assert.Equal(t, "0000000700000004626f6f6d\n", out)
}

func TestBinaryWire(t *testing.T) {
	out, err := run(t, attrYAML, "-s", fsSchema, "--wire", "binary", "encode", "Attr")
	require.NoError(t, err)
	want, _ := hex.DecodeString(attrHex)
	assert.Equal(t, string(want), out)

	_, err = run(t, out, "-s", fsSchema, "-w", "raw", "decode", "Attr")
	require.NoError(t, err)
}

func TestFramedRoundTrip(t *testing.T) {
	out, err := run(t, attrYAML, "-s", fsSchema, "--zstd", "encode", "Attr")
	require.NoError(t, err)
	data, err := hex.DecodeString(strings.TrimSpace(out))
	require.NoError(t, err)
	payload, h, err := frame.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, byte(frame.FlagZstd), h.Flags)
	assert.Equal(t, attrHex, hex.EncodeToString(payload))

	_, err = run(t, out, "-s", fsSchema, "--frame", "decode", "Attr")
	require.NoError(t, err)

	// unframed bytes are not a frame
	_, err = run(t, attrHex, "-s", fsSchema, "--frame", "decode", "Attr")
	require.ErrorIs(t, err, frame.ErrNotFrame)
}

func TestValidate(t *testing.T) {
	out, err := run(t, `[a, b]`, "-s", fsSchema, "validate", "Tags")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = run(t, `[a, b, c, d, e]`, "-s", fsSchema, "validate", "Tags")
	require.ErrorIs(t, err, schema.ErrValue)

	_, err = run(t, `{name: x}`, "-s", fsSchema, "validate", "Entry")
	require.ErrorIs(t, err, schema.ErrValue)
}

func TestErrors(t *testing.T) {
	_, err := run(t, attrYAML, "encode", "Attr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema file")

	_, err = run(t, "zz", "-s", fsSchema, "decode", "Attr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid hex")

	_, err = run(t, attrHex+"00", "-s", fsSchema, "decode", "Attr")
	require.Error(t, err)

	_, err = run(t, attrYAML, "-s", fsSchema, "-f", "hex", "encode", "Attr")
	require.Error(t, err)

	_, err = run(t, "", "-s", fsSchema, "encode")
	require.Error(t, err)
}

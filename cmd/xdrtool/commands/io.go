package commands

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/goxdr/internal/config"
	"github.com/rawbytedev/goxdr/internal/logger"
	"github.com/rawbytedev/goxdr/pkg/frame"
)

// readInput returns the contents of the file named by args[0], or stdin
// when there is none or it is "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

// readValue parses a YAML or JSON document into plain Go values. JSON is
// read by the YAML decoder since every JSON document is valid YAML.
func readValue(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse value: %w", err)
	}
	return v, nil
}

func writeValue(w io.Writer, f config.Format, v any) error {
	if f == config.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// wrap frames payload when framing is enabled.
func wrap(payload []byte) ([]byte, error) {
	if !cfg.Frame.Enabled {
		return payload, nil
	}
	var flags byte
	if cfg.Frame.Compress {
		flags |= frame.FlagZstd
	}
	return frame.Encode(payload, flags)
}

// unwrap strips the frame when framing is enabled.
func unwrap(data []byte) ([]byte, error) {
	if !cfg.Frame.Enabled {
		return data, nil
	}
	payload, h, err := frame.Decode(data)
	if err != nil {
		return nil, err
	}
	logger.Debug("frame decoded", logger.KeyBytes, h.Length, "flags", h.Flags)
	return payload, nil
}

func writeWire(w io.Writer, data []byte) error {
	if cfg.Wire == config.FormatBinary {
		_, err := w.Write(data)
		return err
	}
	_, err := fmt.Fprintln(w, hex.EncodeToString(data))
	return err
}

// readWire accepts hex with any whitespace, or raw bytes.
func readWire(data []byte) ([]byte, error) {
	if cfg.Wire == config.FormatBinary {
		return data, nil
	}
	clean := strings.Join(strings.Fields(string(data)), "")
	out, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return out, nil
}

// trimBOM drops a UTF-8 byte order mark some editors prepend.
func trimBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
}

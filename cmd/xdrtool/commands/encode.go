package commands

import (
	"github.com/spf13/cobra"

	"github.com/rawbytedev/goxdr/internal/logger"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <type> [file]",
	Short: "Encode a YAML or JSON value as XDR",
	Long: `Encode reads a value of the named type from file (or stdin) and writes
its XDR encoding as hex or raw bytes.

Structs are maps of field names, unions are {type: <case>, value: <arm>}
or {default: <discriminant>, value: <arm>}, hypers may be strings and
opaque data is hex.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEncode,
}

func runEncode(cmd *cobra.Command, args []string) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	input, err := readInput(cmd, args[1:])
	if err != nil {
		return err
	}
	native, err := readValue(trimBOM(input))
	if err != nil {
		return err
	}
	v, err := s.FromNative(args[0], native)
	if err != nil {
		return err
	}
	payload, err := s.Marshal(args[0], v)
	if err != nil {
		return err
	}
	data, err := wrap(payload)
	if err != nil {
		return err
	}
	logger.Info("encoded", logger.KeyType, args[0], logger.KeyBytes, len(payload))
	return writeWire(cmd.OutOrStdout(), data)
}

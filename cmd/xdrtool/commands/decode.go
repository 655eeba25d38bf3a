package commands

import (
	"github.com/spf13/cobra"

	"github.com/rawbytedev/goxdr/internal/logger"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <type> [file]",
	Short: "Decode XDR into a YAML or JSON value",
	Long: `Decode reads the XDR encoding of the named type from file (or stdin)
and prints it in the value format accepted by encode.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	input, err := readInput(cmd, args[1:])
	if err != nil {
		return err
	}
	data, err := readWire(input)
	if err != nil {
		return err
	}
	payload, err := unwrap(data)
	if err != nil {
		return err
	}
	v, err := s.Unmarshal(args[0], payload)
	if err != nil {
		return err
	}
	native, err := s.ToNative(args[0], v)
	if err != nil {
		return err
	}
	logger.Info("decoded", logger.KeyType, args[0], logger.KeyBytes, len(payload))
	return writeValue(cmd.OutOrStdout(), cfg.Format, native)
}

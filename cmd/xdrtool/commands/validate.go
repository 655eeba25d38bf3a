package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rawbytedev/goxdr/internal/logger"
	"github.com/rawbytedev/goxdr/pkg/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate <type> [file]",
	Short: "Check that a YAML or JSON value fits a schema type",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
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
	if !s.Validate(args[0], v) {
		// FromNative shapes values but leaves bounds to the converters
		reason := "value does not fit the type"
		if _, err := s.Marshal(args[0], v); err != nil {
			reason = err.Error()
		}
		logger.Warn("invalid value", logger.KeyType, args[0], logger.KeyError, reason)
		return fmt.Errorf("%w: %s", schema.ErrValue, reason)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

// Package commands implements the xdrtool command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rawbytedev/goxdr/internal/config"
	"github.com/rawbytedev/goxdr/internal/logger"
	"github.com/rawbytedev/goxdr/pkg/schema"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile    string
	schemaFile string
	formatFlag string
	wireFlag   string
	frameFlag  bool
	zstdFlag   bool

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "xdrtool",
	Short: "Encode, decode and validate XDR data against a schema",
	Long: `xdrtool converts between YAML or JSON values and XDR (RFC 4506) bytes
using a schema file of constants, enums, structs, unions and typedefs.

Use "xdrtool [command] --help" for more information about a command.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./xdrtool.yaml or ~/.config/xdrtool/xdrtool.yaml)")
	pf.StringVarP(&schemaFile, "schema", "s", "", "schema file")
	pf.StringVarP(&formatFlag, "format", "f", "", "value format: yaml or json")
	pf.StringVarP(&wireFlag, "wire", "w", "", "encoded byte format: hex or binary")
	pf.BoolVar(&frameFlag, "frame", false, "wrap encoded data in a checksummed frame")
	pf.BoolVar(&zstdFlag, "zstd", false, "compress framed payloads (implies --frame)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(validateCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// setup loads the configuration, applies flag overrides and starts the
// logger.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("schema") {
		c.Schema = schemaFile
	}
	if flags.Changed("format") {
		if c.Format, err = config.ParseFormat(formatFlag); err != nil {
			return err
		}
	}
	if flags.Changed("wire") {
		if c.Wire, err = config.ParseFormat(wireFlag); err != nil {
			return err
		}
	}
	if flags.Changed("frame") {
		c.Frame.Enabled = frameFlag
	}
	if flags.Changed("zstd") {
		c.Frame.Compress = zstdFlag
		c.Frame.Enabled = c.Frame.Enabled || zstdFlag
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := InitLogger(c); err != nil {
		return err
	}
	logger.Debug("config loaded", logger.KeyCommand, cmd.Name(), logger.KeySchema, c.Schema)
	cfg = c
	return nil
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(c *config.Config) error {
	loggerCfg := logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func loadSchema() (*schema.Schema, error) {
	if cfg.Schema == "" {
		return nil, fmt.Errorf("no schema file: pass --schema or set schema in the config")
	}
	return schema.LoadFile(cfg.Schema)
}

package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rawbytedev/goxdr/pkg/schema"
)

var typesLong bool

var typesCmd = &cobra.Command{
	Use:   "types [type...]",
	Short: "List schema types",
	Long: `List the types declared in the schema. With arguments, list the named
types and every type they reference.`,
	RunE: runTypes,
}

func init() {
	typesCmd.Flags().BoolVarP(&typesLong, "long", "l", false, "show kind and references of each type")
}

func runTypes(cmd *cobra.Command, args []string) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	names := s.Names()
	if len(args) > 0 {
		if names, err = s.Closure(args...); err != nil {
			return err
		}
	}
	if typesLong {
		printTypeTable(cmd.OutOrStdout(), s, names)
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func printTypeTable(w io.Writer, s *schema.Schema, names []string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Kind", "References"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, name := range names {
		kind, refs, _ := s.Describe(name)
		table.Append([]string{name, kind, strings.Join(refs, ", ")})
	}
	table.Render()
}

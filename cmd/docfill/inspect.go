package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/fill"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect TEMPLATE.docx",
		Short: "List the placeholders in a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			placeholders, err := fill.InspectFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(placeholders)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(placeholders) == 0 {
				fmt.Fprintln(out, "no placeholders found")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCOUNT\tTABLE\tADDRESS LINE")
			for _, p := range placeholders {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.Name, p.Count, yesNo(p.InTable), yesNo(p.AddressLine))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if cfg.IsCompactTemplate(args[0]) {
				fmt.Fprintln(out, "\ncompact variant: blank address line 2/3 paragraphs will be removed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print placeholders as JSON")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

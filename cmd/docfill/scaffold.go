package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docfill/internal/docxfile"
	"github.com/dgallion1/docfill/internal/parser"
	"github.com/spf13/cobra"
)

func newScaffoldCmd() *cobra.Command {
	var data, out, title string
	cmd := &cobra.Command{
		Use:   "scaffold",
		Short: "Write a starter template with a placeholder for every data column",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parser.ForFile(data)
			if err != nil {
				return err
			}
			f, err := os.Open(data)
			if err != nil {
				return fmt.Errorf("read data: %w", err)
			}
			defer f.Close()
			ds, err := p.Parse(f, filepath.Base(data))
			if err != nil {
				return err
			}
			if len(ds.Columns) == 0 {
				return fmt.Errorf("%s has no columns", filepath.Base(data))
			}
			if title == "" {
				title = strings.TrimSuffix(filepath.Base(out), filepath.Ext(out))
			}
			tpl, err := docxfile.Scaffold(title, ds.Columns)
			if err != nil {
				return err
			}
			if err := docxfile.WriteFileAtomic(out, tpl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s with %d placeholders\n", out, len(ds.Columns))
			return nil
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "Data file whose header names the placeholders")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Template file to write")
	cmd.Flags().StringVar(&title, "title", "", "Heading line (default: output file name)")
	cmd.MarkFlagRequired("data")
	cmd.MarkFlagRequired("out")
	return cmd
}

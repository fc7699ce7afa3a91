package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:   "docfill",
		Short: "Fill {Placeholder} fields in Word templates from data records",
		Long: `docfill replaces {Name} style placeholders in a .docx template with the
values of each record in a CSV, XLSX, HTML or text data file, writing one
document per record and optionally converting them to PDF.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")

	logger := func(cmd *cobra.Command) *slog.Logger {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	}

	root.AddCommand(newFillCmd(logger))
	root.AddCommand(newInspectCmd())
	root.AddCommand(newScaffoldCmd())
	return root
}

// Execute runs the command tree with signal handling.
func Execute(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

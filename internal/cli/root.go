// Package cli is the cobra command tree of the tours binary. Commands only
// wire dependencies together; no business logic belongs here.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// version is stamped at build time with
// -ldflags "-X github.com/pkordes/showing-tours/internal/cli.version=...".
var version = "dev"

// NewRoot builds the tours command with every subcommand attached.
func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tours",
		Short:         "Showing tours: scheduling, drive times and showing requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewWorkerCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version)
		},
	})
	return cmd
}

// newLogger builds the process logger. format "text" selects the text
// handler for local development; anything else writes JSON suitable for log
// aggregators. An unknown level falls back to info.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

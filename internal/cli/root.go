// Package cli wires abtool's six operations to a cobra command tree,
// with zerolog logging, mpb progress bars, and a term-based passphrase
// prompt. The command/flag surface is grounded on make_argparser in
// the reference implementation; the cobra+zerolog+mpb stack itself is
// grounded on rescale-labs-Rescale_Interlink's own use of those same
// libraries, not on the teacher repo (whose cli.go/session.go use
// neither cobra, zerolog, nor mpb).
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var log zerolog.Logger

// NewRootCommand builds the top-level "abtool" command and all of its
// subcommands.
func NewRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "abtool",
		Short:         "Inspect, decrypt, and re-encrypt Android Backup (.ab) files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging(verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newLsCommand(),
		newRewrapCommand(),
		newSplitCommand(),
		newMergeCommand(),
		newUnwrapCommand(),
		newWrapCommand(),
	)
	return root
}

func initLogging(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	var w = os.Stderr
	if term.IsTerminal(int(w.Fd())) {
		log = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).Level(level).With().Timestamp().Logger()
	} else {
		log = zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "abtool:", err)
	os.Exit(1)
}

// Command lzarc extracts, packs, lists, and inspects lzarc archives.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/lzarc"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	verbose bool
	codec   string
	workers int
}

func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// resolveCodec returns the codec named by --codec and a func that releases it.
func (g *globalFlags) resolveCodec() (lzarc.Codec, func(), error) {
	c, ok := lzarc.CodecByName(g.codec)
	if !ok {
		return nil, nil, fmt.Errorf("unknown codec %q (want lz11 or zstd)", g.codec)
	}
	release := func() {}
	if closer, ok := c.(io.Closer); ok {
		release = func() { _ = closer.Close() } //nolint:errcheck // best-effort cleanup
	}
	return c, release, nil
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "lzarc",
		Short: "Extract, pack, and list lzarc archives",
		Long: `lzarc reads and writes the big-endian lzarc container: a table of named
files, each compressed individually, with payloads padded to 64 bytes.`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&g.codec, "codec", "lz11", "payload codec (lz11 or zstd)")
	cmd.PersistentFlags().IntVar(&g.workers, "workers", 0, "parallel workers (0 = GOMAXPROCS, negative = serial)")

	cmd.AddCommand(newExtractCommand(g))
	cmd.AddCommand(newPackCommand(g))
	cmd.AddCommand(newListCommand(g))
	cmd.AddCommand(newInspectCommand())

	return cmd
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/meigma/lzarc"
)

func newExtractCommand(g *globalFlags) *cobra.Command {
	var skipExisting bool

	cmd := &cobra.Command{
		Use:   "extract <file> <out_dir>",
		Short: "Extract an lzarc archive to a given directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			codec, release, err := g.resolveCodec()
			if err != nil {
				return err
			}
			defer release()

			a, err := lzarc.Open(args[0], lzarc.DecodeWithCodec(codec), lzarc.DecodeWithLogger(logger))
			if err != nil {
				return err
			}
			_, err = lzarc.Extract(cmd.Context(), a, args[1],
				lzarc.ExtractWithSkipExisting(skipExisting),
				lzarc.ExtractWithWorkers(g.workers),
				lzarc.ExtractWithLogger(logger),
			)
			return err
		},
	}

	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "leave files that already exist untouched")

	return cmd
}

func newPackCommand(g *globalFlags) *cobra.Command {
	var maxFiles int

	cmd := &cobra.Command{
		Use:   "pack <dir> <out_file>",
		Short: "Pack a given directory into an lzarc file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			codec, release, err := g.resolveCodec()
			if err != nil {
				return err
			}
			defer release()

			a, err := lzarc.FromDir(cmd.Context(), args[0],
				lzarc.PackWithMaxFiles(maxFiles),
				lzarc.PackWithLogger(logger),
			)
			if err != nil {
				return err
			}
			if err := a.Save(args[1],
				lzarc.EncodeWithCodec(codec),
				lzarc.EncodeWithConcurrency(g.workers),
				lzarc.EncodeWithLogger(logger),
			); err != nil {
				return err
			}

			logger.Info("wrote archive",
				"path", args[1],
				"entries", a.Len(),
				"size", units.BytesSize(float64(a.DeclaredTotalSize)))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "maximum number of files (0 = default, negative = unlimited)")

	return cmd
}

func newListCommand(g *globalFlags) *cobra.Command {
	var (
		sizeBytes bool
		digests   bool
	)

	cmd := &cobra.Command{
		Use:   "list <file>",
		Short: "List files in a given lzarc file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, release, err := g.resolveCodec()
			if err != nil {
				return err
			}
			defer release()

			a, err := lzarc.Open(args[0],
				lzarc.DecodeWithCodec(codec),
				lzarc.DecodeWithLogger(g.logger(cmd.ErrOrStderr())),
			)
			if err != nil {
				return err
			}
			return lzarc.WriteListing(cmd.OutOrStdout(), a,
				lzarc.ListWithByteSizes(sizeBytes),
				lzarc.ListWithDigests(digests),
			)
		},
	}

	cmd.Flags().BoolVarP(&sizeBytes, "size-bytes", "s", false, "print sizes in bytes")
	cmd.Flags().BoolVar(&digests, "digest", false, "print the sha256 digest of each file")

	return cmd
}

func newInspectCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the header and entry table of an lzarc file",
		Long: `Print the raw header and entry table of an lzarc file without
decompressing any payload. With --check, also verify the layout rules
that archives written by pack follow.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, size, err := lzarc.InspectFile(args[0])
			if err != nil {
				return err
			}
			if err := writeLayout(cmd.OutOrStdout(), layout, size); err != nil {
				return err
			}
			if check {
				if err := layout.Validate(size); err != nil {
					return fmt.Errorf("layout check: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "layout ok")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "verify layout invariants")

	return cmd
}

func writeLayout(w io.Writer, l *lzarc.Layout, size int64) error {
	fmt.Fprintf(w, "stream size:    %#x\n", size)
	fmt.Fprintf(w, "declared size:  %#x\n", l.Header.DeclaredTotalSize)
	fmt.Fprintf(w, "aligned size:   %#x\n", l.Header.AlignedTotalSize)
	fmt.Fprintf(w, "entries:        %d\n", l.Header.EntryCount)
	fmt.Fprintf(w, "start of data:  %#x\n", l.StartOfData())
	fmt.Fprintf(w, "ratio:          %.3f\n\n", l.CompressionRatio())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDATA POS\tCOMPRESSED\tALIGNED POS\tSIZE HINT\tSIZE\tNAME")
	for i, r := range l.Records {
		fmt.Fprintf(tw, "%d\t%#x\t%#x\t%#x\t%#x\t%#x\t%s\n",
			i, r.DataPos, r.CompressedSize, r.AlignedPos, r.SizeHint, r.UncompressedSize, r.Name)
	}
	return tw.Flush()
}

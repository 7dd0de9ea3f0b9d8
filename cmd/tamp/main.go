// Command tamp compresses and decompresses files with the Tamp codec. It is
// file/stream I/O glue around the core package, not part of it: every byte
// it moves passes through plain tamp.Compressor/tamp.Decompressor calls.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var mlock bool

func main() {
	root := &cobra.Command{
		Use:           "tamp",
		Short:         "Tamp: a byte-oriented LZSS+Huffman codec for memory-constrained targets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&mlock, "mlock", false, "lock the codec's window buffer into physical memory for the run (where supported)")

	root.AddCommand(newCompressCmd())
	root.AddCommand(newDecompressCmd())
	root.AddCommand(newBenchCmd())

	if err := root.Execute(); err != nil {
		slog.Error("tamp", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

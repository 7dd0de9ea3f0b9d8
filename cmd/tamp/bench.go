package main

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"
	"github.com/therootcompany/xz"

	"github.com/tampcodec/tamp"
)

// newBenchCmd is a developer tool for picking Conf parameters against a
// target device's RAM budget, not a production code path: it sweeps every
// window size tamp supports (8 to 15 bits) at 8-bit literals and prints
// the resulting ratio next to flate, and optionally against a pre-made xz
// reference of the same plaintext. Narrower literal widths are not swept.
func newBenchCmd() *cobra.Command {
	var xzRef string
	cmd := &cobra.Command{
		Use:   "bench FILE",
		Short: "Compare tamp compression ratios across window sizes (8-bit literals) against flate and an optional xz reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return runBench(cmd.OutOrStdout(), data, xzRef)
		},
	}
	cmd.Flags().StringVar(&xzRef, "xz-reference", "", "path to an .xz file already holding the same plaintext, for a ratio comparison (therootcompany/xz decodes it only to confirm the plaintext matches)")
	return cmd
}

func runBench(w io.Writer, data []byte, xzRef string) error {
	fmt.Fprintf(w, "input: %d bytes\n\n", len(data))
	fmt.Fprintf(w, "%-8s %-8s %10s %8s\n", "window", "literal", "bytes", "ratio")
	for windowBits := uint8(8); windowBits <= 15; windowBits++ {
		conf := tamp.Conf{Window: windowBits, Literal: 8}
		n, err := tampCompressedSize(data, conf)
		if err != nil {
			return fmt.Errorf("tamp bench window=%d: %w", windowBits, err)
		}
		fmt.Fprintf(w, "%-8d %-8d %10d %8.3f\n", windowBits, 8, n, ratio(len(data), n))
	}

	fmt.Fprintln(w)
	n := flateCompressedSize(data)
	fmt.Fprintf(w, "flate: %10d %8.3f\n", n, ratio(len(data), n))

	if xzRef != "" {
		n, err := xzReferenceSize(xzRef, data)
		if err != nil {
			return fmt.Errorf("tamp bench: xz reference: %w", err)
		}
		fmt.Fprintf(w, "xz:    %10d %8.3f\n", n, ratio(len(data), n))
	}
	return nil
}

func ratio(in, out int) float64 {
	if out == 0 {
		return math.Inf(1)
	}
	return float64(in) / float64(out)
}

func tampCompressedSize(data []byte, conf tamp.Conf) (int, error) {
	window := make([]byte, conf.WindowSize())
	c, err := tamp.NewCompressor(conf, window)
	if err != nil {
		return 0, err
	}
	var out bytes.Buffer
	buf := make([]byte, 4096)
	in := data
	for len(in) > 0 {
		consumed, written, cerr := c.Compress(in, buf)
		out.Write(buf[:written])
		in = in[consumed:]
		if cerr != nil && !errors.Is(cerr, tamp.ErrOutputFull) {
			return 0, cerr
		}
	}
	for {
		written, ferr := c.Flush(buf, false)
		out.Write(buf[:written])
		if ferr == nil {
			break
		}
		if !errors.Is(ferr, tamp.ErrOutputFull) {
			return 0, ferr
		}
	}
	return out.Len(), nil
}

func flateCompressedSize(data []byte) int {
	var out bytes.Buffer
	fw, _ := flate.NewWriter(&out, flate.BestCompression)
	fw.Write(data)
	fw.Close()
	return out.Len()
}

// xzReferenceSize decodes the .xz file at path and confirms it holds
// exactly want, then returns path's on-disk size as the xz-compressed
// byte count for the ratio table: the compressed size is a property of
// the reference file, not of anything tamp can compute, so the decode
// here is a correctness check rather than a measurement.
func xzReferenceSize(path string, want []byte) (int, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	zr, err := xz.NewReader(f, xz.DefaultDictMax)
	if err != nil {
		return 0, err
	}
	got, err := io.ReadAll(zr)
	if err != nil {
		return 0, err
	}
	if !bytes.Equal(got, want) {
		return 0, fmt.Errorf("xz reference %s decodes to %d bytes, does not match the %d-byte input", path, len(got), len(want))
	}
	return int(fi.Size()), nil
}

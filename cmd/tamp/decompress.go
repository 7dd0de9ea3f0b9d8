package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tampcodec/tamp"
)

func newDecompressCmd() *cobra.Command {
	var windowBitsMax uint8
	var dictFile string

	cmd := &cobra.Command{
		Use:   "decompress FILES...",
		Short: "Decompress one or more FILE" + outSuffix + " files, writing the plaintext alongside each",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if !strings.HasSuffix(path, outSuffix) {
					return fmt.Errorf("tamp: decompress: %s does not have the %s extension", path, outSuffix)
				}
				if err := decompressFile(path, windowBitsMax, dictFile); err != nil {
					return fmt.Errorf("tamp: decompress %s: %w", path, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().Uint8VarP(&windowBitsMax, "window-max", "W", 15, "declared physical capacity of the window buffer, in log2 bytes")
	cmd.Flags().StringVar(&dictFile, "dict-file", "", "path to a custom dictionary matching the stream's window size")
	return cmd
}

func decompressFile(path string, windowBitsMax uint8, dictFile string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	outPath := strings.TrimSuffix(path, outSuffix)
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	window := make([]byte, 1<<windowBitsMax)
	if mlock {
		unlock := mlockWindow(window)
		defer unlock()
	}

	var conf *tamp.Conf
	if dictFile != "" {
		data, err := os.ReadFile(dictFile)
		if err != nil {
			return fmt.Errorf("tamp: reading dict file %s: %w", dictFile, err)
		}
		// The custom-dictionary conf itself still comes off the wire
		// header; we only pre-stage the window contents here and let
		// Decompress read the header on its first call.
		copy(window, data)
	}
	d, err := tamp.NewDecompressor(conf, window, windowBitsMax)
	if err != nil {
		return err
	}

	inBuf := make([]byte, 4096)
	outBuf := make([]byte, 4096)
	var total int64
	for {
		n, rerr := in.Read(inBuf)
		data := inBuf[:n]
		for len(data) > 0 || rerr == io.EOF {
			consumed, written, derr := d.Decompress(data, outBuf)
			if written > 0 {
				if _, err := out.Write(outBuf[:written]); err != nil {
					return err
				}
				total += int64(written)
			}
			data = data[consumed:]
			if errors.Is(derr, tamp.ErrInputExhausted) {
				break
			}
			if errors.Is(derr, tamp.ErrOutputFull) {
				continue
			}
			if derr != nil {
				return derr
			}
			if consumed == 0 && written == 0 {
				break
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	slog.Info("decompress", "path", path, "bytes", total)
	return nil
}

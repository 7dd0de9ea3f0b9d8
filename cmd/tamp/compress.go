package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/tampcodec/tamp"
)

const outSuffix = ".tamp"

func newCompressCmd() *cobra.Command {
	var windowBits, literalBits uint8
	var lazy bool
	var dictFile string

	cmd := &cobra.Command{
		Use:   "compress FILES...",
		Short: "Compress one or more files, writing FILE" + outSuffix + " alongside each",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := confFromFlags(windowBits, literalBits, dictFile != "")
			if err != nil {
				return err
			}
			conf.LazyMatching = lazy

			files, err := expandGlobs(args)
			if err != nil {
				return err
			}
			for _, path := range files {
				if err := compressFile(path, conf, dictFile); err != nil {
					return fmt.Errorf("tamp: compress %s: %w", path, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().Uint8VarP(&windowBits, "window", "w", defaultWindowBits, "log2(window size in bytes), 8-15")
	cmd.Flags().Uint8VarP(&literalBits, "literal", "l", defaultLiteralBits, "bits per literal symbol, 5-8")
	cmd.Flags().BoolVar(&lazy, "lazy", false, "enable one-byte lazy-match lookahead")
	cmd.Flags().StringVar(&dictFile, "dict-file", "", "path to a custom dictionary matching the window size, instead of the default deterministic fill")
	return cmd
}

func expandGlobs(patterns []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, pat := range patterns {
		matches, err := doublestar.FilepathGlob(pat)
		if err != nil {
			return nil, fmt.Errorf("tamp: bad pattern %q: %w", pat, err)
		}
		if len(matches) == 0 {
			matches = []string{pat}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func compressFile(path string, conf tamp.Conf, dictFile string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + outSuffix)
	if err != nil {
		return err
	}
	defer out.Close()

	window := make([]byte, conf.WindowSize())
	if dictFile != "" {
		if err := loadDictFile(dictFile, window); err != nil {
			return err
		}
	}
	if mlock {
		unlock := mlockWindow(window)
		defer unlock()
	}

	c, err := tamp.NewCompressor(conf, window)
	if err != nil {
		return err
	}

	inBuf := make([]byte, 4096)
	outBuf := make([]byte, 4096)
	var total int64
	for {
		n, rerr := in.Read(inBuf)
		data := inBuf[:n]
		for len(data) > 0 {
			consumed, written, cerr := c.Compress(data, outBuf)
			if written > 0 {
				if _, err := out.Write(outBuf[:written]); err != nil {
					return err
				}
				total += int64(written)
			}
			data = data[consumed:]
			if cerr != nil && !errors.Is(cerr, tamp.ErrOutputFull) {
				return cerr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	for {
		written, ferr := c.Flush(outBuf, false)
		if written > 0 {
			if _, err := out.Write(outBuf[:written]); err != nil {
				return err
			}
			total += int64(written)
		}
		if ferr == nil {
			break
		}
		if !errors.Is(ferr, tamp.ErrOutputFull) {
			return ferr
		}
	}

	slog.Info("compress", "path", path, "bytes", total, "window", conf.Window, "literal", conf.Literal)
	return nil
}

func loadDictFile(path string, window []byte) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tamp: reading dict file %s: %w", path, err)
	}
	if len(data) != len(window) {
		return fmt.Errorf("tamp: dict file %s is %d bytes, want %d", path, len(data), len(window))
	}
	copy(window, data)
	return nil
}

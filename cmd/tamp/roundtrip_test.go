package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tampcodec/tamp"
)

func TestCompressDecompressFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	want := []byte("the quick brown fox jumps over the lazy dog, again and again and again")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	conf := tamp.Conf{Window: 10, Literal: 8}
	if err := compressFile(path, conf, ""); err != nil {
		t.Fatalf("compressFile: %v", err)
	}

	compressedPath := path + outSuffix
	if _, err := os.Stat(compressedPath); err != nil {
		t.Fatalf("compressed output missing: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove original: %v", err)
	}

	if err := decompressFile(compressedPath, conf.Window, ""); err != nil {
		t.Fatalf("decompressFile: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile restored: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("round trip = %q, want %q", got, want)
	}
}

func TestExpandGlobsFallsBackToLiteralPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nomatch-literal.bin")
	// Only a sibling file exists, so path itself matches nothing on disk.
	if err := os.WriteFile(filepath.Join(dir, "present.bin"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := expandGlobs([]string{path})
	if err != nil {
		t.Fatalf("expandGlobs: %v", err)
	}
	if len(got) != 1 || got[0] != path {
		t.Fatalf("expandGlobs(%q) = %v, want [%q]", path, got, path)
	}
}

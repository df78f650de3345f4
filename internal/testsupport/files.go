package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

var gifHeader = []byte("GIF89a")

// WriteClip writes a stand-in GIF of the requested size at path: the GIF89a
// signature followed by filler bytes. Sizes below the signature length are
// raised to it.
func WriteClip(t testing.TB, path string, size int) {
	t.Helper()

	if size < len(gifHeader) {
		size = len(gifHeader)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	body := append(append([]byte{}, gifHeader...), bytes.Repeat([]byte{0x42}, size-len(gifHeader))...)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SRT returns a small two-cue subtitle document.
func SRT() []byte {
	return []byte("1\n00:00:01,000 --> 00:00:02,500\nHello there, how are you doing today?\n\n" +
		"2\n00:00:03,000 --> 00:00:04,000\nI am doing very well, thank you for asking.\n")
}

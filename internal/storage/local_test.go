package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/config"
)

func TestLocalArchivePutAndCleanup(t *testing.T) {
	dir := t.TempDir()
	a, err := NewLocalArchive(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	name := ObjectName("conversions", "text", ".txt", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	if !strings.HasPrefix(name, "conversions/2024/03/09/") || !strings.HasSuffix(name, "-text.txt") {
		t.Fatalf("unexpected object name %q", name)
	}

	url, err := a.Put(context.Background(), name, "text/plain", []byte("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	p := strings.TrimPrefix(url, "file://")
	got, err := os.ReadFile(filepath.FromSlash(p))
	if err != nil || string(got) != "hello" {
		t.Fatalf("read back %q: %v", got, err)
	}

	if n := a.Cleanup(time.Hour); n != 0 {
		t.Fatalf("fresh file removed")
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(filepath.FromSlash(p), old, old); err != nil {
		t.Fatal(err)
	}
	if n := a.Cleanup(time.Hour); n != 1 {
		t.Fatalf("expected 1 removal, got %d", n)
	}
}

func TestNewDisabled(t *testing.T) {
	a, err := New(context.Background(), config.ArchiveConfig{})
	if err != nil || a != nil {
		t.Fatalf("expected nil archive, got %v %v", a, err)
	}
	if _, err := New(context.Background(), config.ArchiveConfig{Backend: "ftp"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

type closingArchive struct {
	LocalArchive
	closed bool
}

func (c *closingArchive) Close() error {
	c.closed = true
	return nil
}

func TestCloseReleasesClosers(t *testing.T) {
	c := &closingArchive{}
	if err := Close(c); err != nil || !c.closed {
		t.Fatalf("closer not called: closed=%v err=%v", c.closed, err)
	}
	local, err := NewLocalArchive(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := Close(local); err != nil {
		t.Fatalf("local close: %v", err)
	}
	if err := Close(nil); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}

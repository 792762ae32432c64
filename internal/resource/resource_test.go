package resource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

func TestFileResolver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, ref := range []string{path, FileRef(path)} {
		h, err := Router{"file": FileResolver{}}.Resolve(context.Background(), ref)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", ref, err)
		}
		if h.Path != path || h.Name != "a.pdf" || h.Size != 8 {
			t.Fatalf("unexpected handle %+v", h)
		}
		if !strings.HasPrefix(h.Ref, "file://") {
			t.Fatalf("Ref = %q", h.Ref)
		}
		if err := h.Commit(context.Background()); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		if err := h.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
}

func TestResolveFailures(t *testing.T) {
	r := Router{"file": FileResolver{}}
	dir := t.TempDir()
	for _, ref := range []string{filepath.Join(dir, "missing.pdf"), dir, "s3://bucket/key.pdf"} {
		if _, err := r.Resolve(context.Background(), ref); !errors.Is(err, models.ErrAccessDenied) {
			t.Errorf("Resolve(%q) = %v, want ErrAccessDenied", ref, err)
		}
	}
}

func TestParseGCSRef(t *testing.T) {
	bucket, object, err := ParseGCSRef("gs://docs/inbox/a b.pdf")
	if err != nil || bucket != "docs" || object != "inbox/a b.pdf" {
		t.Fatalf("ParseGCSRef() = %q, %q, %v", bucket, object, err)
	}
	for _, bad := range []string{"docs/a.pdf", "gs://docs", "gs:///a.pdf"} {
		if _, _, err := ParseGCSRef(bad); err == nil {
			t.Errorf("ParseGCSRef(%q) expected error", bad)
		}
	}
	if got := GCSRef("docs", "a.pdf"); got != "gs://docs/a.pdf" {
		t.Fatalf("GCSRef() = %q", got)
	}
}

func TestWriteThenSwap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := WriteThenSwap(path, func(tmp string) error {
		return os.WriteFile(tmp, []byte("new"), 0o644)
	})
	if err != nil {
		t.Fatalf("WriteThenSwap() error = %v", err)
	}
	if b, _ := os.ReadFile(path); string(b) != "new" {
		t.Fatalf("content = %q, want new", b)
	}

	boom := errors.New("boom")
	err = WriteThenSwap(path, func(tmp string) error {
		_ = os.WriteFile(tmp, []byte("partial"), 0o644)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if b, _ := os.ReadFile(path); string(b) != "new" {
		t.Fatalf("original modified after failed write: %q", b)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %v", entries)
	}
}

func TestFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FileHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("FileHash() = %s", got)
	}
}

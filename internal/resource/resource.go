// Package resource resolves document references to local files and writes
// changes back to where the document came from.
package resource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

// Handle is a resolved document, materialized as a local file at Path.
// Commit publishes local changes back to Ref; Close releases local copies.
type Handle struct {
	Ref  string
	Path string
	Name string
	Size int64

	commit  func(ctx context.Context) error
	cleanup func() error
}

// Commit writes the local file back to its origin. It is a no-op for
// resources that already live on the local filesystem.
func (h *Handle) Commit(ctx context.Context) error {
	if h.commit == nil {
		return nil
	}
	return h.commit(ctx)
}

// Close releases temporary files held by the handle.
func (h *Handle) Close() error {
	if h.cleanup == nil {
		return nil
	}
	return h.cleanup()
}

// Hash returns the hex sha256 of the local file.
func (h *Handle) Hash() (string, error) {
	return FileHash(h.Path)
}

// Resolver turns a stored reference into a Handle. Failures wrap
// models.ErrAccessDenied.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*Handle, error)
}

// Router dispatches to a Resolver by URL scheme. References without a
// scheme are treated as "file".
type Router map[string]Resolver

func (r Router) Resolve(ctx context.Context, ref string) (*Handle, error) {
	scheme := "file"
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		scheme = u.Scheme
	}
	res, ok := r[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: no resolver for scheme %q", models.ErrAccessDenied, scheme)
	}
	return res.Resolve(ctx, ref)
}

// FileResolver resolves file:// URLs and plain paths.
type FileResolver struct{}

func (FileResolver) Resolve(ctx context.Context, ref string) (*Handle, error) {
	path := ref
	if strings.HasPrefix(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", models.ErrAccessDenied, ref, err)
		}
		path = u.Path
	}
	path = filepath.Clean(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrAccessDenied, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrAccessDenied, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", models.ErrAccessDenied, path)
	}
	return &Handle{Ref: FileRef(path), Path: path, Name: filepath.Base(path), Size: info.Size()}, nil
}

// FileRef returns the canonical reference for a local path.
func FileRef(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// FileHash returns the hex sha256 of the file at path.
func FileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// WriteThenSwap lets write produce a new version of path in a temporary
// sibling file and renames it over path only when write succeeds. On any
// failure path is left untouched and the temporary file is removed.
// Errors returned by write are passed through; rename failures wrap
// models.ErrWriteFailure.
func WriteThenSwap(path string, write func(tmp string) error) (err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", models.ErrWriteFailure, err)
	}
	tmp := f.Name()
	_ = f.Close()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := syncFile(tmp); err != nil {
		return fmt.Errorf("%w: sync %s: %v", models.ErrWriteFailure, tmp, err)
	}
	perm := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		perm = info.Mode().Perm()
	}
	_ = os.Chmod(tmp, perm)
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", models.ErrWriteFailure, path, err)
	}
	return nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

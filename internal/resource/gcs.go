package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

// GCSResolver resolves gs://bucket/object references by downloading the
// object into a private temp directory. Commit uploads the local file back,
// guarded by the generation that was downloaded.
type GCSResolver struct {
	client *storage.Client
}

func NewGCSResolver(client *storage.Client) *GCSResolver {
	return &GCSResolver{client: client}
}

// GCSRef formats a gs:// reference.
func GCSRef(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// ParseGCSRef splits a gs:// reference into bucket and object.
func ParseGCSRef(ref string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(ref, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// reference: %q", ref)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("malformed gs:// reference: %q", ref)
	}
	return bucket, object, nil
}

func (r *GCSResolver) Resolve(ctx context.Context, ref string) (*Handle, error) {
	bucket, object, err := ParseGCSRef(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrAccessDenied, err)
	}

	tempDir, err := os.MkdirTemp("", "pdfmanager-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	localPath := filepath.Join(tempDir, path.Base(object))

	generation, size, err := r.download(ctx, bucket, object, localPath)
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, fmt.Errorf("%w: %v", models.ErrAccessDenied, err)
	}

	h := &Handle{
		Ref:     ref,
		Path:    localPath,
		Name:    path.Base(object),
		Size:    size,
		cleanup: func() error { return os.RemoveAll(tempDir) },
	}
	h.commit = func(ctx context.Context) error {
		gen, err := r.upload(ctx, bucket, object, localPath, generation)
		if err != nil {
			return err
		}
		generation = gen
		return nil
	}
	return h, nil
}

func (r *GCSResolver) download(ctx context.Context, bucket, object, destPath string) (int64, int64, error) {
	gcsReader, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()

	localFile, err := os.Create(destPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()

	n, err := io.Copy(localFile, gcsReader)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return gcsReader.Attrs.Generation, n, nil
}

// upload replaces the object only if it still has the generation we read.
func (r *GCSResolver) upload(ctx context.Context, bucket, object, localPath string, generation int64) (int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", models.ErrWriteFailure, localPath, err)
	}
	defer f.Close()

	obj := r.client.Bucket(bucket).Object(object)
	if generation != 0 {
		obj = obj.If(storage.Conditions{GenerationMatch: generation})
	}
	w := obj.NewWriter(ctx)
	w.ContentType = "application/pdf"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("%w: upload gs://%s/%s: %v", models.ErrWriteFailure, bucket, object, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			slog.Warn("Object changed since it was downloaded.", "gcsBucket", bucket, "gcsObject", object, "generation", generation)
			return 0, fmt.Errorf("%w: gs://%s/%s was modified concurrently", models.ErrWriteFailure, bucket, object)
		}
		return 0, fmt.Errorf("%w: finalize gs://%s/%s: %v", models.ErrWriteFailure, bucket, object, err)
	}
	return w.Attrs().Generation, nil
}

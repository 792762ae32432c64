package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt reads an integer environment variable, returning fallback when it
// is unset or not a positive number.
func GetEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// GetEnvDuration reads a time.Duration environment variable such as "5m".
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, content io.Reader) error {
	err := writeObject(ctx, bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}), contentType, content)
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 412 {
		slog.Info("Object already exists, skipping.", "gcsObject", objectName)
		return nil // Not a failure in an idempotent workflow.
	}
	return err
}

func writeObject(ctx context.Context, obj *storage.ObjectHandle, contentType string, content io.Reader) error {
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, content); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// UploadFile copies a local file to bucket/objectName, replacing any
// existing object, retrying with exponential backoff.
func UploadFile(ctx context.Context, bucket *storage.BucketHandle, localPath, objectName, contentType string) error {
	return uploadWithRetry(ctx, localPath, objectName, func(ctx context.Context, content io.Reader) error {
		return writeObject(ctx, bucket.Object(objectName), contentType, content)
	})
}

// UploadFileOnce is UploadFile for objects that must never be replaced: an
// existing object is left in place and the upload counts as done.
func UploadFileOnce(ctx context.Context, bucket *storage.BucketHandle, localPath, objectName, contentType string) error {
	return uploadWithRetry(ctx, localPath, objectName, func(ctx context.Context, content io.Reader) error {
		return SaveToGCSAtomically(ctx, bucket, objectName, contentType, content)
	})
}

func uploadWithRetry(ctx context.Context, localPath, objectName string, write func(context.Context, io.Reader) error) error {
	const maxRetries = 4
	backoff := 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			f, err := os.Open(localPath)
			if err != nil {
				return fmt.Errorf("could not open local file %s: %w", localPath, err)
			}
			defer f.Close()

			writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
			defer cancel()
			return write(writeCtx, f)
		}()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn("Upload failed, will retry.",
			"gcsObject", objectName,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload for %s failed after all retries: %w", objectName, lastErr)
}

// ListObjects returns the names of objects under prefix whose name ends with
// suffix (case-sensitive; empty matches everything).
func ListObjects(ctx context.Context, bucket *storage.BucketHandle, prefix, suffix string) ([]string, error) {
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if strings.HasSuffix(attrs.Name, suffix) {
			names = append(names, attrs.Name)
		}
	}
	return names, nil
}

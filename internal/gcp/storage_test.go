package gcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Lllllllleong/pdfmanager/internal/testgcs"
)

func writeLocal(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "page_1.jpg")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestUploadFileReplacesExistingObject(t *testing.T) {
	srv, client := testgcs.Start(t)
	bucket := client.Bucket("exports")
	ctx := context.Background()

	if err := UploadFile(ctx, bucket, writeLocal(t, "first"), "docs/page_1.jpg", "image/jpeg"); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if err := UploadFile(ctx, bucket, writeLocal(t, "second"), "docs/page_1.jpg", "image/jpeg"); err != nil {
		t.Fatalf("second upload: %v", err)
	}

	obj, ok := srv.Object("exports", "docs/page_1.jpg")
	if !ok {
		t.Fatal("object not stored")
	}
	if string(obj.Data) != "second" {
		t.Errorf("object holds %q, want the second upload", obj.Data)
	}
	if obj.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q", obj.ContentType)
	}
}

func TestUploadFileOnceKeepsExistingObject(t *testing.T) {
	srv, client := testgcs.Start(t)
	srv.Put("out", "merged.pdf", []byte("original"))

	err := UploadFileOnce(context.Background(), client.Bucket("out"), writeLocal(t, "replacement"), "merged.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("UploadFileOnce: %v", err)
	}
	if obj, _ := srv.Object("out", "merged.pdf"); string(obj.Data) != "original" {
		t.Errorf("object holds %q, want it untouched", obj.Data)
	}

	if err := UploadFileOnce(context.Background(), client.Bucket("out"), writeLocal(t, "new"), "fresh.pdf", "application/pdf"); err != nil {
		t.Fatalf("UploadFileOnce new object: %v", err)
	}
	if obj, ok := srv.Object("out", "fresh.pdf"); !ok || string(obj.Data) != "new" {
		t.Errorf("fresh.pdf = %q, %v", obj.Data, ok)
	}
}

func TestUploadFileMissingLocalFile(t *testing.T) {
	_, client := testgcs.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := UploadFile(ctx, client.Bucket("b"), filepath.Join(t.TempDir(), "missing.jpg"), "x.jpg", "image/jpeg")
	if err == nil || !strings.Contains(err.Error(), "canceled") {
		t.Fatalf("err = %v, want the retry loop to stop on cancel", err)
	}
}

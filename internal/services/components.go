package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/pdfmanager/internal/gcp"
	"github.com/Lllllllleong/pdfmanager/internal/ingest"
	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/ocr"
	"github.com/Lllllllleong/pdfmanager/internal/raster"
	"github.com/Lllllllleong/pdfmanager/internal/recovery"
	"github.com/Lllllllleong/pdfmanager/internal/resource"
	"github.com/Lllllllleong/pdfmanager/internal/store"
	"github.com/Lllllllleong/pdfmanager/internal/textlayer"
)

// CoreConfig holds the settings shared by every function.
type CoreConfig struct {
	ProjectID      string
	CollectionName string
	OCREngine      string
	OCRLanguages   []string
	VertexAIRegion string
	Concurrency    int
}

// loadCoreConfig loads and validates the shared environment variables.
func loadCoreConfig() (*CoreConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	engine := gcp.GetEnv("OCR_ENGINE", "tesseract")
	if engine != "tesseract" && engine != "vertex" && engine != "none" {
		return nil, fmt.Errorf("OCR_ENGINE must be one of tesseract, vertex or none, got %q", engine)
	}
	return &CoreConfig{
		ProjectID:      projectID,
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		OCREngine:      engine,
		OCRLanguages:   splitList(gcp.GetEnv("OCR_LANGUAGES", "")),
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		Concurrency:    gcp.GetEnvInt("INGEST_CONCURRENCY", ingest.DefaultConcurrency),
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// core bundles the clients and collaborators built from CoreConfig.
type core struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	store           store.Store
	resolver        resource.Resolver
}

func newCore(ctx context.Context, cfg *CoreConfig) (*core, error) {
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &core{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		store:           store.NewFirestore(firestoreClient, cfg.CollectionName),
		resolver:        deployedResolver(storageClient),
	}, nil
}

// deployedResolver accepts gs:// references only. Local paths, including
// file:// URLs, are refused so callers cannot reach the function's own
// filesystem.
func deployedResolver(storageClient *storage.Client) resource.Router {
	return resource.Router{"gs": resource.NewGCSResolver(storageClient)}
}

// gcsUploader overwrites gs://bucket/object with a local file.
func gcsUploader(storageClient *storage.Client) fileUploader {
	return func(ctx context.Context, bucket, object, localPath, contentType string) error {
		return gcp.UploadFile(ctx, storageClient.Bucket(bucket), localPath, object, contentType)
	}
}

// gcsCreator uploads a local file unless gs://bucket/object already exists.
func gcsCreator(storageClient *storage.Client) fileUploader {
	return func(ctx context.Context, bucket, object, localPath, contentType string) error {
		return gcp.UploadFileOnce(ctx, storageClient.Bucket(bucket), localPath, object, contentType)
	}
}

// newRecoveryPipeline builds the text recovery pipeline with the configured
// recognizer.
func newRecoveryPipeline(ctx context.Context, cfg *CoreConfig) (*recovery.Pipeline, error) {
	var recognizer ocr.Recognizer
	switch cfg.OCREngine {
	case "tesseract":
		recognizer = ocr.NewTesseract()
	case "vertex":
		vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
		recognizer = ocr.NewVertex(vertexClient.RecognitionModel)
	}
	return recovery.New(textlayer.NewPDFReader(), raster.NewMuPDF(), recognizer, slog.Default()), nil
}

// HTTPStatus maps a processing error onto the response code returned to callers.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, models.ErrInvalidStep):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, models.ErrAccessDenied):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// ErrBadRequest marks a request that is missing required fields.
var ErrBadRequest = errors.New("bad request")

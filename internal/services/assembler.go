package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/resource"
	"github.com/Lllllllleong/pdfmanager/internal/workflow"
)

// ImageAssemblerFunction builds a PDF from a list of images, one page each.
type ImageAssemblerFunction struct {
	resolver resource.Resolver
	save     fileUploader
}

// NewImageAssembler creates a new ImageAssemblerFunction instance.
func NewImageAssembler(ctx context.Context) (*ImageAssemblerFunction, error) {
	config, err := loadCoreConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	c, err := newCore(ctx, config)
	if err != nil {
		return nil, err
	}
	return &ImageAssemblerFunction{
		resolver: c.resolver,
		save:     gcsCreator(c.storageClient),
	}, nil
}

// Process assembles req.ImageRefs in order and saves the PDF at req.OutputRef.
// An existing object at OutputRef is never replaced.
func (f *ImageAssemblerFunction) Process(ctx context.Context, req *models.ImagesToPDFRequest) (*models.ImagesToPDFResponse, error) {
	logCtx := slog.With("outputRef", req.OutputRef, "imageCount", len(req.ImageRefs))
	if len(req.ImageRefs) == 0 {
		return nil, fmt.Errorf("%w: imageRefs is required", ErrBadRequest)
	}
	bucket, object, err := resource.ParseGCSRef(req.OutputRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if !strings.EqualFold(filepath.Ext(object), ".pdf") {
		return nil, fmt.Errorf("%w: outputRef must name a .pdf object", ErrBadRequest)
	}
	logCtx.Info("Assembling images into PDF.")

	images := make([]string, 0, len(req.ImageRefs))
	for _, ref := range req.ImageRefs {
		h, err := f.resolver.Resolve(ctx, ref)
		if err != nil {
			logCtx.Warn("Could not resolve image", "imageRef", ref, "error", err)
			return nil, err
		}
		defer h.Close()
		images = append(images, h.Path)
	}

	tmpDir, err := os.MkdirTemp("", "assemble-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	local := filepath.Join(tmpDir, filepath.Base(object))

	if err := workflow.ImagesToPDF(ctx, images, local); err != nil {
		logCtx.Error("Failed to assemble PDF", "error", err)
		return nil, err
	}
	if err := f.save(ctx, bucket, object, local, "application/pdf"); err != nil {
		logCtx.Error("Failed to save assembled PDF", "error", err)
		return nil, err
	}

	logCtx.Info("Assembled PDF saved.")
	return &models.ImagesToPDFResponse{Status: "success", OutputRef: req.OutputRef, PageCount: len(images)}, nil
}

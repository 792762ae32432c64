package workflow

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/resource"
)

// ImagesToPDF writes a new PDF at out with one page per image, in order,
// each page sized to its image. Every image is checked before anything is
// written; out is replaced only when the whole document was produced.
func ImagesToPDF(ctx context.Context, images []string, out string) error {
	if len(images) == 0 {
		return fmt.Errorf("%w: no images given", models.ErrInvalidStep)
	}
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := checkImage(img); err != nil {
			return err
		}
	}

	return resource.WriteThenSwap(out, func(tmp string) error {
		// The importer appends to an existing file, so start from none.
		if err := os.Remove(tmp); err != nil {
			return fmt.Errorf("%w: %v", models.ErrWriteFailure, err)
		}
		if err := api.ImportImagesFile(images, tmp, pdfcpu.DefaultImportConfig(), newConfiguration()); err != nil {
			return fmt.Errorf("%w: import images: %v", models.ErrWriteFailure, err)
		}
		return nil
	})
}

// checkImage fails with ErrAccessDenied unless path is a decodable JPEG,
// PNG, TIFF or WebP image.
func checkImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrAccessDenied, err)
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("%w: %s is not a supported image: %v", models.ErrAccessDenied, path, err)
	}
	return nil
}

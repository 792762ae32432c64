package workflow

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/raster"
	"github.com/Lllllllleong/pdfmanager/internal/resource"
)

// aesKeyLength selects AES-256 for encryption.
const aesKeyLength = 256

// jpegQuality is used for exported page images.
const jpegQuality = 90

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// rewrite runs a pdfcpu in/out operation through WriteThenSwap so path is
// replaced only if op succeeds.
func rewrite(path string, op func(in, out string) error) error {
	return resource.WriteThenSwap(path, func(tmp string) error {
		if err := op(path, tmp); err != nil {
			if models.FailureKindOf(err) != models.FailureInternal {
				return err
			}
			return fmt.Errorf("%w: %v", models.ErrWriteFailure, err)
		}
		return nil
	})
}

func compress(ctx context.Context, path string, step models.Step) (StepResult, error) {
	err := rewrite(path, func(in, out string) error {
		return api.OptimizeFile(in, out, newConfiguration())
	})
	return StepResult{}, err
}

func textWatermark(ctx context.Context, path string, step models.Step) (StepResult, error) {
	err := rewrite(path, func(in, out string) error {
		return annotateFile(in, out, func(page int, box Rect) (freeText, bool) {
			return watermarkAnnotation(step, box), true
		})
	})
	return StepResult{}, err
}

func addPageNumbers(ctx context.Context, path string, step models.Step) (StepResult, error) {
	err := rewrite(path, func(in, out string) error {
		return annotateFile(in, out, func(page int, box Rect) (freeText, bool) {
			return pageNumberAnnotation(step, page, box)
		})
	})
	return StepResult{}, err
}

func encrypt(ctx context.Context, path string, step models.Step) (StepResult, error) {
	user, owner := deref(step.UserPassword), deref(step.OwnerPassword)
	if owner == "" {
		owner = user
	}
	err := rewrite(path, func(in, out string) error {
		conf := model.NewAESConfiguration(user, owner, aesKeyLength)
		conf.ValidationMode = model.ValidationRelaxed
		return api.EncryptFile(in, out, conf)
	})
	return StepResult{}, err
}

// decrypt removes encryption. An input that is not encrypted is rewritten
// unchanged and reported as success.
func decrypt(ctx context.Context, path string, step models.Step) (StepResult, error) {
	var detail string
	err := rewrite(path, func(in, out string) error {
		conf := newConfiguration()
		conf.UserPW = deref(step.Password)
		conf.OwnerPW = deref(step.Password)
		decErr := api.DecryptFile(in, out, conf)
		if decErr == nil {
			return nil
		}
		pctx, readErr := api.ReadContextFile(in)
		if readErr != nil || pctx.Encrypt != nil {
			return fmt.Errorf("%w: %v", models.ErrAccessDenied, decErr)
		}
		detail = "document was not encrypted"
		return api.WriteContextFile(pctx, out)
	})
	return StepResult{Detail: detail}, err
}

func rotate(ctx context.Context, path string, step models.Step) (StepResult, error) {
	degrees := normalizeRotation(step.Degrees)
	if degrees == 0 {
		return StepResult{Detail: "rotation is a multiple of 360, nothing to do"}, nil
	}
	err := rewrite(path, func(in, out string) error {
		return api.RotateFile(in, out, degrees, nil, newConfiguration())
	})
	return StepResult{}, err
}

// normalizeRotation maps any multiple of 90 onto 0, 90, 180 or 270.
func normalizeRotation(degrees int) int {
	return ((degrees % 360) + 360) % 360
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ExportDir is the directory that receives the page images of path.
func ExportDir(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(filepath.Dir(path), base+" Images")
}

// exportImages renders every page at 72*scale DPI to ExportDir(path).
// Pages that fail to render are skipped; the step fails only when the
// document cannot be opened or the directory cannot be created.
func exportImages(rasterizer raster.Rasterizer, logger *slog.Logger) Operation {
	return func(ctx context.Context, path string, step models.Step) (StepResult, error) {
		doc, err := rasterizer.Open(path)
		if err != nil {
			return StepResult{}, err
		}
		defer doc.Close()

		dir := ExportDir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return StepResult{}, fmt.Errorf("%w: %v", models.ErrWriteFailure, err)
		}

		var outputs []string
		skipped := 0
		for page := 1; page <= doc.NumPage(); page++ {
			if ctx.Err() != nil {
				return StepResult{Outputs: outputs}, ctx.Err()
			}
			img, err := doc.Render(ctx, page, raster.BaseDPI*step.Scale)
			if err != nil {
				logger.Warn("Skipping page that failed to render.", "page", page, "error", err)
				skipped++
				continue
			}
			out := filepath.Join(dir, fmt.Sprintf("page_%d.jpg", page))
			if err := writeJPEG(out, img); err != nil {
				logger.Warn("Skipping page that failed to encode.", "page", page, "error", err)
				skipped++
				continue
			}
			outputs = append(outputs, out)
		}
		return StepResult{
			Detail:  fmt.Sprintf("exported %d pages to %s, skipped %d", len(outputs), dir, skipped),
			Outputs: outputs,
		}, nil
	}
}

func writeJPEG(path string, img image.Image) error {
	return resource.WriteThenSwap(path, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/draw"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

// minShortSide is the smallest page edge, in pixels, handed to Tesseract.
// Pages rendered at 72 DPI are upscaled until they reach it.
const minShortSide = 1600

// Tesseract implements Recognizer with the gosseract client.
type Tesseract struct {
	clientFactory func() *gosseract.Client
}

func NewTesseract() *Tesseract {
	return &Tesseract{clientFactory: gosseract.NewClient}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Recognize runs Tesseract over img with the given BCP-47 languages.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, languages []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := encodePNG(upscale(img, minShortSide))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrRecognitionUnavailable, err)
	}

	c := t.clientFactory()
	defer c.Close()

	if codes := TesseractCodes(languages); len(codes) > 0 {
		if err := c.SetLanguage(codes...); err != nil {
			return "", fmt.Errorf("%w: set languages: %v", models.ErrRecognitionUnavailable, err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("%w: set image: %v", models.ErrRecognitionUnavailable, err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrRecognitionUnavailable, err)
	}
	return strings.TrimSpace(text), nil
}

// upscale enlarges img so its shorter side is at least minSide pixels.
func upscale(img image.Image, minSide int) image.Image {
	b := img.Bounds()
	short := min(b.Dx(), b.Dy())
	if short <= 0 || short >= minSide {
		return img
	}
	factor := float64(minSide) / float64(short)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(b.Dx())*factor), int(float64(b.Dy())*factor)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

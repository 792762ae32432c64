package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os/exec"
	"reflect"
	"testing"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

func TestDetectedCodes(t *testing.T) {
	got := DetectedCodes([]string{"en-US", "zh-Hant", "zh-Hans", "en-GB", "not a tag!"})
	want := []string{"en", "zh-Hant", "zh-Hans"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DetectedCodes() = %v, want %v", got, want)
	}
}

func TestTesseractCodes(t *testing.T) {
	got := TesseractCodes([]string{"en-US", "zh-Hant", "zh-Hans", "zh-TW", "de"})
	want := []string{"eng", "chi_tra", "chi_sim", "deu"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TesseractCodes() = %v, want %v", got, want)
	}
}

func TestLanguagesOrDefault(t *testing.T) {
	if got := LanguagesOrDefault(nil); !reflect.DeepEqual(got, DefaultLanguages) {
		t.Fatalf("LanguagesOrDefault(nil) = %v", got)
	}
	if got := LanguagesOrDefault([]string{"fr"}); !reflect.DeepEqual(got, []string{"fr"}) {
		t.Fatalf("LanguagesOrDefault([fr]) = %v", got)
	}
}

func TestUpscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 612, 792))
	out := upscale(img, 1600)
	if b := out.Bounds(); b.Dx() < 1600 || b.Dy() <= b.Dx() {
		t.Fatalf("unexpected upscaled bounds %v", b)
	}
	big := image.NewRGBA(image.Rect(0, 0, 2000, 3000))
	if upscale(big, 1600) != image.Image(big) {
		t.Fatalf("large image should be returned unchanged")
	}
}

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f fakeGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return f.resp, f.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(s)}},
	}}}
}

func TestVertexRecognize(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))

	tests := []struct {
		name    string
		gen     fakeGenerator
		want    string
		wantErr bool
	}{
		{name: "plain", gen: fakeGenerator{resp: textResponse("Invoice 2024")}, want: "Invoice 2024"},
		{name: "fenced", gen: fakeGenerator{resp: textResponse("```text\nHello\n```")}, want: "Hello"},
		{name: "empty", gen: fakeGenerator{resp: &genai.GenerateContentResponse{}}, want: ""},
		{name: "refusal", gen: fakeGenerator{resp: textResponse("I am unable to help")}, wantErr: true},
		{name: "api error", gen: fakeGenerator{err: errors.New("quota")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVertex(tt.gen).Recognize(context.Background(), img, nil)
			if tt.wantErr {
				if !errors.Is(err, models.ErrRecognitionUnavailable) {
					t.Fatalf("got %v, want ErrRecognitionUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Recognize() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("Recognize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTesseractBlankPage(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract binary not installed")
	}
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	got, err := NewTesseract().Recognize(context.Background(), img, []string{"en-US"})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if got != "" {
		t.Fatalf("blank page recognized as %q", got)
	}
}

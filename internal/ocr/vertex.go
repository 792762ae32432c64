package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

// Generator is the subset of *genai.GenerativeModel used for recognition.
type Generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// refusalPhrases mark a model answer that is not a transcription.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot provide",
	"as a large language model",
}

// Vertex implements Recognizer with a Gemini model on Vertex AI.
type Vertex struct {
	model Generator
}

func NewVertex(model Generator) *Vertex {
	return &Vertex{model: model}
}

func (v *Vertex) Name() string { return "vertex" }

// Recognize sends the page image to the model and returns its transcription.
func (v *Vertex) Recognize(ctx context.Context, img image.Image, languages []string) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrRecognitionUnavailable, err)
	}
	prompt := fmt.Sprintf("Transcribe all text on this page. Expected languages: %s.", strings.Join(LanguagesOrDefault(languages), ", "))

	resp, err := v.model.GenerateContent(ctx, genai.ImageData("png", data), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %v", models.ErrRecognitionUnavailable, err)
	}

	text := responseText(resp)
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return "", fmt.Errorf("%w: model refused to transcribe", models.ErrRecognitionUnavailable)
		}
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate and strips
// any code fence the model wrapped around them.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	s := strings.TrimSpace(sb.String())
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

const RecognitionSystemPrompt = "You are an OCR engine. Transcribe the text visible in the page image exactly as written, preserving line breaks and reading order. Do not translate, summarize or describe images."

// VertexClient holds the pre-configured generative models used by the app.
type VertexClient struct {
	RecognitionModel *genai.GenerativeModel
	baseClient       *genai.Client
}

// NewVertexClient creates a client for Gemini on Vertex AI.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	recognitionModel := baseClient.GenerativeModel("gemini-1.5-pro")
	recognitionModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(RecognitionSystemPrompt)},
	}
	recognitionModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "text/plain",
		Temperature:      genai.Ptr[float32](0.0), // Transcription should be deterministic.
	}

	return &VertexClient{
		RecognitionModel: recognitionModel,
		baseClient:       baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

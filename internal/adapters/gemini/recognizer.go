package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/link-joiner/internal/utils"
)

const transcribePrompt = `Transcribe every piece of text visible in this image exactly as written.
Keep the original line breaks, letter case and digits. Do not translate or explain.
If there is no text, reply with an empty message.`

// Recognizer is a TextRecognizer using Google Gemini
type Recognizer struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewRecognizer creates a new Gemini recognizer
func NewRecognizer(
	apiKey string,
	modelName string,
	maxTokens int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Recognizer, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	return &Recognizer{
		client:        client,
		model:         model,
		modelName:     modelName,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Close closes the Gemini client
func (r *Recognizer) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Recognize sends the PNG image inline with the transcription prompt
func (r *Recognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	resp, err := r.model.GenerateContent(ctx, genai.ImageData("png", image), genai.Text(transcribePrompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}

	return r.collect(resp.Candidates[0].Content.Parts), nil
}

func (r *Recognizer) collect(parts []genai.Part) string {
	var sb strings.Builder
	for _, part := range parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	text := r.textProcessor.CleanModelOutput(sb.String())
	r.logger.Debug("Gemini transcription received",
		zap.String("model", r.modelName),
		zap.Int("length", len(text)))
	return text
}

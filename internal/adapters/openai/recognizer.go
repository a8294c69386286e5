package openai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/utils"
)

const transcribePrompt = `Transcribe every piece of text visible in this image exactly as written.
Keep the original line breaks, letter case and digits. Do not translate or explain.
If there is no text, reply with an empty message.`

// Recognizer is a TextRecognizer using an OpenAI vision model
type Recognizer struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewRecognizer creates a new OpenAI recognizer
func NewRecognizer(
	client *openai.Client,
	modelName string,
	maxTokens int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Recognizer {
	return &Recognizer{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Recognize sends the PNG image as a data URL and returns the transcription
func (r *Recognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)

	req := openai.ChatCompletionRequest{
		Model: r.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: transcribePrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		MaxTokens:   r.maxTokens,
		Temperature: 0,
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	text := r.textProcessor.CleanModelOutput(resp.Choices[0].Message.Content)
	r.logger.Debug("OpenAI transcription received",
		zap.String("model", r.modelName),
		zap.String("request_id", resp.ID),
		zap.Int("length", len(text)))
	return text, nil
}

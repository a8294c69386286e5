package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/utils"
)

const transcribePrompt = `Transcribe every piece of text visible in this image exactly as written.
Keep the original line breaks, letter case and digits. Do not translate or explain.
If there is no text, reply with an empty message.`

// ConverseAPI is the part of the Bedrock runtime client the recognizer uses
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Recognizer is a TextRecognizer using a multimodal model on Amazon Bedrock
type Recognizer struct {
	client        ConverseAPI
	modelID       string
	maxTokens     int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewRecognizer creates a new Bedrock recognizer
func NewRecognizer(
	client ConverseAPI,
	modelID string,
	maxTokens int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Recognizer {
	return &Recognizer{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Recognize sends the PNG image through the Converse API
func (r *Recognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(r.modelID),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberImage{
						Value: types.ImageBlock{
							Format: types.ImageFormatPng,
							Source: &types.ImageSourceMemberBytes{Value: image},
						},
					},
					&types.ContentBlockMemberText{Value: transcribePrompt},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(0),
		},
	}
	if r.maxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(r.maxTokens))
	}

	resp, err := r.client.Converse(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("unexpected Bedrock output type %T", resp.Output)
	}

	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(t.Value)
		}
	}

	text := r.textProcessor.CleanModelOutput(sb.String())
	r.logger.Debug("Bedrock transcription received",
		zap.String("model", r.modelID),
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int("length", len(text)))
	return text, nil
}

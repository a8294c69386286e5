package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/link-joiner/internal/utils"
)

func TestRecognizeSendsImageAsDataURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Messages, 1) && assert.Len(t, req.Messages[0].MultiContent, 2) {
			img := req.Messages[0].MultiContent[1]
			assert.Equal(t, openai.ChatMessagePartTypeImageURL, img.Type)
			assert.True(t, strings.HasPrefix(img.ImageURL.URL, "data:image/png;base64,"))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"` + "```\\n비번 Qw12\\n```" + `"}}]}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	logger := zaptest.NewLogger(t)
	r := NewRecognizer(openai.NewClientWithConfig(cfg), "gpt-4o", 256, logger, utils.NewTextProcessor(logger))

	text, err := r.Recognize(context.Background(), []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Equal(t, "비번 Qw12", text)
}

func TestRecognizeEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	logger := zaptest.NewLogger(t)
	r := NewRecognizer(openai.NewClientWithConfig(cfg), "gpt-4o", 0, logger, utils.NewTextProcessor(logger))

	_, err := r.Recognize(context.Background(), []byte("png"))
	assert.Error(t, err)
}

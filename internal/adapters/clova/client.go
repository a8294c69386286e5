// Package clova is a TextRecognizer backed by the NAVER CLOVA OCR general API.
package clova

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mikey/link-joiner/internal/config"
)

// ErrNotConfigured is returned when the endpoint or secret is missing
var ErrNotConfigured = errors.New("clova ocr endpoint or secret not configured")

// StatusError is a non-200 answer from the OCR endpoint
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("clova ocr status %d: %s", e.Code, e.Body)
}

// Recorder receives the outcome of every OCR request
type Recorder interface {
	OCRRequest(provider, status string)
}

type nopRecorder struct{}

func (nopRecorder) OCRRequest(string, string) {}

type ocrImage struct {
	Format string `json:"format"`
	Name   string `json:"name"`
	Data   string `json:"data"`
}

type ocrRequest struct {
	Version   string     `json:"version"`
	RequestID string     `json:"requestId"`
	Timestamp int64      `json:"timestamp"`
	Images    []ocrImage `json:"images"`
}

type ocrResponse struct {
	Images []struct {
		InferResult string `json:"inferResult"`
		Message     string `json:"message"`
		Fields      []struct {
			InferText string `json:"inferText"`
		} `json:"fields"`
	} `json:"images"`
}

// Client calls the OCR endpoint with retries, a circuit breaker and a rate limit
type Client struct {
	endpoint string
	secret   string
	http     *retryablehttp.Client
	cb       *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	recorder Recorder
	logger   *zap.Logger
}

// NewClient creates a new CLOVA OCR client
func NewClient(cfg config.OCRConfig, recorder Recorder, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" || cfg.Secret == "" {
		return nil, ErrNotConfigured
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = time.Second
	rc.RetryWaitMax = 8 * time.Second
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{logger.Sugar()}
	rc.HTTPClient.Transport = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
		MaxIdleConnsPerHost:   2,
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	settings := gobreaker.Settings{
		Name:        "clova-ocr",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		IsSuccessful: func(err error) bool {
			// client errors say nothing about the health of the service
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500 && se.Code != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("OCR circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		endpoint: cfg.Endpoint,
		secret:   cfg.Secret,
		http:     rc,
		cb:       gobreaker.NewCircuitBreaker(settings),
		limiter:  rate.NewLimiter(limit, 1),
		recorder: recorder,
		logger:   logger,
	}, nil
}

// Recognize sends a PNG image and returns the recognized fields joined by spaces
func (c *Client) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("ocr rate limit: %w", err)
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.recognize(ctx, image)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			c.recorder.OCRRequest("clova", "rejected")
		default:
			c.recorder.OCRRequest("clova", "error")
		}
		return "", err
	}

	text, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("unexpected circuit breaker response type")
	}
	c.recorder.OCRRequest("clova", "ok")
	return text, nil
}

func (c *Client) recognize(ctx context.Context, image []byte) (string, error) {
	sum := md5.Sum(image)
	body, err := json.Marshal(ocrRequest{
		Version:   "V2",
		RequestID: "ocr-request-" + hex.EncodeToString(sum[:]),
		Timestamp: time.Now().UnixMilli(),
		Images: []ocrImage{{
			Format: "png",
			Name:   "image",
			Data:   base64.StdEncoding.EncodeToString(image),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal ocr request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-OCR-SECRET", c.secret)

	c.logger.Debug("Sending OCR request", zap.Int("image_bytes", len(image)))
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Code: resp.StatusCode, Body: string(msg)}
	}

	var out ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}

	var texts []string
	for _, img := range out.Images {
		if img.InferResult != "" && img.InferResult != "SUCCESS" {
			c.logger.Warn("OCR image not recognized",
				zap.String("result", img.InferResult),
				zap.String("message", img.Message))
		}
		for _, f := range img.Fields {
			if f.InferText != "" {
				texts = append(texts, f.InferText)
			}
		}
	}
	return strings.Join(texts, " "), nil
}

// checkRetry retries transport errors and the statuses that signal a
// temporary condition
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// leveledLogger routes retryablehttp logs through zap
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }

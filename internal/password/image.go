package password

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/core"
)

// ImageOptions controls image preprocessing and debug output
type ImageOptions struct {
	MaxDimension int
	Debug        bool
	DebugDir     string
}

// ImageExtractor recognizes the text of an image and extracts a password from it
type ImageExtractor struct {
	text       core.PasswordExtractor
	recognizer core.TextRecognizer
	opts       ImageOptions
	logger     *zap.Logger
}

// NewImageExtractor creates a new ImageExtractor
func NewImageExtractor(text core.PasswordExtractor, recognizer core.TextRecognizer, opts ImageOptions, logger *zap.Logger) *ImageExtractor {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = 1600
	}
	return &ImageExtractor{
		text:       text,
		recognizer: recognizer,
		opts:       opts,
		logger:     logger,
	}
}

// ExtractFromImage resizes the image, runs OCR on it and extracts a password
// from the recognized text. Every failure is logged and reported as not found.
func (x *ImageExtractor) ExtractFromImage(ctx context.Context, path string) (string, bool) {
	logger := x.logger.With(zap.String("image", path))

	encoded, err := x.prepare(path)
	if err != nil {
		logger.Error("Failed to prepare image for OCR", zap.Error(err))
		return "", false
	}

	text, err := x.recognizer.Recognize(ctx, encoded)
	if err != nil {
		logger.Error("OCR request failed", zap.Error(err))
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		logger.Warn("OCR returned no text")
		return "", false
	}
	logger.Info("OCR text recognized", zap.Int("length", len(text)))

	if x.opts.Debug {
		x.writeDebug(path, "_extracted_text.txt", func(p string) error {
			return os.WriteFile(p, []byte(text), 0644)
		})
	}

	pw, ok := x.text.ExtractFromText(text)
	if !ok {
		logger.Warn("No password in OCR text")
	}
	return pw, ok
}

// prepare decodes the image, fits it into MaxDimension and encodes it as PNG
func (x *ImageExtractor) prepare(path string) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	b := img.Bounds()
	if max(b.Dx(), b.Dy()) > x.opts.MaxDimension {
		img = imaging.Fit(img, x.opts.MaxDimension, x.opts.MaxDimension, imaging.Lanczos)
		x.logger.Debug("Image resized",
			zap.Int("from_width", b.Dx()),
			zap.Int("from_height", b.Dy()),
			zap.Int("to_width", img.Bounds().Dx()),
			zap.Int("to_height", img.Bounds().Dy()))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	if x.opts.Debug {
		x.writeDebug(path, "_resized.png", func(p string) error {
			return os.WriteFile(p, buf.Bytes(), 0644)
		})
	}
	return buf.Bytes(), nil
}

func (x *ImageExtractor) writeDebug(source, suffix string, write func(string) error) {
	if err := os.MkdirAll(x.opts.DebugDir, 0755); err != nil {
		x.logger.Warn("Failed to create debug directory", zap.Error(err))
		return
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	target := filepath.Join(x.opts.DebugDir, base+suffix)
	if err := write(target); err != nil {
		x.logger.Warn("Failed to write debug file", zap.String("path", target), zap.Error(err))
	}
}

// CleanupDebugFiles removes debug artifacts older than maxAge
func (x *ImageExtractor) CleanupDebugFiles(maxAge time.Duration) int {
	n, err := CleanupDebugFiles(x.opts.DebugDir, maxAge, time.Now())
	if err != nil {
		x.logger.Warn("Failed to clean debug files", zap.String("dir", x.opts.DebugDir), zap.Error(err))
	}
	if n > 0 {
		x.logger.Info("Removed old debug files", zap.Int("count", n))
	}
	return n
}

// CleanupDebugFiles deletes regular files in dir last modified before now-maxAge.
// A missing directory is not an error.
func CleanupDebugFiles(dir string, maxAge time.Duration, now time.Time) (int, error) {
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	var lastErr error
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				lastErr = err
				continue
			}
			removed++
		}
	}
	return removed, lastErr
}

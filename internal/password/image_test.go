package password

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubRecognizer struct {
	text  string
	err   error
	calls int
	last  []byte
}

func (s *stubRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	s.calls++
	s.last = image
	return s.text, s.err
}

func writeImage(t *testing.T, dir string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, "photo.jpg")
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestExtractFromImageResizesAndExtracts(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, 2000, 1000)
	rec := &stubRecognizer{text: "입장 안내\n비번: Zx9981"}

	x := NewImageExtractor(NewExtractor(nil), rec, ImageOptions{MaxDimension: 1600}, zaptest.NewLogger(t))
	pw, ok := x.ExtractFromImage(context.Background(), path)

	require.True(t, ok)
	assert.Equal(t, "Zx9981", pw)
	require.Equal(t, 1, rec.calls)

	sent, err := imaging.Decode(bytes.NewReader(rec.last))
	require.NoError(t, err)
	assert.Equal(t, 1600, sent.Bounds().Dx())
	assert.Equal(t, 800, sent.Bounds().Dy())
}

func TestExtractFromImageKeepsSmallImages(t *testing.T) {
	path := writeImage(t, t.TempDir(), 300, 200)
	rec := &stubRecognizer{text: "nothing here"}

	x := NewImageExtractor(NewExtractor(nil), rec, ImageOptions{MaxDimension: 1600}, zaptest.NewLogger(t))
	_, _ = x.ExtractFromImage(context.Background(), path)

	sent, err := imaging.Decode(bytes.NewReader(rec.last))
	require.NoError(t, err)
	assert.Equal(t, 300, sent.Bounds().Dx())
}

func TestExtractFromImageFailures(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		rec := &stubRecognizer{text: "pw: abcd1234"}
		x := NewImageExtractor(NewExtractor(nil), rec, ImageOptions{}, zaptest.NewLogger(t))
		_, ok := x.ExtractFromImage(context.Background(), filepath.Join(dir, "absent.png"))
		assert.False(t, ok)
		assert.Zero(t, rec.calls)
	})

	t.Run("recognizer error", func(t *testing.T) {
		rec := &stubRecognizer{err: errors.New("status 400")}
		x := NewImageExtractor(NewExtractor(nil), rec, ImageOptions{}, zaptest.NewLogger(t))
		_, ok := x.ExtractFromImage(context.Background(), writeImage(t, dir, 10, 10))
		assert.False(t, ok)
	})

	t.Run("blank text", func(t *testing.T) {
		rec := &stubRecognizer{text: "  "}
		x := NewImageExtractor(NewExtractor(nil), rec, ImageOptions{}, zaptest.NewLogger(t))
		_, ok := x.ExtractFromImage(context.Background(), writeImage(t, dir, 10, 10))
		assert.False(t, ok)
	})
}

func TestDebugArtifacts(t *testing.T) {
	dir := t.TempDir()
	debugDir := filepath.Join(dir, "debug")
	path := writeImage(t, dir, 40, 40)

	rec := &stubRecognizer{text: "code 7788"}
	x := NewImageExtractor(NewExtractor(nil), rec, ImageOptions{Debug: true, DebugDir: debugDir}, zaptest.NewLogger(t))
	_, ok := x.ExtractFromImage(context.Background(), path)
	require.True(t, ok)

	assert.FileExists(t, filepath.Join(debugDir, "photo_resized.png"))
	text, err := os.ReadFile(filepath.Join(debugDir, "photo_extracted_text.txt"))
	require.NoError(t, err)
	assert.Equal(t, "code 7788", string(text))
}

func TestCleanupDebugFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	old := filepath.Join(dir, "old.png")
	fresh := filepath.Join(dir, "fresh.png")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(old, now.Add(-8*24*time.Hour), now.Add(-8*24*time.Hour)))

	n, err := CleanupDebugFiles(dir, 7*24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)

	n, err = CleanupDebugFiles(filepath.Join(dir, "missing"), time.Hour, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

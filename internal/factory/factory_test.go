package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/link-joiner/internal/adapters/console"
	"github.com/mikey/link-joiner/internal/adapters/smtpnotify"
	"github.com/mikey/link-joiner/internal/adapters/store"
	"github.com/mikey/link-joiner/internal/config"
	"github.com/mikey/link-joiner/internal/utils"
)

func testConfig(values map[string]interface{}) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range values {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestCacheFactoryJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(map[string]interface{}{
		"cache.type":       "json",
		"cache.path":       filepath.Join(dir, "messages.json"),
		"cache.links.path": filepath.Join(dir, "links.json"),
		"cache.max_size":   2,
	})
	f := NewCacheFactory(cfg, zaptest.NewLogger(t))
	ctx := context.Background()

	messages, err := f.CreateMessageCache(ctx)
	require.NoError(t, err)
	links, err := f.CreateLinkCache(ctx)
	require.NoError(t, err)
	require.NotNil(t, links)

	assert.True(t, messages.Add("a"))
	assert.True(t, messages.Add("b"))
	assert.True(t, messages.Add("c"))
	assert.Equal(t, 2, messages.Len())

	_, err = f.CreateStore(ctx, MessagesCache)
	assert.ErrorIs(t, err, store.ErrLocked)

	require.NoError(t, messages.Flush(ctx))
	require.NoError(t, f.Close())

	reopened := NewCacheFactory(cfg, zaptest.NewLogger(t))
	defer reopened.Close()
	again, err := reopened.CreateMessageCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Len())
	assert.False(t, again.Add("c"))
}

func TestCacheFactorySQLite(t *testing.T) {
	cfg := testConfig(map[string]interface{}{
		"cache.type":        "sqlite",
		"cache.sqlite_path": filepath.Join(t.TempDir(), "nested", "cache.db"),
	})
	f := NewCacheFactory(cfg, zaptest.NewLogger(t))
	defer f.Close()

	s, err := f.CreateStore(context.Background(), LinksCache)
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteStore{}, s)
}

func TestCacheFactoryLinksDisabled(t *testing.T) {
	cfg := testConfig(map[string]interface{}{
		"cache.type":          "memory",
		"cache.links.enabled": false,
	})
	f := NewCacheFactory(cfg, zaptest.NewLogger(t))

	links, err := f.CreateLinkCache(context.Background())
	require.NoError(t, err)
	assert.Nil(t, links)
}

func TestCacheFactoryUnsupported(t *testing.T) {
	f := NewCacheFactory(testConfig(map[string]interface{}{"cache.type": "etcd"}), zaptest.NewLogger(t))
	_, err := f.CreateStore(context.Background(), MessagesCache)
	assert.ErrorContains(t, err, "unsupported cache type")
}

func TestOCRFactory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tp := utils.NewTextProcessor(logger)

	tests := []struct {
		name    string
		values  map[string]interface{}
		wantNil bool
		wantErr string
	}{
		{"disabled", map[string]interface{}{"ocr.provider": "none"}, true, ""},
		{"clova without endpoint", map[string]interface{}{"ocr.provider": "clova"}, true, ""},
		{"clova", map[string]interface{}{"ocr.provider": "clova", "ocr.endpoint": "http://localhost", "ocr.secret": "s"}, false, ""},
		{"openai without key", map[string]interface{}{"ocr.provider": "openai"}, true, "api_key"},
		{"unknown", map[string]interface{}{"ocr.provider": "tesseract"}, true, "unsupported OCR provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewOCRFactory(testConfig(tt.values), logger, tp, nil)
			defer f.Close()

			r, err := f.CreateRecognizer()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNil, r == nil)
			assert.Equal(t, tt.wantNil, f.CreateImageExtractor(nil, r) == nil)
		})
	}
}

func TestNotifierFactory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tp := utils.NewTextProcessor(logger)

	n, err := NewNotifierFactory(testConfig(map[string]interface{}{"notify.type": "console"}), logger, tp).CreateNotifier(nil)
	require.NoError(t, err)
	assert.IsType(t, &console.Notifier{}, n)

	n, err = NewNotifierFactory(testConfig(map[string]interface{}{
		"notify.type":  "smtp",
		"smtp.address": "localhost:25",
		"smtp.from":    "bot@example.com",
		"smtp.to":      []string{"ops@example.com"},
	}), logger, tp).CreateNotifier(nil)
	require.NoError(t, err)
	assert.IsType(t, &smtpnotify.Notifier{}, n)

	_, err = NewNotifierFactory(testConfig(map[string]interface{}{"notify.type": "telegram"}), logger, tp).CreateNotifier(nil)
	assert.ErrorContains(t, err, "bot connection")

	_, err = NewNotifierFactory(testConfig(map[string]interface{}{"notify.type": "pager"}), logger, tp).CreateNotifier(nil)
	assert.ErrorContains(t, err, "unsupported notifier type")
}

func TestTelegramFactoryRejectsUnknownSource(t *testing.T) {
	f := NewTelegramFactory(testConfig(map[string]interface{}{"source.type": "matrix"}), zaptest.NewLogger(t))
	_, err := f.CreateSource(nil, nil)
	assert.ErrorContains(t, err, "unsupported source type")
}

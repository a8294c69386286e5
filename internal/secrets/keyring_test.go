package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/link-joiner/internal/config"
)

func TestLookup(t *testing.T) {
	keyring.MockInit()

	_, err := Lookup("ocr-secret")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, Store("ocr-secret", "s3cret"))
	v, err := Lookup("ocr-secret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	_, err = Lookup(" ")
	assert.Error(t, err)
	assert.Error(t, Store("ocr-secret", ""))
}

func TestResolveFillsOnlyEmptyKeys(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, Store("telegram-bot-token", "from-keyring"))
	require.NoError(t, Store("ocr-secret", "keyring-secret"))

	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("ocr.secret", "from-config")

	Resolve(cfg, zaptest.NewLogger(t))

	assert.Equal(t, "from-keyring", cfg.GetString("telegram.bot_token"))
	assert.Equal(t, "from-config", cfg.GetString("ocr.secret"))
	assert.Empty(t, cfg.GetString("gemini.api_key"))
}

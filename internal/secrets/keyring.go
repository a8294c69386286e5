package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/config"
)

// KeyringService groups the application's secrets in the OS keychain.
const KeyringService = "link-joiner"

// Keyring accounts, keyed by the config key they back.
var accounts = map[string]string{
	"telegram.bot_token": "telegram-bot-token",
	"ocr.secret":         "ocr-secret",
	"openai.api_key":     "openai-api-key",
	"gemini.api_key":     "gemini-api-key",
	"smtp.password":      "smtp-password",
}

// ErrNotFound is returned when no secret is stored for an account
var ErrNotFound = errors.New("secret not found in keyring")

// Lookup reads a secret from the OS keyring
func Lookup(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	v, err := keyring.Get(KeyringService, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// Store writes a secret into the OS keyring
func Store(account, secret string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(secret) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(KeyringService, account, secret)
}

// Resolve fills empty secret settings from the keyring. Keyring failures are
// not fatal: the later config validation reports anything still missing.
func Resolve(cfg *config.Config, logger *zap.Logger) {
	for key, account := range accounts {
		if strings.TrimSpace(cfg.GetString(key)) != "" {
			continue
		}
		v, err := Lookup(account)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				logger.Debug("Keyring lookup failed", zap.String("key", key), zap.Error(err))
			}
			continue
		}
		cfg.Set(key, v)
		logger.Info("Loaded secret from keyring", zap.String("key", key))
	}
}

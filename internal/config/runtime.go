package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownKey is returned when a runtime key cannot be modified
	ErrUnknownKey = errors.New("unknown or read-only config key")
	// ErrInvalidValue is returned when a value fails validation
	ErrInvalidValue = errors.New("invalid config value")
)

// Runtime keys that may be changed while the process is running
const (
	KeyKeyword       = "keyword"
	KeyClickInterval = "click_interval"
	KeyPageLoadWait  = "page_load_wait"
	KeyImageDir      = "image_dir"
	KeyMaxRetries    = "max_retries"
	KeyRetryDelay    = "retry_delay"
	KeyURLTimeout    = "url_timeout"
)

// Runtime holds the subset of configuration that can be changed live
// from the bot command surface.
type Runtime struct {
	mu            sync.RWMutex
	keyword       string
	clickInterval time.Duration
	pageLoadWait  time.Duration
	imageDir      string
	maxRetries    int
	retryDelay    time.Duration
	urlTimeout    time.Duration
	excluded      []string
}

// NewRuntime seeds the runtime settings from the loaded configuration
func NewRuntime(cfg *Config) *Runtime {
	p := cfg.GetPipeline()
	b := cfg.GetBrowser()

	r := &Runtime{
		keyword:       p.Keyword,
		clickInterval: b.ClickInterval,
		pageLoadWait:  b.PageLoadWait,
		imageDir:      p.ImageDir,
		maxRetries:    p.MaxRetries,
		retryDelay:    p.RetryDelay,
		urlTimeout:    p.URLTimeout,
	}
	for _, k := range p.ExcludeKeywords {
		r.AddExcludedKeyword(k)
	}
	return r
}

// Keyword returns the trigger keyword
func (r *Runtime) Keyword() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keyword
}

// ClickInterval returns the pause between join clicks
func (r *Runtime) ClickInterval() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clickInterval
}

// PageLoadWait returns the settle time after navigation
func (r *Runtime) PageLoadWait() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pageLoadWait
}

// ImageDir returns the directory for downloaded photos
func (r *Runtime) ImageDir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.imageDir
}

// MaxRetries returns the attempt budget per URL task
func (r *Runtime) MaxRetries() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxRetries
}

// RetryDelay returns the fixed delay between attempts
func (r *Runtime) RetryDelay() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retryDelay
}

// URLTimeout returns the overall per-task deadline
func (r *Runtime) URLTimeout() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.urlTimeout
}

// UpdateConfig validates and applies a single runtime change
func (r *Runtime) UpdateConfig(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	switch key {
	case KeyKeyword:
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidValue, key)
		}
		r.mu.Lock()
		r.keyword = value
		r.mu.Unlock()
	case KeyImageDir:
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidValue, key)
		}
		r.mu.Lock()
		r.imageDir = value
		r.mu.Unlock()
	case KeyMaxRetries:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidValue, key, value)
		}
		r.mu.Lock()
		r.maxRetries = n
		r.mu.Unlock()
	case KeyClickInterval, KeyPageLoadWait, KeyRetryDelay, KeyURLTimeout:
		d, err := parseSeconds(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
		}
		if key == KeyURLTimeout && d <= 0 {
			return fmt.Errorf("%w: %s must be greater than zero", ErrInvalidValue, key)
		}
		r.mu.Lock()
		switch key {
		case KeyClickInterval:
			r.clickInterval = d
		case KeyPageLoadWait:
			r.pageLoadWait = d
		case KeyRetryDelay:
			r.retryDelay = d
		case KeyURLTimeout:
			r.urlTimeout = d
		}
		r.mu.Unlock()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

// Get returns the current value of a runtime key
func (r *Runtime) Get(key string) (string, error) {
	values := r.List()
	v, ok := values[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return v, nil
}

// List returns every runtime key with its current value
func (r *Runtime) List() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]string{
		KeyKeyword:       r.keyword,
		KeyClickInterval: r.clickInterval.String(),
		KeyPageLoadWait:  r.pageLoadWait.String(),
		KeyImageDir:      r.imageDir,
		KeyMaxRetries:    strconv.Itoa(r.maxRetries),
		KeyRetryDelay:    r.retryDelay.String(),
		KeyURLTimeout:    r.urlTimeout.String(),
	}
}

// ExcludedKeywords returns a copy of the exclusion keyword list
func (r *Runtime) ExcludedKeywords() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.excluded...)
}

// AddExcludedKeyword adds a keyword, returning false if it was already present
func (r *Runtime) AddExcludedKeyword(keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.excluded {
		if strings.EqualFold(k, keyword) {
			return false
		}
	}
	r.excluded = append(r.excluded, keyword)
	return true
}

// RemoveExcludedKeyword removes a keyword, returning false if it was absent
func (r *Runtime) RemoveExcludedKeyword(keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, k := range r.excluded {
		if strings.EqualFold(k, keyword) {
			r.excluded = append(r.excluded[:i], r.excluded[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot renders the runtime settings as YAML
func (r *Runtime) Snapshot() (string, error) {
	values := r.List()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: values[k]},
		)
	}
	excluded := &yaml.Node{Kind: yaml.SequenceNode}
	for _, k := range r.ExcludedKeywords() {
		excluded.Content = append(excluded.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k})
	}
	doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: "exclude_keywords"}, excluded)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to render runtime config: %w", err)
	}
	return string(out), nil
}

// maxSeconds keeps the seconds to nanoseconds conversion inside int64
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// parseSeconds accepts either a Go duration ("250ms") or plain seconds ("0.25")
func parseSeconds(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("negative duration %q", value)
		}
		return d, nil
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("not a duration: %q", value)
	}
	if secs < 0 {
		return 0, fmt.Errorf("negative duration %q", value)
	}
	if secs >= maxSeconds {
		return 0, fmt.Errorf("duration %q is too large", value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Package preview follows short or redirecting links to the page they
// announce, using the og:url and canonical tags.
package preview

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const userAgent = "Mozilla/5.0 (compatible; link-joiner/1.0)"

// Resolver implements core.PreviewResolver
type Resolver struct {
	hc     *http.Client
	logger *zap.Logger
}

// NewResolver creates a resolver with a per-request timeout
func NewResolver(timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		hc:     &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Resolve returns the page's declared URL, falling back to the final URL
// after redirects
func (r *Resolver) Resolve(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("preview request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := r.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("preview get %s: %w", link, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return "", fmt.Errorf("preview status %d for %s", res.StatusCode, link)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return "", fmt.Errorf("preview parse html: %w", err)
	}

	final := res.Request.URL
	for _, sel := range []string{`meta[property="og:url"]`, `link[rel="canonical"]`} {
		attr := "content"
		if strings.HasPrefix(sel, "link") {
			attr = "href"
		}
		v, ok := doc.Find(sel).First().Attr(attr)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		resolved, err := final.Parse(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		r.logger.Debug("Preview resolved",
			zap.String("url", link),
			zap.String("target", resolved.String()))
		return resolved.String(), nil
	}
	return final.String(), nil
}


// Package signrender builds sign-language rendering URLs for transcript
// segments. The rendering service is never called directly; callers hand
// the URLs to a browser or player.
package signrender

import (
	"fmt"
	"net/url"
	"strings"

	"signscribe/internal/services"
)

// TextParam is the query parameter carrying the segment text.
const TextParam = "text"

// Builder produces one URL per segment from a fixed base.
type Builder struct {
	base *url.URL
}

// New parses base. Query parameters already on base are preserved on every
// URL, which lets callers pin options such as spoken and signed language.
func New(base string) (*Builder, error) {
	base = strings.TrimSpace(base)
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "signrender", "init", fmt.Sprintf("invalid render base url %q", base), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, services.Wrap(services.ErrConfiguration, "signrender", "init", fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}
	parsed.Fragment = ""
	return &Builder{base: parsed}, nil
}

// URL returns base with the text parameter set to segment.
func (b *Builder) URL(segment string) string {
	u := *b.base
	query := u.Query()
	query.Set(TextParam, segment)
	u.RawQuery = query.Encode()
	return u.String()
}

// URLs maps segments to render URLs in order. Nil in, empty out.
func (b *Builder) URLs(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		out = append(out, b.URL(segment))
	}
	return out
}

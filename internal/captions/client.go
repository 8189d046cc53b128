package captions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"signscribe/internal/source"
)

const (
	defaultBaseURL     = "https://www.youtube.com/api/timedtext"
	defaultUserAgent   = "signscribe/dev"
	defaultHTTPTimeout = 15 * time.Second
	maxBodyBytes       = 8 << 20
)

// KindASR marks automatically generated tracks.
const KindASR = "asr"

// Config describes the caption API client configuration.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the platform's timedtext endpoint.
type Client struct {
	baseURL   *url.URL
	userAgent string
	http      *http.Client
}

// Track is one caption track advertised for a video.
type Track struct {
	VideoID  source.VideoID
	Language string
	Name     string
	Kind     string
	Default  bool
}

// Generated reports whether the track was produced by the platform's own
// speech recognition rather than uploaded by the owner.
func (t Track) Generated() bool {
	return strings.EqualFold(t.Kind, KindASR)
}

// StatusError reports a non-success response from the caption API.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("caption api: status %d", e.Status)
	}
	return fmt.Sprintf("caption api: status %d: %s", e.Status, e.Body)
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("captions: parse base url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("captions: base url %q must be absolute", base)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, userAgent: userAgent, http: client}, nil
}

// ListTracks returns every caption track the platform advertises for id.
// A video without captions yields an empty slice and no error.
func (c *Client) ListTracks(ctx context.Context, id source.VideoID) ([]Track, error) {
	if c == nil {
		return nil, errors.New("captions: client is nil")
	}
	if id == "" {
		return nil, errors.New("captions: empty video id")
	}
	params := url.Values{}
	params.Set("type", "list")
	params.Set("v", string(id))

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("captions: parse track list: %w", err)
	}

	var tracks []Track
	doc.Find("track").Each(func(_ int, s *goquery.Selection) {
		lang := strings.TrimSpace(s.AttrOr("lang_code", ""))
		if lang == "" {
			return
		}
		tracks = append(tracks, Track{
			VideoID:  id,
			Language: lang,
			Name:     s.AttrOr("name", ""),
			Kind:     strings.TrimSpace(s.AttrOr("kind", "")),
			Default:  strings.EqualFold(s.AttrOr("lang_default", ""), "true"),
		})
	})
	return tracks, nil
}

// FetchText downloads a track and returns its cues joined into plain text.
func (c *Client) FetchText(ctx context.Context, track Track) (string, error) {
	if c == nil {
		return "", errors.New("captions: client is nil")
	}
	if track.VideoID == "" || strings.TrimSpace(track.Language) == "" {
		return "", errors.New("captions: track requires video id and language")
	}
	params := url.Values{}
	params.Set("v", string(track.VideoID))
	params.Set("lang", track.Language)
	if track.Name != "" {
		params.Set("name", track.Name)
	}
	if track.Kind != "" {
		params.Set("kind", track.Kind)
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return "", err
	}
	return parseTranscript(body)
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	endpoint := *c.baseURL
	endpoint.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("captions: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/xml, application/xml;q=0.9, */*;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("captions: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("captions: read body: %w", err)
	}
	return body, nil
}

// parseTranscript flattens a timedtext document into a single string. Cue
// text arrives entity-escaped twice, so it is unescaped once more after the
// parser's own pass.
func parseTranscript(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("captions: parse transcript: %w", err)
	}
	var parts []string
	doc.Find("text").Each(func(_ int, s *goquery.Selection) {
		cue := strings.Join(strings.Fields(html.UnescapeString(s.Text())), " ")
		if cue != "" {
			parts = append(parts, cue)
		}
	})
	return strings.Join(parts, " "), nil
}

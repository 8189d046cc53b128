package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"signscribe/internal/config"
	"signscribe/internal/services"
	"signscribe/internal/textutil"
)

// DefaultBucket is the bucket uploaded videos land in.
const DefaultBucket = "video-to-sign"

const maxErrorBody = 4 << 10

// HTTPDoer describes the HTTP client used by the storage client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Uploader stores a named blob and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Config controls the storage client.
type Config struct {
	ProjectURL string
	APIKey     string
	Bucket     string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// Client talks to the Supabase Storage REST API.
type Client struct {
	project *url.URL
	apiKey  string
	bucket  string
	timeout time.Duration
	client  HTTPDoer
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.ProjectURL), "/")
	if raw == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "init", "project url is required", nil)
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "init", fmt.Sprintf("invalid project url %q", raw), err)
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "init", "api key is required", nil)
	}
	bucket := strings.Trim(strings.TrimSpace(cfg.Bucket), "/")
	if bucket == "" {
		bucket = DefaultBucket
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		project: parsed,
		apiKey:  apiKey,
		bucket:  bucket,
		timeout: cfg.Timeout,
		client:  client,
	}, nil
}

// NewFromConfig returns a client when storage forwarding is enabled and nil
// otherwise.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil || !cfg.Storage.Enabled {
		return nil, nil
	}
	return New(Config{
		ProjectURL: cfg.Storage.ProjectURL,
		APIKey:     cfg.Storage.APIKey,
		Bucket:     cfg.Storage.Bucket,
		Timeout:    cfg.StorageTimeout(),
	})
}

// Bucket returns the target bucket.
func (c *Client) Bucket() string { return c.bucket }

// ObjectName sanitizes a client-supplied file name into an object key.
func ObjectName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	base = textutil.SanitizeFileName(base)
	if base == "" || base == "." || base == "/" {
		return "upload"
	}
	return base
}

// PublicURL returns the public download URL for an object in the bucket.
func (c *Client) PublicURL(name string) string {
	return c.endpoint("storage", "v1", "object", "public", c.bucket, name)
}

// Upload stores data under name and returns the public URL. Existing
// objects with the same name are not overwritten; the service rejects the
// request and the error carries its response.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", services.Wrap(services.ErrInvalidSource, "storage", "upload", "empty object", nil)
	}
	name = ObjectName(name)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.endpoint("storage", "v1", "object", c.bucket, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "storage", "upload", "build request", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", contentType(name))
	req.Header.Set("x-upsert", "false")
	req.ContentLength = int64(len(data))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "storage", "upload", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.Wrap(services.ErrStorage, "storage", "upload", name, readAPIError(resp))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return c.PublicURL(name), nil
}

// Ping verifies the bucket exists and the key can read it.
func (c *Client) Ping(ctx context.Context) error {
	target := c.endpoint("storage", "v1", "bucket", c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return readAPIError(resp)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("apikey", c.apiKey)
}

func (c *Client) endpoint(segments ...string) string {
	return c.project.JoinPath(segments...).String()
}

// APIError is a non-2xx storage response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storage returned %d", e.Status)
	}
	return fmt.Sprintf("storage returned %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

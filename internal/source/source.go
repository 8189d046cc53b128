package source

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"signscribe/internal/services"
)

// Kind distinguishes the two source variants.
type Kind string

const (
	KindLocalFile Kind = "local_file"
	KindRemoteURL Kind = "remote_url"
)

// VideoSource is either a local file path or a remote URL. Construct it with
// LocalFile or RemoteURL; the zero value is invalid.
type VideoSource struct {
	kind  Kind
	value string
}

// LocalFile builds a source for a video on the local filesystem.
func LocalFile(path string) VideoSource {
	return VideoSource{kind: KindLocalFile, value: path}
}

// RemoteURL builds a source for a video hosted on a video-sharing platform.
func RemoteURL(raw string) VideoSource {
	return VideoSource{kind: KindRemoteURL, value: strings.TrimSpace(raw)}
}

// Kind reports which variant the source is.
func (s VideoSource) Kind() Kind { return s.kind }

// Path returns the local path for LocalFile sources.
func (s VideoSource) Path() string {
	if s.kind != KindLocalFile {
		return ""
	}
	return s.value
}

// URL returns the raw URL for RemoteURL sources.
func (s VideoSource) URL() string {
	if s.kind != KindRemoteURL {
		return ""
	}
	return s.value
}

// IsRemote reports whether the source is a RemoteURL.
func (s VideoSource) IsRemote() bool { return s.kind == KindRemoteURL }

// Name is the human-facing label for the source: the file's base name or the URL.
func (s VideoSource) Name() string {
	if s.kind == KindLocalFile {
		return filepath.Base(s.value)
	}
	return s.value
}

func (s VideoSource) String() string {
	return fmt.Sprintf("%s(%s)", s.kind, s.value)
}

// VideoID is the platform identifier of a remote video.
type VideoID string

// WatchURL returns the canonical watch page for the identifier.
func (id VideoID) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + string(id)
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var watchHosts = map[string]struct{}{
	"youtube.com":              {},
	"www.youtube.com":          {},
	"m.youtube.com":            {},
	"music.youtube.com":        {},
	"youtube-nocookie.com":     {},
	"www.youtube-nocookie.com": {},
}

var pathPrefixes = []string{"/shorts/", "/embed/", "/live/", "/v/", "/e/"}

// Identify derives the video identifier from a RemoteURL source without any
// network access. Every failure is tagged services.ErrInvalidSource.
func (s VideoSource) Identify() (VideoID, error) {
	if s.kind != KindRemoteURL {
		return "", services.Wrap(services.ErrInvalidSource, "source", "identify", "local files have no platform identifier", nil)
	}
	return ParseVideoID(s.value)
}

// ParseVideoID extracts the 11-character video identifier from watch,
// short-link, shorts, embed, and live URLs.
func ParseVideoID(raw string) (VideoID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", services.Wrap(services.ErrInvalidSource, "source", "identify", "empty url", nil)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidSource, "source", "identify", "malformed url", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", services.Wrap(services.ErrInvalidSource, "source", "identify", fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}

	host := strings.ToLower(parsed.Hostname())
	var candidate string
	switch {
	case host == "youtu.be":
		candidate = firstPathSegment(parsed.Path)
	case isWatchHost(host):
		if parsed.Path == "/watch" {
			candidate = parsed.Query().Get("v")
			break
		}
		for _, prefix := range pathPrefixes {
			if strings.HasPrefix(parsed.Path, prefix) {
				candidate = firstPathSegment(strings.TrimPrefix(parsed.Path, prefix))
				break
			}
		}
	default:
		return "", services.Wrap(services.ErrInvalidSource, "source", "identify", fmt.Sprintf("unsupported host %q", host), nil)
	}

	if !videoIDPattern.MatchString(candidate) {
		return "", services.Wrap(services.ErrInvalidSource, "source", "identify", fmt.Sprintf("no video identifier in %q", raw), nil)
	}
	return VideoID(candidate), nil
}

func isWatchHost(host string) bool {
	_, ok := watchHosts[host]
	return ok
}

func firstPathSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	return path
}

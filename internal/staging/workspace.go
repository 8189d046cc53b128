package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"signscribe/internal/textutil"
)

// ErrTooLarge is returned when an upload exceeds its size limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

// Workspace is a per-request directory under the staging dir.
type Workspace struct {
	dir string
}

// NewWorkspace creates staging/req-<id>.
func NewWorkspace(stagingDir, requestID string) (*Workspace, error) {
	token := textutil.SanitizeToken(requestID)
	dir := filepath.Join(stagingDir, "req-"+token)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// SaveUpload copies r into the workspace under a sanitized version of name
// and returns the file path. More than limit bytes fails with ErrTooLarge
// and leaves no file behind; a non-positive limit disables the check.
func (w *Workspace) SaveUpload(name string, r io.Reader, limit int64) (string, error) {
	base := textutil.SanitizeFileName(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if base == "" || base == "." || base == ".." {
		base = "upload"
	}
	path := filepath.Join(w.dir, base)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", copyErr)
	case closeErr != nil:
		os.Remove(path)
		return "", fmt.Errorf("close upload: %w", closeErr)
	case limit > 0 && n > limit:
		os.Remove(path)
		return "", ErrTooLarge
	case n == 0:
		os.Remove(path)
		return "", errors.New("upload is empty")
	}
	return path, nil
}

// Remove deletes the workspace and everything in it. Safe on nil.
func (w *Workspace) Remove() error {
	if w == nil || w.dir == "" {
		return nil
	}
	return os.RemoveAll(w.dir)
}

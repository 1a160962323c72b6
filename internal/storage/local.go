package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

// Local stores files on disk below a root directory.
type Local struct {
	root    string
	baseURL string
	maxSize int64
}

// NewLocal builds a disk store rooted at dir whose files are served under baseURL.
func NewLocal(dir, baseURL string, maxSize int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{root: dir, baseURL: strings.TrimRight(baseURL, "/"), maxSize: maxSize}, nil
}

// Root returns the directory files are written to.
func (l *Local) Root() string {
	return l.root
}

// Upload implements Storage. Content is written atomically under a random name.
func (l *Local) Upload(ctx context.Context, file File, destination string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if l.maxSize > 0 && file.Size > l.maxSize {
		return "", ErrTooLarge
	}
	if file.Content == nil {
		return "", errors.New("upload has no content")
	}

	name := path.Join(cleanDestination(destination), uuid.NewString()+extension(file.Name))
	full := filepath.Join(l.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	limited := &limitedReader{r: file.Content, remaining: l.maxSize}
	var content io.Reader = file.Content
	if l.maxSize > 0 {
		content = limited
	}
	if err := atomic.WriteFile(full, content); err != nil {
		// atomic formats the copy error with %v, so the sentinel is lost.
		if l.maxSize > 0 && limited.remaining < 0 {
			return "", ErrTooLarge
		}
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	// atomic.WriteFile creates files with temp-file permissions.
	if err := os.Chmod(full, 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}
	return name, nil
}

// Remove implements Storage. Missing files are not an error.
func (l *Local) Remove(_ context.Context, filename string) error {
	if filename == "" {
		return nil
	}
	clean := path.Clean("/" + filename)[1:]
	if clean == "" {
		return nil
	}
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// URLFor implements Storage.
func (l *Local) URLFor(filename string) string {
	if filename == "" {
		return ""
	}
	return l.baseURL + "/" + filename
}

// FilenameFromURL implements Storage. URLs not produced by URLFor fall back
// to their last path segment.
func (l *Local) FilenameFromURL(url string) string {
	if l.baseURL != "" && strings.HasPrefix(url, l.baseURL+"/") {
		return strings.TrimPrefix(url, l.baseURL+"/")
	}
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}

func cleanDestination(dest string) string {
	dest = path.Clean("/" + strings.ReplaceAll(dest, "\\", "/"))
	return strings.TrimPrefix(dest, "/")
}

func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if lr.remaining < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > lr.remaining+1 {
		p = p[:lr.remaining+1]
	}
	n, err := lr.r.Read(p)
	lr.remaining -= int64(n)
	if lr.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

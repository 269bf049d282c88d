package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// FileStore keeps each page as a file under a root directory. Writes are
// atomic so a crashed process never leaves a half-written page behind.
type FileStore struct {
	root string
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("store: file store root is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root %q: %w", dir, err)
	}
	return &FileStore{root: dir}, nil
}

// ReadPage implements PageStore.
func (s *FileStore) ReadPage(ctx context.Context, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path(title))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrPageMissing
	}
	if err != nil {
		return "", &FetchError{Title: title, Err: err}
	}
	return string(data), nil
}

// WritePage implements PageStore. A missing page is created.
func (s *FileStore) WritePage(ctx context.Context, req WriteRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	existing, err := s.ReadPage(ctx, req.Target)
	if err != nil && !errors.Is(err, ErrPageMissing) {
		return &WriteError{Target: req.Target, Err: err}
	}
	content := Apply(existing, req.Text, req.Mode)
	if err := atomic.WriteFile(s.path(req.Target), bytes.NewReader([]byte(content))); err != nil {
		return &WriteError{Target: req.Target, Err: err}
	}
	return nil
}

// path maps a page title onto a file name. Titles routinely contain
// namespace separators and slashes; both are flattened so every page stays
// directly under the root.
func (s *FileStore) path(title string) string {
	name := strings.NewReplacer("/", "%2F", ":", "%3A").Replace(title)
	return filepath.Join(s.root, name+".wiki")
}

var _ PageStore = (*FileStore)(nil)

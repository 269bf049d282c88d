package formassistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/L235/formAssistant/pkg/store"
)

// Source supplies the raw configuration document bytes. Implementations cover
// local files, HTTP endpoints, and wiki pages read through a page store.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]byte, error)

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// SourceFromFile reads the configuration from a path on disk.
func SourceFromFile(path string) Source {
	return SourceFunc(func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("formassistant: read configuration file: %w", err)
		}
		return raw, nil
	})
}

// SourceFromURL fetches the configuration over HTTP. A nil client uses a
// default with a 30 second timeout.
func SourceFromURL(rawURL string, client *http.Client) Source {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return SourceFunc(func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("formassistant: configuration request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("formassistant: fetch configuration: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("formassistant: fetch configuration: unexpected status %s", resp.Status)
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return nil, fmt.Errorf("formassistant: read configuration body: %w", err)
		}
		return raw, nil
	})
}

// SourceFromPage reads the configuration from a titled page in a page store,
// typically the on-wiki JSON config page.
func SourceFromPage(pages store.PageStore, title string) Source {
	return SourceFunc(func(ctx context.Context) ([]byte, error) {
		content, err := pages.ReadPage(ctx, title)
		if err != nil {
			if errors.Is(err, store.ErrPageMissing) {
				return nil, fmt.Errorf("formassistant: configuration page %q does not exist", title)
			}
			return nil, err
		}
		return []byte(content), nil
	})
}

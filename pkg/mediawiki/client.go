// Package mediawiki implements the external collaborator contracts against a
// MediaWiki Action API endpoint: reading page content (configuration fetch),
// rendering wikitext to safe markup, and applying prepend/append edits.
package mediawiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/L235/formAssistant/pkg/store"
)

// Client talks to one Action API endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithLogger routes API diagnostics to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(client *Client) {
		if l != nil {
			client.logger = l
		}
	}
}

// NewClient constructs a Client for the given api.php endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("mediawiki: endpoint is required")
	}
	client := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}
	return client, nil
}

// APIError is a structured error returned by the Action API.
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mediawiki: api error %s: %s", e.Code, e.Info)
}

type apiEnvelope struct {
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
	Query *struct {
		Tokens map[string]string `json:"tokens"`
		Pages  []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Revisions []struct {
				Slots struct {
					Main struct {
						Content string `json:"content"`
					} `json:"main"`
				} `json:"slots"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
	Parse *struct {
		Text string `json:"text"`
	} `json:"parse"`
	Edit *struct {
		Result string `json:"result"`
	} `json:"edit"`
}

// ReadPage implements store.PageStore: it fetches the latest revision's
// content of the titled page.
func (c *Client) ReadPage(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"prop":          {"revisions"},
		"titles":        {title},
		"rvprop":        {"content"},
		"rvslots":       {"main"},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	env, err := c.get(ctx, params)
	if err != nil {
		return "", &store.FetchError{Title: title, Err: err}
	}
	if env.Query == nil || len(env.Query.Pages) == 0 {
		return "", &store.FetchError{Title: title, Err: errors.New("empty query response")}
	}
	page := env.Query.Pages[0]
	if page.Missing || len(page.Revisions) == 0 {
		return "", store.ErrPageMissing
	}
	return page.Revisions[0].Slots.Main.Content, nil
}

// RenderMarkup implements the safe-markup render collaborator via
// action=parse. Callers fall back to escaped-literal display on error.
func (c *Client) RenderMarkup(ctx context.Context, text, pageHint string) (string, error) {
	form := url.Values{
		"action":          {"parse"},
		"text":            {text},
		"contentmodel":    {"wikitext"},
		"wrapoutputclass": {""},
		"format":          {"json"},
		"formatversion":   {"2"},
	}
	if pageHint != "" {
		form.Set("title", pageHint)
	}
	env, err := c.post(ctx, form)
	if err != nil {
		return "", err
	}
	if env.Parse == nil {
		return "", errors.New("mediawiki: parse response missing payload")
	}
	return env.Parse.Text, nil
}

// WritePage implements store.PageStore: it acquires a CSRF token and issues
// exactly one edit, prepending or appending per the request's mode.
func (c *Client) WritePage(ctx context.Context, req store.WriteRequest) error {
	token, err := c.csrfToken(ctx)
	if err != nil {
		return &store.WriteError{Target: req.Target, Err: err}
	}

	form := url.Values{
		"action":        {"edit"},
		"title":         {req.Target},
		"summary":       {req.Summary},
		"token":         {token},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	if req.Mode == store.ModePrepend {
		form.Set("prependtext", req.Text)
	} else {
		form.Set("appendtext", req.Text)
	}

	env, err := c.post(ctx, form)
	if err != nil {
		return &store.WriteError{Target: req.Target, Err: err}
	}
	if env.Edit == nil || env.Edit.Result != "Success" {
		return &store.WriteError{Target: req.Target, Err: errors.New("edit was not confirmed")}
	}
	return nil
}

func (c *Client) csrfToken(ctx context.Context) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"meta":          {"tokens"},
		"type":          {"csrf"},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	env, err := c.get(ctx, params)
	if err != nil {
		return "", err
	}
	if env.Query == nil {
		return "", errors.New("mediawiki: token response missing payload")
	}
	token := env.Query.Tokens["csrftoken"]
	if token == "" {
		return "", errors.New("mediawiki: no csrf token granted")
	}
	return token, nil
}

func (c *Client) get(ctx context.Context, params url.Values) (*apiEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, form url.Values) (*apiEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*apiEnvelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mediawiki: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("mediawiki: decode response: %w", err)
	}
	if env.Error != nil {
		return nil, &APIError{Code: env.Error.Code, Info: env.Error.Info}
	}
	return &env, nil
}

var _ store.PageStore = (*Client)(nil)

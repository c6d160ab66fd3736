package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/models"
)

const maxResponseSize = 32 << 20 // 32 MB

// HTTPClient talks to a note store over its token-authenticated JSON API.
type HTTPClient struct {
	base  *url.URL
	token string
	hc    *http.Client
	log   *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for the API rooted at baseURL. timeout
// bounds each request; zero means 30 seconds.
func NewHTTPClient(baseURL, token string, timeout time.Duration, log *slog.Logger) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, apperr.Configuration("remote base url is not a valid URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperr.Configuration("remote base url must use http or https", nil)
	}
	if token == "" {
		return nil, apperr.Configuration("remote token must not be empty", nil)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPClient{
		base:  u,
		token: token,
		hc:    &http.Client{Timeout: timeout},
		log:   log.With(slog.String("component", "remote")),
	}, nil
}

func (c *HTTPClient) ListNotes(ctx context.Context) ([]models.Note, int) {
	data, status := c.do(ctx, http.MethodGet, "/notes", url.Values{"include": {"content"}}, nil)
	if status != StatusOK {
		return nil, status
	}
	notes, err := decodeNoteList(data)
	if err != nil {
		c.log.Warn("note list payload has unexpected shape", slog.String("error", err.Error()))
		return nil, StatusBadPayload
	}
	return notes, StatusOK
}

func (c *HTTPClient) ListChanges(ctx context.Context, cursor string, includeTags bool) (string, []models.Change, int) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if includeTags {
		q.Set("tags", "true")
	}
	data, status := c.do(ctx, http.MethodGet, "/notes/changes", q, nil)
	if status != StatusOK {
		return "", nil, status
	}
	var payload struct {
		Cursor  string           `json:"cursor"`
		Changes []map[string]any `json:"changes"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Cursor == "" {
		c.log.Warn("changes payload has unexpected shape")
		return "", nil, StatusBadPayload
	}
	changes := make([]models.Change, 0, len(payload.Changes))
	for _, raw := range payload.Changes {
		changes = append(changes, decodeChange(raw))
	}
	return payload.Cursor, changes, StatusOK
}

func (c *HTTPClient) GetNote(ctx context.Context, id string) (models.Note, int) {
	data, status := c.do(ctx, http.MethodGet, "/notes/"+url.PathEscape(id), nil, nil)
	if status != StatusOK {
		return models.Note{}, status
	}
	return c.decodeOne(data)
}

func (c *HTTPClient) CreateNote(ctx context.Context, n models.Note) (models.Note, int) {
	data, status := c.do(ctx, http.MethodPost, "/notes", nil, noteBody(n))
	if status != StatusOK {
		return models.Note{}, status
	}
	return c.decodeOne(data)
}

func (c *HTTPClient) UpdateNote(ctx context.Context, n models.Note) (models.Note, int) {
	if n.ID == "" {
		return models.Note{}, StatusBadPayload
	}
	data, status := c.do(ctx, http.MethodPut, "/notes/"+url.PathEscape(n.ID), nil, noteBody(n))
	if status != StatusOK {
		return models.Note{}, status
	}
	return c.decodeOne(data)
}

func (c *HTTPClient) TrashNote(ctx context.Context, id string) int {
	_, status := c.do(ctx, http.MethodDelete, "/notes/"+url.PathEscape(id), nil, nil)
	return status
}

func (c *HTTPClient) decodeOne(data []byte) (models.Note, int) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		c.log.Warn("note payload is not a JSON object")
		return models.Note{}, StatusBadPayload
	}
	n, err := decodeNote(raw)
	if err != nil {
		c.log.Warn("note payload could not be coerced", slog.String("error", err.Error()))
		return models.Note{}, StatusBadPayload
	}
	return n, StatusOK
}

// do performs one request and maps the outcome onto the status convention.
// The response body is read fully, bounded by maxResponseSize.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, int) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, StatusError
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, StatusError
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug("request failed", slog.String("method", method), slog.String("path", path), slog.String("error", err.Error()))
		return nil, StatusError
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, StatusError
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, StatusOK
	case resp.StatusCode == http.StatusNotFound:
		return nil, StatusNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, StatusUnauthorized
	default:
		c.log.Debug("request rejected", slog.String("method", method), slog.String("path", path), slog.Int("http_status", resp.StatusCode))
		return nil, StatusError
	}
}

// noteBody is the write payload. The id travels in the URL; version and
// timestamps are assigned by the remote store.
func noteBody(n models.Note) map[string]any {
	body := map[string]any{
		"content": n.Content,
		"tags":    n.Tags,
	}
	if n.Tags == nil {
		body["tags"] = []string{}
	}
	if n.Pinned {
		body["pinned"] = true
	}
	return body
}

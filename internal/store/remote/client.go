// Package remote is a store.Store that talks to a flownotes server over HTTP
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vonshlovens/flownotes/internal/note"
	"github.com/vonshlovens/flownotes/internal/pdf"
	"github.com/vonshlovens/flownotes/internal/store"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ store.Store = (*Client)(nil)

type errorResponse struct {
	Error string `json:"error"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks the server is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) ListNotes(ctx context.Context) ([]note.Metadata, error) {
	var notes []note.Metadata
	if err := c.do(ctx, http.MethodGet, "/api/notes", nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) CreateNote(ctx context.Context, title string) (*note.Note, error) {
	var n note.Note
	if err := c.do(ctx, http.MethodPost, "/api/notes", map[string]string{"title": title}, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) LoadNote(ctx context.Context, id string) (*note.Note, error) {
	var n note.Note
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) SaveNote(ctx context.Context, n *note.Note) error {
	if err := store.CheckNote(n); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(n.ID), n, nil)
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ImportPDF(ctx context.Context, name, path string, pages int) (*pdf.Document, error) {
	req := map[string]any{"name": name, "path": path, "pages": pages}
	var doc pdf.Document
	if err := c.do(ctx, http.MethodPost, "/api/pdfs", req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) SavePDF(ctx context.Context, doc *pdf.Document) error {
	return c.do(ctx, http.MethodPut, "/api/pdfs/"+url.PathEscape(doc.ID), doc, nil)
}

func (c *Client) LoadPDF(ctx context.Context, id string) (*pdf.Document, error) {
	var doc pdf.Document
	if err := c.do(ctx, http.MethodGet, "/api/pdfs/"+url.PathEscape(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) ListPDFs(ctx context.Context) ([]pdf.Document, error) {
	var docs []pdf.Document
	if err := c.do(ctx, http.MethodGet, "/api/pdfs", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Client) DeletePDF(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/pdfs/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SavePDFAnnotation(ctx context.Context, pdfID string, a pdf.Annotation) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/api/pdfs/"+url.PathEscape(pdfID)+"/annotations", a, nil)
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// HTTP helpers

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// statusError restores the sentinel errors the server encoded as status codes
func statusError(status int, body []byte) error {
	msg := fmt.Sprintf("request failed with status %d", status)
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, store.ErrNotFound)
	case http.StatusBadRequest:
		return fmt.Errorf("%s: %w", msg, store.ErrInvalidNote)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w", msg, pdf.ErrInvalidAnnotation)
	default:
		return fmt.Errorf("%s", msg)
	}
}

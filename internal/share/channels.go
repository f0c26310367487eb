package share

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	WebhookName   = "webhook"
	ClipboardName = "clipboard"
)

// WebhookSharer posts the payload as JSON to URL.
type WebhookSharer struct {
	URL  string
	HTTP *http.Client
}

func (WebhookSharer) Name() string { return WebhookName }

func (s WebhookSharer) Share(ctx context.Context, p Payload) error {
	if s.URL == "" {
		return fmt.Errorf("webhook url not set: %w", ErrUnavailable)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{StatusCode: resp.StatusCode}
	}
	return nil
}

type httpError struct {
	StatusCode int
}

func (e *httpError) Error() string {
	return "webhook http status " + strconv.Itoa(e.StatusCode)
}

// ClipboardSharer writes the plain share text to Path, replacing the
// previous copy.
type ClipboardSharer struct {
	Path string
}

func (ClipboardSharer) Name() string { return ClipboardName }

func (s ClipboardSharer) Share(ctx context.Context, p Payload) error {
	if s.Path == "" {
		return fmt.Errorf("clipboard file not set: %w", ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte(p.Plain()), 0o644)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

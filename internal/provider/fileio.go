package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dharsanguruparan/RelayDrop/internal/config"
)

// FileIO uploads to file.io, a disposable host. Files expire, so successful
// outcomes usually carry an expiry timestamp.
type FileIO struct {
	client    *http.Client
	uploadURL string
	maxSize   int64
}

// NewFileIO constructs the file.io adapter.
func NewFileIO(client *http.Client, cfg config.ProviderConfig) *FileIO {
	return &FileIO{client: client, uploadURL: cfg.UploadURL, maxSize: cfg.MaxSize}
}

// Name identifies the host in records and diagnostics.
func (f *FileIO) Name() string { return "file.io" }

type fileIOResponse struct {
	Success bool   `json:"success"`
	Link    string `json:"link"`
	Key     string `json:"key"`
	Expires string `json:"expires"`
	Message string `json:"message"`
}

// Upload posts the payload and normalizes the response.
func (f *FileIO) Upload(ctx context.Context, payload []byte, fileName, mimeType string) (*Outcome, error) {
	if err := checkHostLimit(payload, f.maxSize); err != nil {
		return nil, err
	}
	body, status, err := postMultipart(ctx, f.client, f.uploadURL, payload, fileName, mimeType)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	var resp fileIOResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !resp.Success || resp.Link == "" {
		if resp.Message != "" {
			return nil, fmt.Errorf("upload rejected: %s", resp.Message)
		}
		return nil, fmt.Errorf("upload rejected")
	}
	return &Outcome{
		URL:            resp.Link,
		DirectURL:      resp.Link,
		ProviderFileID: resp.Key,
		Expiry:         parseExpiry(resp.Expires),
	}, nil
}

// parseExpiry tolerates the timestamp formats file.io has used over time.
// Unparseable values yield no expiry rather than an error; the sweeper then
// simply never touches the record.
func parseExpiry(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

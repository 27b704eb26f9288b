package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dharsanguruparan/RelayDrop/internal/config"
)

// TmpNinja uploads to tmp.ninja. The API has returned several response shapes
// over time, so normalization tries each known form in order.
type TmpNinja struct {
	client    *http.Client
	uploadURL string
	maxSize   int64
}

// NewTmpNinja constructs the tmp.ninja adapter.
func NewTmpNinja(client *http.Client, cfg config.ProviderConfig) *TmpNinja {
	return &TmpNinja{client: client, uploadURL: cfg.UploadURL, maxSize: cfg.MaxSize}
}

// Name identifies the host in records and diagnostics.
func (t *TmpNinja) Name() string { return "tmp.ninja" }

type tmpNinjaResponse struct {
	File struct {
		URL struct {
			Full string `json:"full"`
		} `json:"url"`
	} `json:"file"`
	URL string `json:"url"`
}

// Upload posts the payload and extracts the download URL from whichever
// response shape the host produced: nested object, flat object, or a raw URL
// string body.
func (t *TmpNinja) Upload(ctx context.Context, payload []byte, fileName, mimeType string) (*Outcome, error) {
	if err := checkHostLimit(payload, t.maxSize); err != nil {
		return nil, err
	}
	body, status, err := postMultipart(ctx, t.client, t.uploadURL, payload, fileName, mimeType)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	fileURL := extractTmpNinjaURL(body)
	if fileURL == "" {
		return nil, fmt.Errorf("no download url in response")
	}
	return &Outcome{URL: fileURL, DirectURL: fileURL}, nil
}

func extractTmpNinjaURL(body []byte) string {
	var decoded tmpNinjaResponse
	if err := json.Unmarshal(body, &decoded); err == nil {
		if decoded.File.URL.Full != "" {
			return decoded.File.URL.Full
		}
		if decoded.URL != "" {
			return decoded.URL
		}
	}
	raw := strings.TrimSpace(string(body))
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return ""
}

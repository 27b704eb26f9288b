package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dharsanguruparan/RelayDrop/internal/config"
)

// AnonFiles uploads to anonfiles.com.
type AnonFiles struct {
	client    *http.Client
	uploadURL string
	maxSize   int64
}

// NewAnonFiles constructs the anonfiles adapter.
func NewAnonFiles(client *http.Client, cfg config.ProviderConfig) *AnonFiles {
	return &AnonFiles{client: client, uploadURL: cfg.UploadURL, maxSize: cfg.MaxSize}
}

// Name identifies the host in records and diagnostics.
func (a *AnonFiles) Name() string { return "anonfiles" }

type anonFilesResponse struct {
	Status bool `json:"status"`
	Data   struct {
		File struct {
			URL struct {
				Full  string `json:"full"`
				Short string `json:"short"`
			} `json:"url"`
			Metadata struct {
				ID string `json:"id"`
			} `json:"metadata"`
		} `json:"file"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Upload posts the payload and normalizes the response.
func (a *AnonFiles) Upload(ctx context.Context, payload []byte, fileName, mimeType string) (*Outcome, error) {
	if err := checkHostLimit(payload, a.maxSize); err != nil {
		return nil, err
	}
	body, status, err := postMultipart(ctx, a.client, a.uploadURL, payload, fileName, mimeType)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	var resp anonFilesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !resp.Status {
		if resp.Error.Message != "" {
			return nil, fmt.Errorf("upload rejected: %s", resp.Error.Message)
		}
		return nil, fmt.Errorf("upload rejected")
	}
	full := resp.Data.File.URL.Full
	if full == "" {
		return nil, fmt.Errorf("no download url in response")
	}
	return &Outcome{
		URL:            full,
		DirectURL:      full,
		ProviderFileID: resp.Data.File.Metadata.ID,
	}, nil
}

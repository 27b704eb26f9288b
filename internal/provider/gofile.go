package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dharsanguruparan/RelayDrop/internal/config"
)

// GoFile uploads to gofile.io. The host assigns an upload server per request,
// so each upload is a two-step call: discover the server, then transfer. A
// discovery failure counts as an upload failure.
type GoFile struct {
	client    *http.Client
	serverURL string
	uploadURL string // template containing "{server}"
}

// NewGoFile constructs the gofile adapter.
func NewGoFile(client *http.Client, cfg config.ProviderConfig) *GoFile {
	return &GoFile{client: client, serverURL: cfg.ServerURL, uploadURL: cfg.UploadURL}
}

// Name identifies the host in records and diagnostics.
func (g *GoFile) Name() string { return "gofile" }

type goFileServerResponse struct {
	Status string `json:"status"`
	Data   struct {
		Server string `json:"server"`
	} `json:"data"`
}

type goFileUploadResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		FileID       string `json:"fileId"`
		FileName     string `json:"fileName"`
		DownloadPage string `json:"downloadPage"`
	} `json:"data"`
}

// Upload discovers an upload server, posts the payload, and builds the
// download URL from the assigned server and returned file id.
func (g *GoFile) Upload(ctx context.Context, payload []byte, fileName, mimeType string) (*Outcome, error) {
	server, err := g.discoverServer(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover server: %w", err)
	}
	uploadURL := strings.Replace(g.uploadURL, "{server}", server, 1)
	body, status, err := postMultipart(ctx, g.client, uploadURL, payload, fileName, mimeType)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	var resp goFileUploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		if resp.Message != "" {
			return nil, fmt.Errorf("upload rejected: %s", resp.Message)
		}
		return nil, fmt.Errorf("upload rejected: status %q", resp.Status)
	}
	download, err := g.downloadURL(uploadURL, resp.Data.FileID, fileName)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		URL:            download,
		DirectURL:      download,
		ProviderFileID: resp.Data.FileID,
	}, nil
}

func (g *GoFile) discoverServer(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.serverURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	var decoded goFileServerResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode server response: %w", err)
	}
	if decoded.Status != "ok" || decoded.Data.Server == "" {
		return "", fmt.Errorf("no server assigned")
	}
	return decoded.Data.Server, nil
}

// downloadURL templates the public link off the upload host so the adapter
// works against the real service and test servers alike.
func (g *GoFile) downloadURL(uploadURL, fileID, fileName string) (string, error) {
	u, err := url.Parse(uploadURL)
	if err != nil {
		return "", fmt.Errorf("parse upload url: %w", err)
	}
	return fmt.Sprintf("%s://%s/download/%s/%s", u.Scheme, u.Host, fileID, url.PathEscape(fileName)), nil
}

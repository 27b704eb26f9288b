// Package provider wraps the external file hosts behind a single upload
// contract. Each host gets its own adapter which owns that host's request
// shape and response decoding; nothing provider-specific leaks past this
// package.
package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// Outcome is the normalized result of a successful upload. DirectURL may be
// empty when the host makes no distinction between a landing page and the raw
// file; callers fall back to URL.
type Outcome struct {
	URL            string
	DirectURL      string
	ProviderFileID string
	Expiry         *time.Time
}

// Adapter uploads one payload to one external host. Any transport error,
// non-2xx status, malformed body or provider-reported failure is returned as
// an error; adapters never panic across this boundary.
type Adapter interface {
	Name() string
	Upload(ctx context.Context, payload []byte, fileName, mimeType string) (*Outcome, error)
}

// Deleter is implemented by hosts that support removing a stored file.
// Deletion is best-effort; callers must tolerate failure.
type Deleter interface {
	Delete(ctx context.Context, providerFileID string) error
}

const maxResponseBytes = 1 << 20 // provider responses are small JSON bodies

// checkHostLimit rejects payloads over a host's declared ceiling before any
// bytes leave the process, so the chain can move on to a roomier host.
func checkHostLimit(payload []byte, maxSize int64) error {
	if maxSize > 0 && int64(len(payload)) > maxSize {
		return fmt.Errorf("file exceeds the host limit of %d bytes", maxSize)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, `\"`)

// postMultipart sends the payload as a multipart form under the field name
// "file" and returns the response body and status code. The part carries the
// client-declared content type, which some hosts use to route storage.
func postMultipart(ctx context.Context, client *http.Client, url string, payload []byte, fileName, mimeType string) ([]byte, int, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(fileName)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, 0, fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, 0, fmt.Errorf("write form payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, 0, fmt.Errorf("finalize form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("post upload: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/RelayDrop/internal/config"
	"github.com/dharsanguruparan/RelayDrop/internal/model"
	"github.com/dharsanguruparan/RelayDrop/internal/provider"
	"github.com/dharsanguruparan/RelayDrop/internal/registry"
	"github.com/dharsanguruparan/RelayDrop/internal/upload"
)

type stubAdapter struct {
	name    string
	outcome *provider.Outcome
	err     error
	calls   int
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Upload(ctx context.Context, payload []byte, fileName, mimeType string) (*provider.Outcome, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

type stubDeleter struct {
	deleted chan string
}

func (s *stubDeleter) Delete(ctx context.Context, providerFileID string) error {
	s.deleted <- providerFileID
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Address:         ":0",
		MaxUploadSize:   100 << 20,
		RegistryCap:     1000,
		SearchMinLength: 3,
	}
}

func newTestServer(cfg *config.Config, reg *registry.Registry, deleters map[string]provider.Deleter, adapters ...provider.Adapter) http.Handler {
	orch := upload.New(cfg.MaxUploadSize, adapters...)
	return New(cfg, reg, orch, nil, deleters).Handler()
}

func multipartBody(t *testing.T, fieldName, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func doJSON(t *testing.T, handler http.Handler, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec.Code, decoded
}

func TestUploadFallsBackToSecondProvider(t *testing.T) {
	failing := &stubAdapter{name: "A", err: errors.New("host down")}
	working := &stubAdapter{name: "B", outcome: &provider.Outcome{URL: "https://b.example/f", DirectURL: "https://b.example/f"}}
	reg := registry.New(1000)

	// Seed an older record so ordering in the listing is observable.
	older := &model.UploadRecord{
		ID:           "older",
		OriginalName: "older.txt",
		Service:      "B",
		UploadDate:   time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, reg.Insert(older))

	handler := newTestServer(testConfig(), reg, nil, failing, working)
	body, contentType := multipartBody(t, "file", "test.txt", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	code, resp := doJSON(t, handler, req)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, resp["success"])
	require.Equal(t, "B", resp["service"])
	require.Equal(t, "test.txt", resp["fileName"])
	require.Equal(t, float64(1), resp["fileSize"])
	require.Equal(t, "https://b.example/f", resp["url"])
	require.NotEmpty(t, resp["fileId"])
	require.Equal(t, 1, failing.calls)
	require.Equal(t, 2, reg.Len())

	// Most recent upload comes first in the listing.
	listReq := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	code, listResp := doJSON(t, handler, listReq)
	require.Equal(t, http.StatusOK, code)
	files := listResp["files"].([]interface{})
	require.Len(t, files, 2)
	first := files[0].(map[string]interface{})
	require.Equal(t, "test.txt", first["name"])
}

func TestUploadWithoutFile(t *testing.T) {
	adapter := &stubAdapter{name: "A", outcome: &provider.Outcome{URL: "https://a.example/f"}}
	handler := newTestServer(testConfig(), registry.New(1000), nil, adapter)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString("not multipart"))
	code, resp := doJSON(t, handler, req)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, false, resp["success"])
	require.Equal(t, 0, adapter.calls)
}

func TestUploadMissingFileField(t *testing.T) {
	adapter := &stubAdapter{name: "A", outcome: &provider.Outcome{URL: "https://a.example/f"}}
	handler := newTestServer(testConfig(), registry.New(1000), nil, adapter)

	body, contentType := multipartBody(t, "attachment", "test.txt", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	code, resp := doJSON(t, handler, req)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "No file uploaded", resp["error"])
	require.Equal(t, 0, adapter.calls)
}

func TestUploadTooLarge(t *testing.T) {
	adapter := &stubAdapter{name: "A", outcome: &provider.Outcome{URL: "https://a.example/f"}}
	cfg := testConfig()
	cfg.MaxUploadSize = 4
	reg := registry.New(1000)
	handler := newTestServer(cfg, reg, nil, adapter)

	body, contentType := multipartBody(t, "file", "big.bin", "0123456789")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	code, resp := doJSON(t, handler, req)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, false, resp["success"])
	require.Equal(t, 0, adapter.calls)
	require.Equal(t, 0, reg.Len())
}

func TestUploadExceedsBodyCap(t *testing.T) {
	adapter := &stubAdapter{name: "A", outcome: &provider.Outcome{URL: "https://a.example/f"}}
	cfg := testConfig()
	cfg.MaxUploadSize = 4
	handler := newTestServer(cfg, registry.New(1000), nil, adapter)

	// Well past MaxUploadSize plus the multipart overhead allowance, so the
	// body reader itself cuts the request off.
	body, contentType := multipartBody(t, "file", "big.bin", strings.Repeat("x", 5000))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	code, resp := doJSON(t, handler, req)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, resp["error"], "File too large")
	require.Equal(t, 0, adapter.calls)
}

func TestUploadTruncatedBody(t *testing.T) {
	adapter := &stubAdapter{name: "A", outcome: &provider.Outcome{URL: "https://a.example/f"}}
	handler := newTestServer(testConfig(), registry.New(1000), nil, adapter)

	// A valid part header with no closing boundary: the part read fails with
	// an unexpected EOF rather than the size cap.
	raw := "--X\r\nContent-Disposition: form-data; name=\"file\"; filename=\"t.txt\"\r\nContent-Type: text/plain\r\n\r\npartial data"
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(raw))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=X")

	code, resp := doJSON(t, handler, req)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "failed to read uploaded file", resp["error"])
	require.Equal(t, 0, adapter.calls)
}

func TestUploadAllProvidersFail(t *testing.T) {
	a := &stubAdapter{name: "A", err: errors.New("timeout")}
	b := &stubAdapter{name: "B", err: errors.New("rejected")}
	reg := registry.New(1000)
	handler := newTestServer(testConfig(), reg, nil, a, b)

	body, contentType := multipartBody(t, "file", "test.txt", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	code, resp := doJSON(t, handler, req)
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, false, resp["success"])
	details := resp["details"].([]interface{})
	require.Len(t, details, 2)
	first := details[0].(map[string]interface{})
	require.Equal(t, "A", first["provider"])
	require.Equal(t, "timeout", first["message"])
	require.Equal(t, 0, reg.Len())
}

func seedRecord(t *testing.T, reg *registry.Registry, id string) *model.UploadRecord {
	t.Helper()
	rec := &model.UploadRecord{
		ID:             id,
		OriginalName:   id + ".txt",
		URL:            "https://files.example/" + id,
		DirectURL:      "https://files.example/" + id,
		Size:           42,
		MimeType:       "text/plain",
		Service:        "s3",
		ProviderFileID: "uploads/" + id,
		UploadDate:     time.Now().UTC(),
	}
	require.NoError(t, reg.Insert(rec))
	return rec
}

func TestFileInfo(t *testing.T) {
	reg := registry.New(1000)
	seedRecord(t, reg, "abc")
	handler := newTestServer(testConfig(), reg, nil)

	code, resp := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/api/files/abc", nil))
	require.Equal(t, http.StatusOK, code)
	file := resp["file"].(map[string]interface{})
	require.Equal(t, "abc.txt", file["name"])
	require.Equal(t, "text/plain", file["mimeType"])

	code, resp = doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/api/files/missing", nil))
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "File not found", resp["error"])
}

func TestDeleteRunsRemoteCleanup(t *testing.T) {
	reg := registry.New(1000)
	rec := seedRecord(t, reg, "abc")
	deleter := &stubDeleter{deleted: make(chan string, 1)}
	handler := newTestServer(testConfig(), reg, map[string]provider.Deleter{"s3": deleter})

	code, resp := doJSON(t, handler, httptest.NewRequest(http.MethodDelete, "/api/files/abc", nil))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, resp["success"])
	file := resp["file"].(map[string]interface{})
	require.Equal(t, "abc", file["id"])
	require.Equal(t, "abc.txt", file["name"])

	_, err := reg.Get("abc")
	require.ErrorIs(t, err, registry.ErrNotFound)

	select {
	case id := <-deleter.deleted:
		require.Equal(t, rec.ProviderFileID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("remote cleanup was not dispatched")
	}

	code, _ = doJSON(t, handler, httptest.NewRequest(http.MethodDelete, "/api/files/abc", nil))
	require.Equal(t, http.StatusNotFound, code)
}

func TestDownloadCounter(t *testing.T) {
	reg := registry.New(1000)
	seedRecord(t, reg, "abc")
	handler := newTestServer(testConfig(), reg, nil)

	for i := 1; i <= 3; i++ {
		code, resp := doJSON(t, handler, httptest.NewRequest(http.MethodPost, "/api/files/abc/download", nil))
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, float64(i), resp["downloads"])
	}

	code, _ := doJSON(t, handler, httptest.NewRequest(http.MethodPost, "/api/files/missing/download", nil))
	require.Equal(t, http.StatusNotFound, code)
}

func TestFilesSearch(t *testing.T) {
	reg := registry.New(1000)
	require.NoError(t, reg.Insert(&model.UploadRecord{
		ID: "a", OriginalName: "a.txt", Service: "file.io", UploadDate: time.Now().UTC(),
	}))
	require.NoError(t, reg.Insert(&model.UploadRecord{
		ID: "b", OriginalName: "b.png", Service: "file.io", UploadDate: time.Now().UTC(),
	}))
	handler := newTestServer(testConfig(), reg, nil)

	code, resp := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/api/files?search=txt", nil))
	require.Equal(t, http.StatusOK, code)
	files := resp["files"].([]interface{})
	require.Len(t, files, 1)
	require.Equal(t, "a.txt", files[0].(map[string]interface{})["name"])
	require.Equal(t, float64(1), resp["total"])
	require.Equal(t, float64(1), resp["totalPages"])
}

func TestStatsEndpoint(t *testing.T) {
	reg := registry.New(1000)
	seedRecord(t, reg, "abc")
	handler := newTestServer(testConfig(), reg, nil)

	code, resp := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, code)
	stats := resp["stats"].(map[string]interface{})
	require.Equal(t, float64(1), stats["totalFiles"])
	require.Equal(t, float64(42), stats["totalSize"])
	services := stats["services"].(map[string]interface{})
	require.Contains(t, services, "s3")
}

func TestHealth(t *testing.T) {
	reg := registry.New(1000)
	seedRecord(t, reg, "abc")
	handler := newTestServer(testConfig(), reg, nil)

	code, resp := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "OK", resp["status"])
	require.Equal(t, float64(1), resp["files"])
}

func TestUnknownAPIRoute(t *testing.T) {
	handler := newTestServer(testConfig(), registry.New(1000), nil)

	code, resp := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "API endpoint not found", resp["error"])
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestServer(testConfig(), registry.New(1000), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/upload", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestExpiredRecordSurfacesExpiry(t *testing.T) {
	reg := registry.New(1000)
	expiry := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	require.NoError(t, reg.Insert(&model.UploadRecord{
		ID: "tmp", OriginalName: "tmp.txt", Service: "file.io",
		UploadDate: time.Now().UTC(), Expiry: &expiry,
	}))
	handler := newTestServer(testConfig(), reg, nil)

	code, resp := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/api/files/tmp", nil))
	require.Equal(t, http.StatusOK, code)
	file := resp["file"].(map[string]interface{})
	require.Equal(t, expiry.Format(time.RFC3339), file["expiry"])
}

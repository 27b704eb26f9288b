// Package api exposes the HTTP endpoints for uploads and file metadata.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/RelayDrop/internal/config"
	"github.com/dharsanguruparan/RelayDrop/internal/model"
	"github.com/dharsanguruparan/RelayDrop/internal/provider"
	"github.com/dharsanguruparan/RelayDrop/internal/queue"
	"github.com/dharsanguruparan/RelayDrop/internal/registry"
	"github.com/dharsanguruparan/RelayDrop/internal/upload"
)

// Server routes client requests to the orchestrator and the registry.
type Server struct {
	cfg      *config.Config
	reg      *registry.Registry
	orch     *upload.Orchestrator
	queue    *asynq.Client
	deleters map[string]provider.Deleter
	server   *http.Server
	once     sync.Once
}

// New constructs a Server. queueClient may be nil; remote cleanup then runs
// inline instead of through the worker.
func New(cfg *config.Config, reg *registry.Registry, orch *upload.Orchestrator, queueClient *asynq.Client, deleters map[string]provider.Deleter) *Server {
	return &Server{
		cfg:      cfg,
		reg:      reg,
		orch:     orch,
		queue:    queueClient,
		deleters: deleters,
	}
}

// Handler builds the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/files", s.handleFiles)
	mux.HandleFunc("/api/files/", s.handleFileRoute)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/test", s.handleTest)
	mux.HandleFunc("/api/", s.handleNotFound)
	return corsMiddleware(loggingMiddleware(recoverMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.Handler(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	log.Printf("api listening on %s", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type uploadResponse struct {
	Success   bool   `json:"success"`
	URL       string `json:"url"`
	DirectURL string `json:"directUrl"`
	FileID    string `json:"fileId"`
	Service   string `json:"service"`
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSize"`
	Message   string `json:"message"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer part.Close()
	payload, err := io.ReadAll(part)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusBadRequest, s.sizeLimitMessage())
			return
		}
		respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	fileName := part.FileName()
	if fileName == "" {
		fileName = "upload.bin"
	}
	mimeType := part.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	result, err := s.orch.Upload(r.Context(), payload, fileName, mimeType)
	if err != nil {
		s.respondUploadError(w, err)
		return
	}

	rec := &model.UploadRecord{
		ID:             uuid.NewString(),
		OriginalName:   fileName,
		URL:            result.Outcome.URL,
		DirectURL:      result.Outcome.DirectURL,
		Size:           int64(len(payload)),
		MimeType:       mimeType,
		Service:        result.Service,
		ProviderFileID: result.Outcome.ProviderFileID,
		UploadDate:     time.Now().UTC(),
		Expiry:         result.Outcome.Expiry,
	}
	if err := s.reg.Insert(rec); err != nil {
		log.Printf("insert record %s: %v", rec.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to store file metadata")
		return
	}
	log.Printf("stored %s (%d bytes) via %s, registry size %d", fileName, rec.Size, rec.Service, s.reg.Len())
	respondJSON(w, http.StatusOK, uploadResponse{
		Success:   true,
		URL:       rec.URL,
		DirectURL: rec.DirectURL,
		FileID:    rec.ID,
		Service:   rec.Service,
		FileName:  rec.OriginalName,
		FileSize:  rec.Size,
		Message:   fmt.Sprintf("File uploaded successfully via %s", rec.Service),
	})
}

func (s *Server) respondUploadError(w http.ResponseWriter, err error) {
	var sizeErr *upload.SizeLimitError
	var chainErr *upload.ChainError
	switch {
	case errors.Is(err, upload.ErrNoFile):
		respondError(w, http.StatusBadRequest, "No file uploaded")
	case errors.As(err, &sizeErr):
		respondError(w, http.StatusBadRequest, s.sizeLimitMessage())
	case errors.As(err, &chainErr):
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "All storage services are currently busy. Please try again later.",
			"details": chainErr.Attempts,
		})
	default:
		log.Printf("upload error: %v", err)
		respondError(w, http.StatusInternalServerError, "upload failed")
	}
}

func (s *Server) sizeLimitMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %d MB", s.cfg.MaxUploadSize>>20)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	search := r.URL.Query().Get("search")
	result := s.reg.List(page, limit, search, s.cfg.SearchMinLength)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"files":      result.Files,
		"total":      result.Total,
		"page":       result.Page,
		"totalPages": result.TotalPages,
		"limit":      result.Limit,
	})
}

func (s *Server) handleFileRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/files/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		s.handleNotFound(w, r)
		return
	}
	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleFileInfo(w, r, id)
		case http.MethodDelete:
			s.handleFileDelete(w, r, id)
		default:
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}
	if parts[1] == "download" && r.Method == http.MethodPost {
		s.handleFileDownload(w, r, id)
		return
	}
	s.handleNotFound(w, r)
}

func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.reg.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"file":    rec.Detail(),
	})
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.reg.Delete(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}
	s.dispatchCleanup(rec)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "File removed from registry",
		"file": map[string]string{
			"id":   rec.ID,
			"name": rec.OriginalName,
		},
	})
}

// dispatchCleanup asks the storing host to drop its copy. The local delete
// already succeeded, so failures here are logged and swallowed.
func (s *Server) dispatchCleanup(rec *model.UploadRecord) {
	if s.queue != nil {
		payload := queue.CleanupPayload{
			FileID:         rec.ID,
			Service:        rec.Service,
			ProviderFileID: rec.ProviderFileID,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queue.EnqueueCleanup(ctx, s.queue, payload); err != nil {
			log.Printf("enqueue cleanup for %s: %v", rec.ID, err)
		}
		return
	}
	deleter, ok := s.deleters[rec.Service]
	if !ok || rec.ProviderFileID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := deleter.Delete(ctx, rec.ProviderFileID); err != nil {
			log.Printf("remote cleanup failed for %s on %s: %v", rec.ID, rec.Service, err)
		}
	}()
}

func (s *Server) handleFileDownload(w http.ResponseWriter, r *http.Request, id string) {
	count, err := s.reg.IncrementDownloads(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"downloads": count,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   s.reg.Stats(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"files":     s.reg.Len(),
	})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "API is up and running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "API endpoint not found")
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

// recoverMiddleware is the outermost safety net: anything unexpected becomes
// a generic JSON 500 instead of a dropped connection.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				respondError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

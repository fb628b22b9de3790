// Package api provides the HTTP server and handlers.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/filecrate/filecrate/internal/config"
	"github.com/filecrate/filecrate/internal/errs"
	"github.com/filecrate/filecrate/internal/events"
	"github.com/filecrate/filecrate/internal/gallery"
	"github.com/filecrate/filecrate/internal/logging"
	"github.com/filecrate/filecrate/internal/metrics"
	"github.com/filecrate/filecrate/internal/ratelimit"
	"github.com/filecrate/filecrate/internal/vfs"
)

// Server is the HTTP server.
type Server struct {
	store       *vfs.Store
	gallery     *gallery.Service
	broadcaster *events.Broadcaster
	limiter     *ratelimit.Limiter
	rateLimit   int
}

// NewServer creates a new server.
func NewServer(store *vfs.Store, galleryService *gallery.Service, broadcaster *events.Broadcaster, limiter *ratelimit.Limiter, cfg *config.Config) *Server {
	return &Server{
		store:       store,
		gallery:     galleryService,
		broadcaster: broadcaster,
		limiter:     limiter,
		rateLimit:   cfg.RateLimitPerMin,
	}
}

// Handler returns the HTTP handler with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Read endpoints
	mux.HandleFunc("GET /api/v1/files/{key}", s.handleList)
	mux.HandleFunc("GET /api/v1/files/{key}/download", s.handleDownload)
	mux.HandleFunc("GET /api/v1/gallery/{key}", s.handleGallery)

	// Write endpoints (rate limited per resource key)
	mux.Handle("POST /api/v1/files/{key}/upload", s.withRateLimit(s.handleUpload))
	mux.Handle("POST /api/v1/files/{key}/folder", s.withRateLimit(s.handleCreateFolder))
	mux.Handle("POST /api/v1/files/{key}/shortcut", s.withRateLimit(s.handleCreateShortcut))
	mux.Handle("DELETE /api/v1/files/{key}", s.withRateLimit(s.handleDelete))
	mux.Handle("POST /api/v1/files/{key}/trash", s.withRateLimit(s.handleMoveToTrash))
	mux.Handle("POST /api/v1/files/{key}/restore", s.withRateLimit(s.handleRestore))

	// SSE endpoint
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)

	return logging.Middleware(metrics.Middleware(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": "1.0"})
}

// ─── Listing ────────────────────────────────────────────────────────────────

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	path := r.URL.Query().Get("path")

	start := time.Now()
	res, err := s.store.List(r.Context(), key, path)
	metrics.RecordStorageOp("list", time.Since(start), err)
	if err != nil {
		s.sendError(w, httpStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// ─── Upload ─────────────────────────────────────────────────────────────────

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	path := r.URL.Query().Get("path")

	mr, err := r.MultipartReader()
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "multipart body required")
		return
	}

	// Parts are only readable sequentially, so each file is handed to the
	// store as its own call: a stream plus its declared length.
	var items []vfs.Item
	fileCount := 0
	start := time.Now()
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			metrics.RecordStorageOp("upload", time.Since(start), err)
			s.sendError(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		if part.FileName() == "" {
			continue
		}
		fileCount++

		declared := int64(-1)
		if cl := part.Header.Get("Content-Length"); cl != "" {
			if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
				declared = n
			}
		}

		cr := &countingReader{r: part}
		uploaded, err := s.store.Upload(r.Context(), key, path, []vfs.UploadFile{
			{Name: part.FileName(), Size: declared, Content: cr},
		})
		metrics.RecordUpload(cr.n)
		if err != nil {
			metrics.RecordStorageOp("upload", time.Since(start), err)
			s.sendError(w, httpStatus(err), err.Error())
			return
		}
		items = append(items, uploaded...)
	}
	if fileCount == 0 {
		err := errs.New(errs.KindInvalidArgument, "no files to upload")
		metrics.RecordStorageOp("upload", time.Since(start), err)
		s.sendError(w, httpStatus(err), err.Error())
		return
	}
	metrics.RecordStorageOp("upload", time.Since(start), nil)

	for _, item := range items {
		s.publishEvent(events.EventUpload, key, item.RelativePath, 0)
	}
	logging.Info("files uploaded",
		zap.String("resource", key),
		zap.String("path", path),
		zap.Int("count", len(items)))

	if items == nil {
		items = []vfs.Item{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": fmt.Sprintf("%d file(s) uploaded", len(items)),
		"items":   items,
	})
}

// ─── Download ───────────────────────────────────────────────────────────────

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	path := r.URL.Query().Get("path")

	start := time.Now()
	reader, contentType, name, err := s.store.Download(r.Context(), key, path)
	metrics.RecordStorageOp("download", time.Since(start), err)
	if err != nil {
		s.sendError(w, httpStatus(err), err.Error())
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)

	n, err := io.Copy(w, reader)
	if err != nil {
		logging.Warn("download transfer error",
			zap.String("resource", key),
			zap.String("path", path),
			zap.Error(err))
	}
	metrics.RecordDownload(n)
}

// ─── Folder / Shortcut ──────────────────────────────────────────────────────

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req struct {
		Path string `json:"path"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	item, err := s.store.CreateFolder(r.Context(), key, req.Path, req.Name)
	metrics.RecordStorageOp("create_folder", time.Since(start), err)
	if err != nil {
		s.sendError(w, httpStatus(err), err.Error())
		return
	}

	s.publishEvent(events.EventCreate, key, item.RelativePath, 0)
	logging.Info("folder created",
		zap.String("resource", key),
		zap.String("path", item.RelativePath))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "folder created",
		"item":    item,
	})
}

func (s *Server) handleCreateShortcut(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req struct {
		Path string `json:"path"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	item, err := s.store.CreateShortcut(r.Context(), key, req.Path, req.Name, req.URL)
	metrics.RecordStorageOp("create_shortcut", time.Since(start), err)
	if err != nil {
		s.sendError(w, httpStatus(err), err.Error())
		return
	}

	s.publishEvent(events.EventCreate, key, item.RelativePath, 0)
	logging.Info("shortcut created",
		zap.String("resource", key),
		zap.String("path", item.RelativePath))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "shortcut created",
		"item":    item,
	})
}

// ─── Delete / Trash / Restore ───────────────────────────────────────────────

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	path := r.URL.Query().Get("path")

	start := time.Now()
	err := s.store.Delete(r.Context(), key, path)
	metrics.RecordStorageOp("delete", time.Since(start), err)
	if err != nil {
		s.sendError(w, httpStatus(err), err.Error())
		return
	}

	s.publishEvent(events.EventDelete, key, path, 0)
	logging.Info("deleted permanently",
		zap.String("resource", key),
		zap.String("path", path))

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveToTrash(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.store.MoveToTrash(r.Context(), key, req.Path)
	metrics.RecordTrashOp("trash", err)
	if err != nil {
		s.sendError(w, httpStatus(err), err.Error())
		return
	}

	s.publishEvent(events.EventTrash, key, req.Path, 0)
	logging.Info("moved to trash",
		zap.String("resource", key),
		zap.String("path", req.Path))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"path":    req.Path,
		"trashed": true,
	})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.store.RestoreFromTrash(r.Context(), key, req.Path)
	metrics.RecordTrashOp("restore", err)
	if err != nil {
		s.sendError(w, httpStatus(err), err.Error())
		return
	}

	s.publishEvent(events.EventRestore, key, req.Path, 0)
	logging.Info("restored from trash",
		zap.String("resource", key),
		zap.String("path", req.Path))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"path":     req.Path,
		"restored": true,
	})
}

// ─── Gallery ────────────────────────────────────────────────────────────────

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	years, err := s.gallery.Browse(r.Context(), key)
	if err != nil {
		s.sendError(w, httpStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"years": years,
	})
}

// ─── SSE Events ─────────────────────────────────────────────────────────────

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.sendError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := events.MarshalEvent(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

func (s *Server) publishEvent(eventType, key, path string, size int64) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Publish(events.Event{
		Type:     eventType,
		Resource: vfs.SanitizeKey(key),
		Path:     path,
		Size:     size,
	})
}

// ─── Rate limiting ──────────────────────────────────────────────────────────

// withRateLimit enforces the per-resource write rate limit.
func (s *Server) withRateLimit(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && s.rateLimit > 0 {
			resource := vfs.SanitizeKey(r.PathValue("key"))
			if !s.limiter.Allow(resource, s.rateLimit) {
				retryAfter := s.limiter.RetryAfter(resource, s.rateLimit)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				s.sendError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next(w, r)
	})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// countingReader counts bytes as they are consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

func httpStatus(err error) int {
	switch errs.KindOf(err) {
	case errs.KindInvalidArgument, errs.KindInvalidOperation:
		return http.StatusBadRequest
	case errs.KindAccessDenied:
		return http.StatusForbidden
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": message,
		"code":  code,
	})
}

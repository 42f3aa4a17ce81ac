package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/history"
	"github.com/KaramelBytes/datalens-cli/internal/loader"
	"github.com/KaramelBytes/datalens-cli/internal/profile"
	"github.com/KaramelBytes/datalens-cli/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Config configures the HTTP surface.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	Load           loader.Options
	Profile        profile.Options
	// History, when set, persists every profiled upload.
	History *history.Store
	Logger  *zap.Logger
}

// Server exposes profiling over HTTP.
type Server struct {
	cfg    Config
	router chi.Router
	log    *zap.Logger
}

func New(cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, router: chi.NewRouter(), log: cfg.Logger}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(allowCORS())
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Post("/upload", s.handleUpload)
	if s.cfg.History != nil {
		s.router.Get("/history", s.handleHistoryList)
		s.router.Get("/history/{id}", s.handleHistoryGet)
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "datalens profiler is running"})
}

type uploadResponse struct {
	Message string          `json:"message"`
	ID      string          `json:"id,omitempty"`
	Profile *profile.Result `json:"profile"`
}

type sourceResponse struct {
	Message  string `json:"message"`
	File     string `json:"file"`
	Type     string `json:"type"`
	Lines    int    `json:"lines"`
	NonBlank int    `json:"non_blank"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with a \"file\" field")
		return
	}
	defer r.MultipartForm.RemoveAll()
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing \"file\" field")
		return
	}
	defer file.Close()
	name := filepath.Base(hdr.Filename)
	format := r.URL.Query().Get("format")

	if loader.IsSource(name) {
		src, err := loader.ReadSource(name, file)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if format == "markdown" {
			writeText(w, "text/markdown; charset=utf-8", []byte(report.SourceMarkdown(src)))
			return
		}
		writeJSON(w, http.StatusOK, sourceResponse{
			Message: "Source file documented", File: src.Name, Type: src.Language,
			Lines: src.Lines, NonBlank: src.NonBlank,
		})
		return
	}

	ds, err := loader.LoadReader(name, file, s.cfg.Load)
	if err != nil {
		s.writeProfileError(w, r, name, err)
		return
	}
	res, err := profile.Profile(ds, s.cfg.Profile)
	if err != nil {
		s.writeProfileError(w, r, name, err)
		return
	}

	out := uploadResponse{Message: "File processed successfully", Profile: res}
	if s.cfg.History != nil {
		rec := history.NewRecord(name, res)
		if err := s.cfg.History.Save(rec); err != nil {
			s.log.Warn("history save failed", zap.String("file", name), zap.Error(err))
		} else {
			out.ID = rec.ID
			w.Header().Set("X-Profile-ID", rec.ID)
		}
	}

	switch format {
	case "markdown":
		writeText(w, "text/markdown; charset=utf-8", []byte(report.Markdown(res)))
	case "html":
		writeText(w, "text/html; charset=utf-8", report.HTML(report.Markdown(res)))
	default:
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) writeProfileError(w http.ResponseWriter, r *http.Request, name string, err error) {
	status := http.StatusBadRequest
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, dataset.ErrUnsupportedFormat):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, dataset.ErrEmptyDataset):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, profile.ErrInvalidOptions):
		status = http.StatusInternalServerError
	}
	s.log.Info("upload rejected",
		zap.String("file", name),
		zap.Int("status", status),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeError(w, status, err.Error())
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	list, err := s.cfg.History.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if list == nil {
		list = []history.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cfg.History.Load(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// writeJSON marshals v first; a marshal failure is answered with a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("encode response: %v", err)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeText(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

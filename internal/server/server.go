// Package server exposes batch analysis and the follow-up dashboard over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/followup-cli/internal/lead"
	"github.com/sells-group/followup-cli/internal/model"
	"github.com/sells-group/followup-cli/internal/pipeline"
	"github.com/sells-group/followup-cli/internal/report"
	"github.com/sells-group/followup-cli/internal/sheet"
)

// Config configures the HTTP layer.
type Config struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	HiddenPhases   []string
	Concurrency    int
}

// Server handles batch uploads and dashboard queries.
type Server struct {
	advisor  pipeline.Advisor
	registry *Registry
	cfg      Config
}

// New creates a Server that analyzes uploads with advisor and keeps the
// results in registry.
func New(advisor pipeline.Advisor, registry *Registry, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 16 << 20
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{advisor: advisor, registry: registry, cfg: cfg}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/batches", func(r chi.Router) {
		r.Post("/", s.createBatch)
		r.Get("/{id}", s.getBatch)
		r.Get("/{id}/owners/{owner}", s.getOwner)
		r.Get("/{id}/report", s.getReport)
	})

	return r
}

func (s *Server) createBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close() //nolint:errcheck

	opts := sheet.Options{SheetName: r.FormValue("sheet")}
	if v := r.FormValue("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		opts.Limit = n
	}

	tbl, err := sheet.Parse(header.Filename, file, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := pipeline.New(s.advisor, pipeline.Options{Concurrency: s.cfg.Concurrency, Source: header.Filename})
	batch, err := p.Run(r.Context(), tbl.Records())
	if err != nil {
		var se *lead.SchemaError
		if errors.As(err, &se) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":           se.Error(),
				"missing_columns": se.Missing,
			})
			return
		}
		zap.L().Warn("server: batch interrupted", zap.String("file", header.Filename), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "batch interrupted")
		return
	}

	s.registry.Put(batch)
	zap.L().Info("server: batch stored",
		zap.String("batch_id", batch.ID),
		zap.String("file", header.Filename),
		zap.Int("rows", batch.Summary.Total),
	)
	writeJSON(w, http.StatusCreated, report.Dashboard(batch, s.reportOptions(r)))
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.Dashboard(batch, s.reportOptions(r)))
}

func (s *Server) getOwner(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	opts := s.reportOptions(r)
	opts.Owner = ""
	g, found := report.Dashboard(batch, opts).Owner(chi.URLParam(r, "owner"))
	if !found {
		writeError(w, http.StatusNotFound, "owner not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	opts := s.reportOptions(r)

	switch format := r.URL.Query().Get("format"); format {
	case "", "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		if err := report.WriteMarkdown(w, batch, opts); err != nil {
			zap.L().Error("server: write markdown report", zap.Error(err))
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="followup-`+batch.ID+`.xlsx"`)
		if err := report.WriteXLSX(w, batch, opts); err != nil {
			zap.L().Error("server: write xlsx report", zap.Error(err))
		}
	default:
		writeError(w, http.StatusBadRequest, "format must be md or xlsx")
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*model.Batch, bool) {
	batch, ok := s.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "batch not found")
	}
	return batch, ok
}

// reportOptions reads ?owner= and ?all=true (show hidden phases).
func (s *Server) reportOptions(r *http.Request) report.Options {
	q := r.URL.Query()
	opts := report.Options{Owner: strings.TrimSpace(q.Get("owner"))}
	if all, _ := strconv.ParseBool(q.Get("all")); !all {
		opts.HiddenPhases = s.cfg.HiddenPhases
	}
	return opts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tierdb/pkg/compaction"
	"tierdb/pkg/metrics"
	"tierdb/pkg/sstable"
)

const (
	contentTypeJSON        = "application/json"
	defaultHTTPPort        = "8080"
	defaultShutdownTimeout = time.Second * 5
)

type iRegistry interface {
	NextID() uint64
	Add(t *sstable.SSTable)
	Get(id uint64) (*sstable.SSTable, bool)
	All() []*sstable.SSTable
	Snapshot() []compaction.Table
}

type iStrategy interface {
	SelectCandidates(tables []compaction.Table) []compaction.Table
}

// Server exposes the admin API: table registration, read marking, and
// a read-only peek at what the strategy would compact next.
type Server struct {
	registry   iRegistry
	strategy   iStrategy
	collector  *metrics.Collector
	httpServer *http.Server
	URL        string
	addr       string
}

// NewServer creates a new admin server instance.
func NewServer(registry iRegistry, strategy iStrategy, collector *metrics.Collector, port string) *Server {
	if port == "" {
		port = defaultHTTPPort
	}
	return &Server{
		registry:  registry,
		strategy:  strategy,
		collector: collector,
		URL:       "http://localhost:" + port,
		addr:      ":" + port,
	}
}

// Start starts the server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.createRouter(),
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("HTTP server started", "addr", s.URL)
	return nil
}

// Stop stops the server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// createRouter builds chi router
func (s *Server) createRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/api/tables", s.handleListTables)
	r.Post("/api/tables", s.handleAddTable)
	r.Post("/api/tables/{id}/reads", s.handleMarkReads)
	r.Get("/api/compaction/next", s.handleNextCandidates)

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Error encoding response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.collector.Counters())
}

func tableInfo(t *sstable.SSTable) TableInfo {
	info := TableInfo{
		ID:            t.ID(),
		Path:          t.Path(),
		SizeBytes:     t.Size(),
		EstimatedKeys: t.EstimatedKeys(),
	}
	if m := t.ReadMeter(); m != nil {
		info.ReadRate = m.TwoHourRate()
	}
	return info
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables := s.registry.All()
	infos := make([]TableInfo, len(tables))
	for i, t := range tables {
		infos[i] = tableInfo(t)
	}
	s.writeJSON(w, http.StatusOK, NewTablesResponse(infos))
}

type addTableRequest struct {
	Path          string `json:"path"`
	SizeBytes     int64  `json:"size_bytes"`
	EstimatedKeys int64  `json:"estimated_keys"`
}

func (s *Server) handleAddTable(w http.ResponseWriter, r *http.Request) {
	var req addTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}

	if req.SizeBytes < 0 {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("size_bytes must be non-negative"))
		return
	}

	t := sstable.New(s.registry.NextID(), req.Path, req.SizeBytes, req.EstimatedKeys)
	s.registry.Add(t)

	s.writeJSON(w, http.StatusOK, NewTableResponse(tableInfo(t)))
}

func (s *Server) handleMarkReads(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("invalid table id"))
		return
	}

	t, ok := s.registry.Get(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, NewErrorResponse("table not found"))
		return
	}

	count := int64(1)
	if raw := r.URL.Query().Get("count"); raw != "" {
		count, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || count < 1 {
			s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("invalid count"))
			return
		}
	}

	t.MarkRead(count)
	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}

// handleNextCandidates reports what the strategy would pick right now.
// It does not claim anything; the controller owns claiming.
func (s *Server) handleNextCandidates(w http.ResponseWriter, r *http.Request) {
	candidates := s.strategy.SelectCandidates(s.registry.Snapshot())

	infos := make([]TableInfo, 0, len(candidates))
	for _, t := range candidates {
		if st, ok := t.(*sstable.SSTable); ok {
			infos = append(infos, tableInfo(st))
		}
	}
	s.writeJSON(w, http.StatusOK, NewTablesResponse(infos))
}

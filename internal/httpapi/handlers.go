package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gateguard/gateguard/internal/engine"
	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/output"
	"github.com/gateguard/gateguard/internal/providers/elastic"
	"github.com/gateguard/gateguard/internal/sensitive"
	"github.com/gateguard/gateguard/internal/traffic"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleOverview answers from the configuration store alone, so it stays
// fast when the log stores are slow or down.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.PolicyStatistics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, stats)
}

func (s *Server) handleListAPIs(w http.ResponseWriter, r *http.Request) {
	apis, err := s.store.ListAPIs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, apis)
}

func (s *Server) handleAPIDetail(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.FetchConfiguration(r.Context(), chi.URLParam(r, "apiID"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "API not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, cfg)
}

func (s *Server) handleIPGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.IPGroups(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, groups)
}

// resolveLogs looks up the named log-store connection, answering the request
// itself when the name is unknown or the registry cannot load.
func (s *Server) resolveLogs(ctx context.Context, w http.ResponseWriter, name string) (LogStore, bool) {
	logStore, err := s.logs.Resolve(ctx, name)
	if err != nil {
		if errors.Is(err, elastic.ErrUnknownConnection) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Elasticsearch %s not found", name))
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return logStore, true
}

// buildAssessment runs a full assessment against one log-store connection.
func (s *Server) buildAssessment(ctx context.Context, apiID string, rng models.DateRange, logStore LogStore, esName string) (*models.Assessment, error) {
	assessor := engine.NewAssessor(s.store, logStore, sensitive.NewScanner(logStore, s.keywords), s.scorer)
	a, err := assessor.Assess(ctx, engine.AssessOptions{APIID: apiID, Window: rng, SampleSize: s.sampleSize})
	if err != nil {
		return nil, err
	}
	a.Elasticsearch = esName
	return a, nil
}

func (s *Server) writeAssessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "API not found")
	case errors.Is(err, traffic.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	rng, err := s.dateRange(r.URL.Query(), s.defaultRangeDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	esName := s.connectionName(r.URL.Query())
	logStore, ok := s.resolveLogs(r.Context(), w, esName)
	if !ok {
		return
	}

	a, err := s.buildAssessment(r.Context(), chi.URLParam(r, "apiID"), rng, logStore, esName)
	if err != nil {
		s.writeAssessError(w, err)
		return
	}
	writeData(w, a)
}

func (s *Server) handleTrafficStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := s.dateRange(q, s.defaultRangeDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	esName := s.connectionName(q)
	logStore, ok := s.resolveLogs(r.Context(), w, esName)
	if !ok {
		return
	}

	assessor := engine.NewAssessor(s.store, logStore, nil, s.scorer)
	stats, err := assessor.TrafficOverview(r.Context(), q.Get("api_id"), rng)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeData(w, map[string]any{
		"date_range":    rng,
		"elasticsearch": esName,
		"stats":         stats,
	})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := s.dateRange(q, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	esName := s.connectionName(q)
	interval := q.Get("interval")
	if interval == "" {
		interval = "1h"
	}
	logStore, ok := s.resolveLogs(r.Context(), w, esName)
	if !ok {
		return
	}

	apiID := chi.URLParam(r, "apiID")
	timeline, err := logStore.FetchTimeline(r.Context(), apiID, rng.Start, rng.End, interval)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeData(w, map[string]any{
		"api_id":   apiID,
		"timeline": timeline,
	})
}

func (s *Server) handleSensitiveFields(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	esName := s.connectionName(q)
	logStore, ok := s.resolveLogs(r.Context(), w, esName)
	if !ok {
		return
	}

	sample := s.sampleSize
	if v := q.Get("sample_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid sample_size %q", v))
			return
		}
		sample = n
	}

	exposure := sensitive.NewScanner(logStore, s.keywords).Scan(r.Context(), chi.URLParam(r, "apiID"), sample)
	writeData(w, exposure)
}

func (s *Server) handleHourlyDistribution(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := s.dateRange(q, s.defaultRangeDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	esName := s.connectionName(q)
	logStore, ok := s.resolveLogs(r.Context(), w, esName)
	if !ok {
		return
	}

	dist, err := logStore.FetchHourlyDistribution(r.Context(), chi.URLParam(r, "apiID"), rng.Start, rng.End)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, dist)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if output.ContentType(format) == "" {
		writeError(w, http.StatusBadRequest, "Invalid format. Use json, csv, html or excel")
		return
	}

	q := r.URL.Query()
	rng, err := s.dateRange(q, s.defaultRangeDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	esName := s.connectionName(q)
	logStore, ok := s.resolveLogs(r.Context(), w, esName)
	if !ok {
		return
	}

	a, err := s.buildAssessment(r.Context(), chi.URLParam(r, "apiID"), rng, logStore, esName)
	if err != nil {
		s.writeAssessError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := output.Export(&buf, format, a); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := output.ReportFilename(a.APIName, format, time.Now())
	w.Header().Set("Content-Type", output.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("httpapi: writing export: %v", err)
	}
}

type shareRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	ESName    string `json:"es_name"`
}

// handleShare renders the report, uploads it to the archive and returns a
// time-limited download link.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	if s.archiver == nil {
		writeError(w, http.StatusServiceUnavailable, "report sharing is not configured")
		return
	}

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q := url.Values{}
	if req.StartDate != "" {
		q.Set("start_date", req.StartDate)
	}
	if req.EndDate != "" {
		q.Set("end_date", req.EndDate)
	}
	rng, err := s.dateRange(q, s.defaultRangeDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	esName := req.ESName
	if esName == "" {
		esName = s.defaultConn
	}
	logStore, ok := s.resolveLogs(r.Context(), w, esName)
	if !ok {
		return
	}

	a, err := s.buildAssessment(r.Context(), chi.URLParam(r, "apiID"), rng, logStore, esName)
	if err != nil {
		s.writeAssessError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := output.WriteJSON(&buf, a); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	key := fmt.Sprintf("reports/%s.json", a.ReportID)
	shareURL, err := s.archiver.Store(r.Context(), key, &buf, output.ContentType(output.FormatJSON))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeData(w, map[string]any{
		"share_url": shareURL,
		"api_name":  a.APIName,
		"report_id": a.ReportID,
	})
}

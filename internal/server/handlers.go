package server

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"FeedWatcher/internal/domain"
	"FeedWatcher/internal/infrastructure/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleScanSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceName string `json:"source_name"`
		StartPage  int    `json:"start_page"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SourceName == "" {
		writeError(w, http.StatusBadRequest, "source_name is required")
		return
	}
	if req.StartPage < 1 {
		req.StartPage = 1
	}

	sessionID, err := s.pipeline.ScanSource(req.SourceName, req.StartPage)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "scan_started",
		"session_id":  sessionID,
		"source_name": req.SourceName,
		"start_page":  req.StartPage,
	})
}

func (s *Server) handleScanAllSources(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceNames []string `json:"source_names"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	names := req.SourceNames
	if len(names) == 0 {
		for _, src := range s.sources.List() {
			names = append(names, src.Name)
		}
	}

	count, err := s.pipeline.ScanAll(names)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "scan_started",
		"count":  count,
	})
}

func (s *Server) handlePauseScan(w http.ResponseWriter, _ *http.Request) {
	s.pipeline.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResumeScan(w http.ResponseWriter, _ *http.Request) {
	s.pipeline.Resume()
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *Server) handleCancelScan(w http.ResponseWriter, _ *http.Request) {
	s.pipeline.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (s *Server) handleResumeOperations(w http.ResponseWriter, _ *http.Request) {
	if !s.pipeline.ResumeOperations() {
		writeError(w, http.StatusConflict, "operations are not rate-limit paused")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "operations_resumed"})
}

func (s *Server) handleGetPatterns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"patterns": s.patterns.Configs()})
}

func (s *Server) handleSetPatterns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Patterns []domain.PatternConfig `json:"patterns"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	accepted := s.patterns.Replace(req.Patterns)
	s.logger.Info("pattern registry replaced via api", "accepted", accepted, "submitted", len(req.Patterns))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "patterns_updated",
		"accepted": accepted,
	})
}

func (s *Server) handleValidateRegex(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pattern string `json:"pattern"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := regexp.Compile(req.Pattern); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (s *Server) handleGetSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sources": s.sources.List()})
}

func (s *Server) handleSetSources(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sources []domain.SourceConfig `json:"sources"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	accepted := s.sources.Replace(req.Sources)
	s.logger.Info("source registry replaced via api", "accepted", accepted, "submitted", len(req.Sources))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "sources_updated",
		"accepted": accepted,
	})
}

func (s *Server) handleSourceTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": sourceTemplates()})
}

// matchRecord is the listing view of a stored record. Embeddings are
// internal and never leave the API.
type matchRecord struct {
	ID         string `json:"id"`
	SourceName string `json:"source_name"`
	By         string `json:"by"`
	Time       int64  `json:"time"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Text       string `json:"text"`
	Label      string `json:"matched_label"`
	AISummary  string `json:"ai_summary"`
	UpdatedAt  string `json:"updated_at"`
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	opts := storage.ListOptions{
		Page:     page,
		PerPage:  perPage,
		SortBy:   q.Get("sort_by"),
		SortDesc: q.Get("order") != "asc",
		Query:    q.Get("q"),
	}
	if raw := q.Get("sources"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				opts.SourceNames = append(opts.SourceNames, name)
			}
		}
	}

	records, total, err := s.store.List(r.Context(), opts)
	if err != nil {
		s.logger.Error("matches query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	items := make([]matchRecord, 0, len(records))
	for _, rec := range records {
		items = append(items, matchRecord{
			ID:         rec.ID,
			SourceName: rec.SourceName,
			By:         rec.By,
			Time:       rec.Time.Unix(),
			Title:      rec.Title,
			URL:        rec.URL,
			Text:       rec.Text,
			Label:      rec.Label,
			AISummary:  rec.AISummary,
			UpdatedAt:  rec.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"total":    total,
		"page":     opts.Page,
		"per_page": opts.PerPage,
	})
}

func (s *Server) handleSendToSlack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}
	if s.webhookURL == "" {
		writeError(w, http.StatusServiceUnavailable, "slack webhook is not configured")
		return
	}

	rec, found, err := s.store.Get(r.Context(), req.ID)
	if err != nil {
		s.logger.Error("record lookup failed", "id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no record for id "+req.ID)
		return
	}

	item := domain.Item{
		ID:           rec.ID,
		SourceName:   rec.SourceName,
		By:           rec.By,
		Time:         rec.Time.Unix(),
		Title:        rec.Title,
		URL:          rec.URL,
		Text:         rec.Text,
		MatchedLabel: rec.Label,
	}
	if err := s.notifier.Notify(r.Context(), s.webhookURL, item, rec.AISummary); err != nil {
		s.logger.Error("slack notification failed", "id", req.ID, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "id": req.ID})
}

func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	daily, err := s.stats.DailyStatsFor(day)
	if err != nil {
		s.logger.Error("daily stats query failed", "date", day, "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, daily)
}

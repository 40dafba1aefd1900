package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-insights/internal/fetcher"
	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/internal/store"
)

type createRunRequest struct {
	Topics    []string        `json:"topics"`
	Domain    string          `json:"domain"`
	TimeRange model.TimeRange `json:"time_range"`
}

type createRunResponse struct {
	ID     string          `json:"id"`
	Status model.RunStatus `json:"status"`
}

type runListResponse struct {
	Runs  []model.Run `json:"runs"`
	Total int         `json:"total"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateRun accepts either JSON or a multipart upload with a "file"
// sheet plus "domain" and "time_range" fields. With a file, optional
// "topics" fields pick which of its topics to run.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRunRequest(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var topics []string
	for _, t := range req.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	req.Topics = topics
	if len(req.Topics) == 0 {
		respondError(w, http.StatusBadRequest, "at least one topic is required")
		return
	}
	if !req.TimeRange.Valid() {
		respondError(w, http.StatusBadRequest, "time_range must be one of hour, day, week, month, year")
		return
	}

	if !s.track() {
		respondError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	run, err := s.store.CreateRun(r.Context(), req)
	if err != nil {
		s.wg.Done()
		zap.L().Error("server: create run", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	go func() {
		defer s.wg.Done()
		log := zap.L().With(zap.String("run_id", run.ID))
		insights, err := s.runner.RunTracked(s.baseCtx, s.store, run.ID, req, nil)
		if err != nil {
			log.Error("server: run failed", zap.Error(err))
			return
		}
		log.Info("server: run complete", zap.Int("insights", insights.Count()))
	}()

	respondJSON(w, http.StatusAccepted, createRunResponse{ID: run.ID, Status: run.Status})
}

func (s *Server) decodeRunRequest(w http.ResponseWriter, r *http.Request) (model.RunRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var body createRunRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return model.RunRequest{}, eris.New("invalid request body")
		}
		return model.RunRequest{Topics: body.Topics, Domain: body.Domain, TimeRange: body.TimeRange}, nil
	}

	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return model.RunRequest{}, eris.New("invalid multipart form")
	}

	req := model.RunRequest{
		Domain:    strings.TrimSpace(r.FormValue("domain")),
		TimeRange: model.TimeRange(strings.TrimSpace(r.FormValue("time_range"))),
		Topics:    r.MultipartForm.Value["topics"],
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return model.RunRequest{}, eris.New("invalid file upload")
	}
	defer file.Close() //nolint:errcheck

	table, err := fetcher.ReadTable(header.Filename, file)
	if err != nil {
		return model.RunRequest{}, err
	}
	topics, err := table.Topics()
	if err != nil {
		return model.RunRequest{}, err
	}
	if req.Topics, err = selectTopics(topics, req.Topics, header.Filename); err != nil {
		return model.RunRequest{}, err
	}
	req.Source = header.Filename
	return req, nil
}

// selectTopics narrows the sheet's topics to the named ones. No names
// selects the whole sheet.
func selectTopics(all, named []string, source string) ([]string, error) {
	var out []string
	for _, t := range named {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		if !slices.Contains(all, t) {
			return nil, eris.Errorf("topic %q is not in %s", t, source)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return all, nil
	}
	return out, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Domain: q.Get("domain"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	// Listings stay small; fetch one run for its insights.
	for i := range runs {
		runs[i].Insights = nil
	}
	respondJSON(w, http.StatusOK, runListResponse{Runs: runs, Total: len(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// handleGetInsights returns the canonical topic → insights document of a
// completed run.
func (s *Server) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	if run.Status != model.RunStatusComplete {
		respondError(w, http.StatusConflict, "run is "+string(run.Status))
		return
	}
	insights := run.Insights
	if insights == nil {
		insights = model.NewTopicInsights()
	}
	respondJSON(w, http.StatusOK, insights)
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		zap.L().Error("server: get run", zap.String("run_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load run")
		return nil, false
	}
	return run, true
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

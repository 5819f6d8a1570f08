package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/discovery"
	"github.com/sells-group/leadgen-cli/internal/extraction"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/internal/synthesis"
	"github.com/sells-group/leadgen-cli/pkg/customsearch"
)

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return eris.Errorf("api: %q is not an integer", s)
	}
	*n = flexInt(v)
	return nil
}

type searchRequest struct {
	Keyword      string  `json:"keyword"`
	Region       string  `json:"region"`
	SaveToSheets bool    `json:"saveToSheets"`
	ResultCount  flexInt `json:"resultCount"`
}

type searchResponse struct {
	Success           bool                `json:"success"`
	TotalFetched      int                 `json:"totalFetched"`
	NewRecordsCount   int                 `json:"newRecordsCount"`
	SkippedDuplicates int                 `json:"skippedDuplicates"`
	Results           []customsearch.Item `json:"results"`
	SheetURL          *string             `json:"sheetUrl"`
	ReachedTarget     bool                `json:"reachedTarget"`
	StopReason        string              `json:"stopReason"`
	RunID             string              `json:"runId,omitempty"`
}

type rangeRequest struct {
	StartIndex flexInt `json:"startIndex"`
	EndIndex   flexInt `json:"endIndex"`
}

type extractResponse struct {
	Success             bool   `json:"success"`
	Processed           int    `json:"processed"`
	SuccessCount        int    `json:"successCount"`
	FailCount           int    `json:"failCount"`
	TimeoutCount        int    `json:"timeoutCount"`
	SkippedExistingData int    `json:"skippedExistingData"`
	SkippedNoLink       int    `json:"skippedNoLink"`
	DurationMs          int64  `json:"durationMs"`
	RunID               string `json:"runId,omitempty"`
	Error               string `json:"error,omitempty"`
}

type generateResponse struct {
	Success              bool   `json:"success"`
	Processed            int    `json:"processed"`
	SuccessCount         int    `json:"successCount"`
	FailCount            int    `json:"failCount"`
	SkippedExistingEmail int    `json:"skippedExistingEmail"`
	SkippedNoLinkOrName  int    `json:"skippedNoLinkOrName"`
	DurationMs           int64  `json:"durationMs"`
	RunID                string `json:"runId,omitempty"`
	Error                string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSheetCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Ledger.Count(r.Context())
	if err != nil {
		s.log.Error("sheet count failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    n,
		"sheetUrl": s.deps.SheetURL,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Keyword) == "" || strings.TrimSpace(req.Region) == "" {
		writeError(w, http.StatusBadRequest, "keyword and region are required")
		return
	}

	dreq := discovery.Request{Query: req.Keyword, Location: req.Region, Target: int(req.ResultCount)}
	run := s.deps.Discovery.Search
	if req.SaveToSheets {
		run = s.deps.Discovery.Run
	}

	res, runID, err := store.Track(r.Context(), s.deps.Runs, model.StageDiscovery, dreq, func(ctx context.Context) (*discovery.Result, error) {
		return run(ctx, dreq)
	})
	if err != nil {
		s.log.Error("search failed", zap.String("query", dreq.Text()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := searchResponse{
		Success:           true,
		TotalFetched:      res.TotalFetched,
		NewRecordsCount:   res.NewCount,
		SkippedDuplicates: res.TotalSkipped,
		Results:           res.Items,
		ReachedTarget:     res.ReachedTarget,
		StopReason:        string(res.StopReason),
		RunID:             runID,
	}
	if resp.Results == nil {
		resp.Results = []customsearch.Item{}
	}
	if res.Saved && s.deps.SheetURL != "" {
		u := s.deps.SheetURL
		resp.SheetURL = &u
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	rng, ok := decodeRange(w, r)
	if !ok {
		return
	}

	sum, runID, err := store.Track(r.Context(), s.deps.Runs, model.StageExtraction, rng, func(ctx context.Context) (*extraction.Summary, error) {
		return s.deps.Extraction.Run(ctx, rng)
	})
	if errors.Is(err, model.ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := extractResponse{Success: err == nil, RunID: runID}
	if sum != nil {
		resp.Processed = sum.Processed
		resp.SuccessCount = sum.SuccessCount
		resp.FailCount = sum.FailCount
		resp.TimeoutCount = sum.TimeoutCount
		resp.SkippedExistingData = sum.SkippedAlreadyAttempted
		resp.SkippedNoLink = sum.SkippedNoLink
		resp.DurationMs = sum.Duration.Milliseconds()
	}
	if err != nil {
		s.log.Error("extraction aborted", zap.Stringer("range", rng), zap.Error(err))
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	rng, ok := decodeRange(w, r)
	if !ok {
		return
	}

	sum, runID, err := store.Track(r.Context(), s.deps.Runs, model.StageSynthesis, rng, func(ctx context.Context) (*synthesis.Summary, error) {
		return s.deps.Synthesis.Run(ctx, rng)
	})
	if errors.Is(err, model.ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := generateResponse{Success: err == nil, RunID: runID}
	if sum != nil {
		resp.Processed = sum.Processed
		resp.SuccessCount = sum.SuccessCount
		resp.FailCount = sum.FailCount
		resp.SkippedExistingEmail = sum.SkippedAlreadyHasEmail
		resp.SkippedNoLinkOrName = sum.SkippedNoLinkOrName
		resp.DurationMs = sum.Duration.Milliseconds()
	}
	if err != nil {
		s.log.Error("email generation aborted", zap.Stringer("range", rng), zap.Error(err))
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{
		Stage:  model.Stage(q.Get("stage")),
		Status: model.RunStatus(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	runs, err := s.deps.Runs.ListRuns(r.Context(), filter)
	if err != nil {
		s.log.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}
	run, err := s.deps.Runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// decodeRange parses {startIndex,endIndex}. Both are required and 1-based.
func decodeRange(w http.ResponseWriter, r *http.Request) (model.Range, bool) {
	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return model.Range{}, false
	}
	if req.StartIndex == 0 || req.EndIndex == 0 {
		writeError(w, http.StatusBadRequest, "startIndex and endIndex are required")
		return model.Range{}, false
	}
	rng := model.Range{Start: int(req.StartIndex), End: int(req.EndIndex)}
	if err := rng.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return model.Range{}, false
	}
	return rng, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

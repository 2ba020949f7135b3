package search

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/equipfind/equipfind/internal/pkg/errors"
	"github.com/equipfind/equipfind/internal/pkg/security"
)

// Handler provides HTTP handlers for search operations.
type Handler struct {
	engine *Engine
}

// NewHandler creates a new search handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Register mounts the search routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/search", h.HandleSearch)
	mux.HandleFunc("POST /v1/search", h.HandleSearch)
	mux.HandleFunc("GET /v1/search/suggest", h.HandleSuggest)
	mux.HandleFunc("GET /v1/search/filters", h.HandleFilters)
}

// SearchResponse is the body of a search response.
type SearchResponse struct {
	Query   string   `json:"query"`
	Count   int      `json:"count"`
	Results []Result `json:"results"`
}

// SuggestResponse is the body of a suggest response.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleSearch handles GET /v1/search with query parameters and POST
// /v1/search with a JSON Request body.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var (
		req Request
		err error
	)
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteError(w, apperrors.InvalidRequestError("invalid request body: "+err.Error()))
			return
		}
	} else {
		if req, err = parseSearchQuery(r); err != nil {
			apperrors.WriteError(w, err)
			return
		}
	}

	if req.Query, err = CleanQuery(req.Query); err != nil {
		apperrors.WriteError(w, err)
		return
	}

	results, err := h.engine.Search(r.Context(), req)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:   req.Query,
		Count:   len(results),
		Results: results,
	})
}

// CleanQuery validates a caller-supplied query and strips control
// characters from it.
func CleanQuery(q string) (string, error) {
	if err := security.ValidateQuery(q); err != nil {
		return "", apperrors.ValidationError(err.Error())
	}
	return security.SanitizeQuery(q), nil
}

func parseSearchQuery(r *http.Request) (Request, error) {
	q := r.URL.Query()
	req := Request{
		Query:   q.Get("q"),
		Type:    q.Get("type"),
		Brand:   q.Get("brand"),
		Status:  q.Get("status"),
		Feature: q.Get("feature"),
	}

	if v := q.Get("floor"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, apperrors.ValidationError("floor must be an integer").WithDetail("floor", v)
		}
		req.FloorID = &n
	}
	if v := q.Get("room_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, apperrors.ValidationError("room_id must be an integer").WithDetail("room_id", v)
		}
		req.RoomID = &n
	}
	if v := q.Get("sort_by_distance"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, apperrors.ValidationError("sort_by_distance must be a boolean").WithDetail("sort_by_distance", v)
		}
		req.SortByDistance = b
	}
	if v := q.Get("max_distance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) {
			return req, apperrors.ValidationError("max_distance must be a number").WithDetail("max_distance", v)
		}
		req.MaxDistance = &f
	}
	return req, nil
}

// HandleSuggest handles GET /v1/search/suggest?q=...&limit=...
func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	q, err := CleanQuery(r.URL.Query().Get("q"))
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}
	if q == "" {
		apperrors.WriteError(w, apperrors.ValidationError("q is required"))
		return
	}

	limit := h.engine.SuggestLimit()
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxSuggestions {
			apperrors.WriteError(w, apperrors.ValidationError("limit must be between 1 and 20").WithDetail("limit", v))
			return
		}
		limit = n
	}

	suggestions, err := h.engine.Suggest(r.Context(), q, limit)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuggestResponse{Suggestions: suggestions})
}

// HandleFilters handles GET /v1/search/filters.
func (h *Handler) HandleFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := h.engine.Filters(r.Context())
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/handtune/internal/store"
)

// History paging limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// HistoryHandler serves the command history.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a HistoryHandler over s.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

type historyResponse struct {
	Events []*store.Event `json:"events"`
	Count  int            `json:"count"`
}

type statsResponse struct {
	Commands map[string]int `json:"commands"`
	Total    int            `json:"total"`
}

// ServeHTTP routes /api/history and /api/history/stats.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/history")
	path = strings.Trim(path, "/")

	switch {
	case path == "stats" && r.Method == http.MethodGet:
		h.stats(w, r)
	case path == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case path == "" && r.Method == http.MethodDelete:
		h.clear(w, r)
	case path == "" || path == "stats":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// parseLimit reads ?limit=, defaulting to DefaultHistoryLimit and capping
// at MaxHistoryLimit.
func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultHistoryLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > MaxHistoryLimit {
		n = MaxHistoryLimit
	}
	return n, true
}

func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	events, err := h.store.Events().List(limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	WriteJSON(w, http.StatusOK, historyResponse{Events: events, Count: len(events)})
}

func (h *HistoryHandler) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Events().CountByCommand()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to count history")
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	WriteJSON(w, http.StatusOK, statsResponse{Commands: counts, Total: total})
}

func (h *HistoryHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Events().Clear(); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

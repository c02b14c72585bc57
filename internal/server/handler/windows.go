package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/windowbot/internal/domain"
)

// WindowsHandler serves graded window history.
type WindowsHandler struct {
	store  domain.SummaryStore
	logger *slog.Logger
}

// NewWindowsHandler creates a WindowsHandler.
func NewWindowsHandler(store domain.SummaryStore, logger *slog.Logger) *WindowsHandler {
	return &WindowsHandler{store: store, logger: logger.With(slog.String("handler", "windows"))}
}

// ListWindows returns graded windows, newest first.
// GET /api/windows?limit=&offset=&since=&until=
func (h *WindowsHandler) ListWindows(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summaries, err := h.store.ListRecent(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list windows failed", slog.String("error", err.Error()))
		writeError(w, errorStatus(err), "failed to list windows")
		return
	}
	if summaries == nil {
		summaries = []domain.GradedSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"windows": summaries,
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}

// GetWindow returns one graded window.
// GET /api/windows/{slug}
func (h *WindowsHandler) GetWindow(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	s, err := h.store.GetBySlug(r.Context(), slug)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "get window failed", slog.String("slug", slug), slog.String("error", err.Error()))
		}
		writeError(w, status, "window "+slug+" not available")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

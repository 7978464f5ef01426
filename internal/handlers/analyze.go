package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/facereader/facereader/internal/analysis"
	"github.com/facereader/facereader/internal/models"
)

// HandleAnalyze runs one analysis for the session's active mode. A second
// request for the same mode while one is in flight gets 409.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		AgingPath models.AgingPath `json:"aging_path"`
	}
	if r.ContentLength != 0 {
		if err := h.decodeJSON(r, &request); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if request.AgingPath != "" {
		if err := sess.SetAgingPath(request.AgingPath); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	ticket, err := sess.BeginAnalysis()
	if err != nil {
		h.writeError(w, r, h.localized(err, sess.Language()))
		return
	}

	text, err := h.analysis.Analyze(r.Context(), analysis.Input{
		Mode:      ticket.Mode,
		Images:    ticket.Images,
		Language:  ticket.Language,
		AgingPath: ticket.AgingPath,
	})

	if cerr := sess.CompleteAnalysis(ticket, text, err); cerr != nil {
		if errors.Is(cerr, models.ErrStale) {
			slog.Info("Dropped stale analysis", "session_id", sess.ID(), "mode", ticket.Mode)
		}
		h.writeError(w, r, cerr)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"mode":   ticket.Mode,
		"result": text,
	})
}

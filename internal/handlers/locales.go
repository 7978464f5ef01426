package handlers

import (
	"net/http"

	"github.com/facereader/facereader/internal/facemap"
	"github.com/facereader/facereader/internal/models"
)

func (h *Handler) HandleLocales(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{
		"languages": h.catalog.Languages(),
		"default":   h.defaultLanguage,
		"preferred": h.requestLanguage(r),
	})
}

// HandleLocale returns the full table for a tag, missing keys filled from en
func (h *Handler) HandleLocale(w http.ResponseWriter, r *http.Request) {
	tag := h.catalog.Resolve(r.PathValue("tag"))
	if r.PathValue("tag") == "" {
		tag = h.requestLanguage(r)
	}
	w.Header().Set("Content-Language", tag)
	h.writeJSON(w, h.catalog.Table(tag))
}

func (h *Handler) HandleFaceMap(w http.ResponseWriter, r *http.Request) {
	mode := facemap.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = facemap.ModePalaces
	}
	points, err := h.faceMap.Points(mode, h.requestLanguage(r))
	if err != nil {
		h.writeError(w, r, models.ErrBadRequest.WithError(err))
		return
	}
	h.writeJSON(w, map[string]any{
		"mode":   mode,
		"points": points,
	})
}

// HandleAdjustPoint nudges a dragged marker, keeping it inside the photo
func (h *Handler) HandleAdjustPoint(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Point facemap.Point `json:"point"`
		DX    float64       `json:"dx"`
		DY    float64       `json:"dy"`
	}
	if err := h.decodeJSON(r, &request); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, facemap.Adjust(request.Point, request.DX, request.DY))
}

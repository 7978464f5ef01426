package handlers

import (
	"net/http"

	"github.com/facereader/facereader/internal/models"
	"github.com/facereader/facereader/internal/session"
)

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	sessionList := make([]session.Snapshot, 0, len(sessions))
	for _, sess := range sessions {
		sessionList = append(sessionList, sess.Snapshot())
	}
	session.SortByCreated(sessionList)
	h.writeJSON(w, sessionList)
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Language string      `json:"language"`
		Mode     models.Mode `json:"mode"`
	}
	if r.ContentLength != 0 {
		if err := h.decodeJSON(r, &request); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	lang := h.requestLanguage(r)
	if request.Language != "" {
		lang = h.catalog.Resolve(request.Language)
	}

	sess := h.sessionStore.Create(lang)
	if request.Mode != "" {
		if err := sess.SelectMode(request.Mode); err != nil {
			h.sessionStore.Delete(sess.ID())
			h.writeError(w, r, err)
			return
		}
	}

	h.writeJSONStatus(w, http.StatusCreated, sess.Snapshot())
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, sess.Snapshot())
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessionStore.Delete(r.PathValue("id")) {
		h.writeError(w, r, models.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSelectMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		Mode      models.Mode      `json:"mode"`
		AgingPath models.AgingPath `json:"aging_path"`
	}
	if err := h.decodeJSON(r, &request); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := sess.SelectMode(request.Mode); err != nil {
		h.writeError(w, r, err)
		return
	}
	if request.AgingPath != "" {
		if err := sess.SetAgingPath(request.AgingPath); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	h.writeJSON(w, sess.Snapshot())
}

func (h *Handler) HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		Language string `json:"language"`
	}
	if err := h.decodeJSON(r, &request); err != nil {
		h.writeError(w, r, err)
		return
	}
	if request.Language == "" {
		h.writeError(w, r, models.ErrBadRequest.WithMessage("language is required"))
		return
	}

	sess.SetLanguage(h.catalog.Resolve(request.Language))
	h.writeJSON(w, sess.Snapshot())
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/facereader/facereader/internal/faceimage"
	"github.com/facereader/facereader/internal/models"
)

func (h *Handler) HandleStartAlignment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := sess.StartAlignment(); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, sess.Snapshot())
}

func (h *Handler) HandleUpdateAlignment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var st faceimage.AlignmentState
	if err := h.decodeJSON(r, &st); err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := sess.UpdateAlignment(st)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, st)
}

// HandleConfirmAlignment rasterizes the pending transform and stores the
// aligned photo with its mirror pair. Rendering happens outside the session
// lock; a photo replaced meanwhile makes the confirm fail.
func (h *Handler) HandleConfirmAlignment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	job, err := sess.PendingAlignment()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	aligned, pair, err := faceimage.AlignAndSplit(job.Source, job.State, h.alignSize, h.format)
	if err != nil {
		msg := h.catalog.Lookup(sess.Language(), "mirror.error_processing")
		sess.FailAlignment(msg)
		h.writeError(w, r, models.AsAppError(err).WithMessage(msg))
		return
	}

	if err := sess.ConfirmAlignment(job.Token, aligned, pair); err != nil {
		h.writeError(w, r, err)
		return
	}

	slog.Info("Alignment confirmed", "session_id", sess.ID(), "rotation", job.State.RotationDegrees, "scale", job.State.Scale)
	h.writeJSON(w, sess.Snapshot())
}

func (h *Handler) HandleCancelAlignment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := sess.CancelAlignment(); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, sess.Snapshot())
}

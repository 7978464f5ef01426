package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/facereader/facereader/internal/models"
)

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	slot := models.Slot(r.PathValue("slot"))
	if !slot.Valid() {
		h.writeError(w, r, models.ErrBadRequest.WithMessage("unknown image slot "+string(slot)))
		return
	}

	var (
		img models.Image
		err error
	)
	// Check if this is a JSON request with image URL
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		img, err = h.imageFromURL(r, sess.Language())
	} else {
		img, err = h.imageFromForm(w, r, sess.Language())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := sess.SetImage(slot, img); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, sess.Snapshot())
}

func (h *Handler) imageFromURL(r *http.Request, lang string) (models.Image, error) {
	var request struct {
		ImageURL string `json:"image_url"`
	}
	if err := h.decodeJSON(r, &request); err != nil {
		return models.Image{}, err
	}
	if request.ImageURL == "" {
		return models.Image{}, models.ErrBadRequest.WithMessage("image_url is required")
	}

	remote, err := h.fetcher.Fetch(r.Context(), request.ImageURL)
	if err != nil {
		return models.Image{}, h.localized(err, lang)
	}
	return h.processImage(remote.Data, remote.Filename, remote.ContentType, lang)
}

// multipartOverhead is the room left for form boundaries and part headers
const multipartOverhead = 1 << 20

func (h *Handler) imageFromForm(w http.ResponseWriter, r *http.Request, lang string) (models.Image, error) {
	limit := h.maxUpload + multipartOverhead
	if r.ContentLength > limit {
		return models.Image{}, h.localized(models.ErrFileTooLarge, lang)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return models.Image{}, h.localized(models.ErrFileTooLarge.WithError(err), lang)
			}
			return models.Image{}, models.ErrBadRequest.WithMessage(h.catalog.Lookup(lang, "upload.error_read")).WithError(err)
		}
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		return models.Image{}, models.ErrDecode.WithMessage(h.catalog.Lookup(lang, "upload.error_read")).WithError(err)
	}

	return h.processImage(fileData, header.Filename, header.Header.Get("Content-Type"), lang)
}

func (h *Handler) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := sess.ClearImage(models.Slot(r.PathValue("slot"))); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, sess.Snapshot())
}

// HandleGetImage serves the stored bytes of a slot or of the mirror pair
func (h *Handler) HandleGetImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	img, ok := sess.Image(r.PathValue("slot"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img.Data); err != nil {
		slog.Error("Unable to write image", "session_id", sess.ID(), "err", err)
	}
}

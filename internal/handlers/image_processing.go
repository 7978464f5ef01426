package handlers

import (
	"log/slog"
	"time"

	"github.com/facereader/facereader/internal/faceimage"
	"github.com/facereader/facereader/internal/models"
)

// processImage validates and decodes an upload. Errors carry the localized
// upload message for lang.
func (h *Handler) processImage(fileData []byte, filename, declaredType, lang string) (models.Image, error) {
	if len(fileData) == 0 {
		return models.Image{}, models.ErrValidation.WithMessage(h.catalog.Lookup(lang, "upload.error_empty"))
	}

	img, _, err := faceimage.Load(declaredType, fileData, h.maxUpload)
	if err != nil {
		return models.Image{}, h.localized(err, lang)
	}
	img.Filename = filename
	img.UploadedAt = time.Now()

	slog.Info("Image accepted", "filename", filename, "type", img.MIME, "width", img.Width, "height", img.Height, "bytes", len(fileData))
	return img, nil
}

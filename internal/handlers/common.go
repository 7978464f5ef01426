package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/facereader/facereader/internal/analysis"
	"github.com/facereader/facereader/internal/config"
	"github.com/facereader/facereader/internal/faceimage"
	"github.com/facereader/facereader/internal/facemap"
	"github.com/facereader/facereader/internal/i18n"
	"github.com/facereader/facereader/internal/images"
	"github.com/facereader/facereader/internal/models"
	"github.com/facereader/facereader/internal/session"
	"github.com/facereader/facereader/internal/storage"
)

type Handler struct {
	sessionStore *storage.SessionStore
	analysis     *analysis.Service
	catalog      *i18n.Catalog
	faceMap      *facemap.Map
	fetcher      *images.Fetcher

	maxUpload       int64
	alignSize       int
	format          faceimage.Format
	defaultLanguage string
	limiter         *RateLimiter
}

func New(cfg *config.Config, catalog *i18n.Catalog, svc *analysis.Service, fm *facemap.Map) (*Handler, error) {
	format, err := faceimage.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	return &Handler{
		sessionStore:    storage.New(),
		analysis:        svc,
		catalog:         catalog,
		faceMap:         fm,
		fetcher:         images.NewFetcher(cfg.MaxUploadBytes),
		maxUpload:       cfg.MaxUploadBytes,
		alignSize:       cfg.AlignSize,
		format:          format,
		defaultLanguage: catalog.Resolve(cfg.DefaultLanguage),
		limiter:         NewRateLimiter(cfg.AnalyzeRPS, cfg.AnalyzeBurst),
	}, nil
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

// writeError maps err onto its AppError status and a {code, message} body
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := models.AsAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "code", appErr.Code, "err", err)
	} else {
		slog.Warn("Request rejected", "method", r.Method, "path", r.URL.Path, "code", appErr.Code, "err", err)
	}
	h.writeJSONStatus(w, appErr.StatusCode, appErr)
}

func (h *Handler) decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return models.ErrBadRequest.WithMessage("Invalid JSON").WithError(err)
	}
	return nil
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, exists := h.sessionStore.Get(r.PathValue("id"))
	if !exists {
		h.writeError(w, r, models.ErrSessionNotFound)
		return nil, false
	}
	return sess, true
}

// requestLanguage picks the language for a request without a session
func (h *Handler) requestLanguage(r *http.Request) string {
	if tag := r.URL.Query().Get("lang"); tag != "" {
		return h.catalog.Resolve(tag)
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return h.catalog.Match(accept)
	}
	return h.defaultLanguage
}

// localized replaces the default message of known AppErrors with the
// table entry for lang
func (h *Handler) localized(err error, lang string) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return err
	}
	key, ok := messageKeys[appErr.Code]
	if !ok {
		return err
	}
	return appErr.WithMessage(h.catalog.Lookup(lang, key))
}

var messageKeys = map[string]string{
	models.ErrValidation.Code:        "upload.error_type",
	models.ErrUnsupportedFormat.Code: "upload.error_type",
	models.ErrDecode.Code:            "upload.error_read",
	models.ErrFileTooLarge.Code:      "upload.error_size",
	models.ErrBusy.Code:              "analysis.error_busy",
}

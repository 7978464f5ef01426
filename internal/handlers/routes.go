package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Routes wires the JSON API, the static page and the healthcheck
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/sessions", h.HandleListSessions)
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDeleteSession)
	mux.HandleFunc("PUT /api/sessions/{id}/mode", h.HandleSelectMode)
	mux.HandleFunc("PUT /api/sessions/{id}/language", h.HandleSetLanguage)

	mux.HandleFunc("POST /api/sessions/{id}/images/{slot}", h.HandleUpload)
	mux.HandleFunc("GET /api/sessions/{id}/images/{slot}", h.HandleGetImage)
	mux.HandleFunc("DELETE /api/sessions/{id}/images/{slot}", h.HandleDeleteImage)

	mux.HandleFunc("POST /api/sessions/{id}/alignment", h.HandleStartAlignment)
	mux.HandleFunc("PUT /api/sessions/{id}/alignment", h.HandleUpdateAlignment)
	mux.HandleFunc("POST /api/sessions/{id}/alignment/confirm", h.HandleConfirmAlignment)
	mux.HandleFunc("POST /api/sessions/{id}/alignment/cancel", h.HandleCancelAlignment)

	mux.Handle("POST /api/sessions/{id}/analyze", h.limiter.Middleware(http.HandlerFunc(h.HandleAnalyze)))

	mux.HandleFunc("GET /api/locales", h.HandleLocales)
	mux.HandleFunc("GET /api/locales/{tag}", h.HandleLocale)
	mux.HandleFunc("GET /api/facemap", h.HandleFaceMap)
	mux.HandleFunc("POST /api/facemap/adjust", h.HandleAdjustPoint)

	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	mux.HandleFunc("GET /", h.HandleStatic)

	return logRequests(mux)
}

// PruneVisitors forgets idle rate-limit buckets until ctx is done
func (h *Handler) PruneVisitors(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.limiter.Prune(3 * time.Minute)
		}
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/facereader/facereader/internal/analysis"
	"github.com/facereader/facereader/internal/config"
	"github.com/facereader/facereader/internal/facemap"
	"github.com/facereader/facereader/internal/i18n"
	"github.com/facereader/facereader/internal/models"
	"github.com/facereader/facereader/internal/providers"
	"github.com/facereader/facereader/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	mu    sync.Mutex
	text  string
	calls int
	last  providers.Request

	started chan struct{}
	release chan struct{}
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(ctx context.Context, req providers.Request) (string, error) {
	p.mu.Lock()
	p.calls++
	p.last = req
	p.mu.Unlock()

	if p.started != nil {
		p.started <- struct{}{}
		select {
		case <-p.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.text, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxUploadBytes:  1 << 20,
		AlignSize:       100,
		OutputFormat:    "jpeg",
		AnalyzeRPS:      1000,
		AnalyzeBurst:    1000,
		DefaultLanguage: "en",
	}
}

func newTestHandler(t *testing.T, cfg *config.Config, p providers.Provider) http.Handler {
	t.Helper()
	catalog, err := i18n.Load()
	require.NoError(t, err)
	fm, err := facemap.Load(catalog)
	require.NoError(t, err)
	svc := analysis.NewService(p, catalog, analysis.Settings{Model: "test-model", Timeout: 5 * time.Second})
	h, err := New(cfg, catalog, svc, fm)
	require.NoError(t, err)
	return h.Routes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadFile(t *testing.T, h http.Handler, sessionID, slot, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/images/"+slot, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 5), B: uint8(x ^ y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap), rec.Body.String())
	return snap
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.AppError {
	t.Helper()
	var body models.AppError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func createSession(t *testing.T, h http.Handler, mode models.Mode) session.Snapshot {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", map[string]any{"language": "en", "mode": mode})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeSnapshot(t, rec)
}

func TestSessionLifecycle(t *testing.T) {
	h := newTestHandler(t, testConfig(), &stubProvider{text: "ok"})

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decodeSnapshot(t, rec)
	assert.Equal(t, "ja", snap.Language)
	assert.Equal(t, models.ModeSingle, snap.Mode)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+snap.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sessions", nil)
	var list []session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(t, h, http.MethodPut, "/api/sessions/"+snap.ID+"/language", map[string]string{"language": "zh_TW"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "zh-TW", decodeSnapshot(t, rec).Language)

	rec = do(t, h, http.MethodPut, "/api/sessions/"+snap.ID+"/mode", map[string]string{"mode": "palm"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/sessions/"+snap.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+snap.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decodeError(t, rec).Code)
}

func TestUploadValidation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 200
	h := newTestHandler(t, cfg, &stubProvider{text: "ok"})
	snap := createSession(t, h, models.ModeSingle)

	tests := []struct {
		name     string
		slot     string
		data     []byte
		wantCode int
		wantMsg  string
	}{
		{"text file", "primary", []byte("hello, not an image"), http.StatusUnprocessableEntity, "Please upload valid image (JPG/PNG)."},
		{"too large", "primary", gradientPNG(t, 64, 64), http.StatusRequestEntityTooLarge, "File too large (max 10MB)."},
		{"empty", "primary", nil, http.StatusUnprocessableEntity, "Please upload photo first."},
		{"unknown slot", "partner9", []byte("x"), http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := uploadFile(t, h, snap.ID, tt.slot, "face.png", tt.data)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeError(t, rec).Message)
			}
		})
	}

	rec := do(t, h, http.MethodGet, "/api/sessions/"+snap.ID, nil)
	assert.Empty(t, decodeSnapshot(t, rec).Images)
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 200
	h := newTestHandler(t, cfg, &stubProvider{text: "ok"})
	snap := createSession(t, h, models.ModeSingle)

	rec := uploadFile(t, h, snap.ID, "primary", "face.png", bytes.Repeat([]byte{0x89}, 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "File too large (max 10MB).", decodeError(t, rec).Message)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+snap.ID, nil)
	assert.Empty(t, decodeSnapshot(t, rec).Images)
}

func TestUploadAndAnalyze(t *testing.T) {
	p := &stubProvider{text: "## **Bright** future #career"}
	h := newTestHandler(t, testConfig(), p)
	snap := createSession(t, h, models.ModeSingle)

	rec := uploadFile(t, h, snap.ID, "primary", "me.png", gradientPNG(t, 40, 30))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	uploaded := decodeSnapshot(t, rec)
	require.Contains(t, uploaded.Images, models.SlotPrimary)
	assert.Equal(t, "image/png", uploaded.Images[models.SlotPrimary].MIME)
	assert.Equal(t, 40, uploaded.Images[models.SlotPrimary].Width)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+snap.ID+"/images/primary", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Mode   models.Mode `json:"mode"`
		Result string      `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bright future career", body.Result)

	assert.Equal(t, 1, p.calls)
	assert.Len(t, p.last.Images, 1)
	assert.Contains(t, p.last.UserPrompt, "Language: English.")

	rec = do(t, h, http.MethodGet, "/api/sessions/"+snap.ID, nil)
	assert.Equal(t, "Bright future career", decodeSnapshot(t, rec).Result)
}

func TestAnalyzeWithoutPhoto(t *testing.T) {
	p := &stubProvider{text: "never"}
	h := newTestHandler(t, testConfig(), p)
	snap := createSession(t, h, models.ModeCouple)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/analyze", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Please upload both photos first.", decodeError(t, rec).Message)
	assert.Zero(t, p.calls)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+snap.ID, nil)
	after := decodeSnapshot(t, rec)
	assert.Equal(t, "Please upload both photos first.", after.Error)
	assert.False(t, after.Busy)
}

func TestAnalyzeBusyAndStale(t *testing.T) {
	p := &stubProvider{text: "late", started: make(chan struct{}), release: make(chan struct{})}
	h := newTestHandler(t, testConfig(), p)
	snap := createSession(t, h, models.ModeSingle)
	require.Equal(t, http.StatusOK, uploadFile(t, h, snap.ID, "primary", "me.png", gradientPNG(t, 20, 20)).Code)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+snap.ID+"/analyze", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		first <- rec
	}()
	<-p.started

	rec := do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/analyze", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	busy := decodeError(t, rec)
	assert.Equal(t, "BUSY", busy.Code)
	assert.Equal(t, "A reading is already in progress.", busy.Message)

	rec = do(t, h, http.MethodPut, "/api/sessions/"+snap.ID+"/mode", map[string]string{"mode": "daily"})
	require.Equal(t, http.StatusOK, rec.Code)

	close(p.release)
	late := <-first
	assert.Equal(t, http.StatusConflict, late.Code)
	assert.Equal(t, "STALE_RESPONSE", decodeError(t, late).Code)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+snap.ID, nil)
	after := decodeSnapshot(t, rec)
	assert.Equal(t, models.ModeDaily, after.Mode)
	assert.Empty(t, after.Result)
	assert.False(t, after.Busy)
}

func TestMirrorAlignment(t *testing.T) {
	p := &stubProvider{text: "contrast"}
	h := newTestHandler(t, testConfig(), p)
	snap := createSession(t, h, models.ModeMirror)

	rec := uploadFile(t, h, snap.ID, "primary", "me.png", gradientPNG(t, 80, 60))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeSnapshot(t, rec).Aligning)

	rec = do(t, h, http.MethodPut, "/api/sessions/"+snap.ID+"/alignment", map[string]float64{
		"translate_x": 4, "scale": 10, "rotation_degrees": -90,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 3.0, st["scale"])
	assert.Equal(t, -45.0, st["rotation_degrees"])

	rec = do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/alignment/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	after := decodeSnapshot(t, rec)
	assert.False(t, after.Aligning)
	require.NotNil(t, after.Mirror)
	assert.Equal(t, 100, after.Mirror.Inner.Width)
	assert.Equal(t, 100, after.Mirror.Inner.Height)
	assert.Equal(t, 100, after.Images[models.SlotPrimary].Width)
	assert.Equal(t, "me.png", after.Images[models.SlotPrimary].Filename)

	for _, name := range []string{"inner", "outer"} {
		rec = do(t, h, http.MethodGet, "/api/sessions/"+snap.ID+"/images/"+name, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
		cfg, _, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, 100, cfg.Width)
		assert.Equal(t, 100, cfg.Height)
	}

	rec = do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, p.last.Images, 2)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/alignment/confirm", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/alignment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/alignment/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decodeSnapshot(t, rec).Images, models.SlotPrimary)
}

func TestUploadByURL(t *testing.T) {
	pngData := gradientPNG(t, 16, 16)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/face.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngData)
	}))
	defer remote.Close()

	h := newTestHandler(t, testConfig(), &stubProvider{text: "ok"})
	snap := createSession(t, h, models.ModeSingle)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/images/primary", map[string]string{"image_url": remote.URL + "/face.png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img := decodeSnapshot(t, rec).Images[models.SlotPrimary]
	assert.Equal(t, "face.png", img.Filename)
	assert.Equal(t, 16, img.Height)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/images/primary", map[string]string{"image_url": remote.URL + "/missing.png"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLocales(t *testing.T) {
	h := newTestHandler(t, testConfig(), &stubProvider{})

	rec := do(t, h, http.MethodGet, "/api/locales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Languages []string `json:"languages"`
		Default   string   `json:"default"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Contains(t, list.Languages, "zh-TW")
	assert.Equal(t, "en", list.Default)

	rec = do(t, h, http.MethodGet, "/api/locales/ja", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ja", rec.Header().Get("Content-Language"))
	var table map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	tabs := table["tabs"].(map[string]any)
	assert.Equal(t, "Two-Year Fortune", tabs["fortune"])
}

func TestFaceMap(t *testing.T) {
	h := newTestHandler(t, testConfig(), &stubProvider{})

	rec := do(t, h, http.MethodGet, "/api/facemap?mode=ages&lang=en", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Points []facemap.Point `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Points, 8)

	rec = do(t, h, http.MethodGet, "/api/facemap?mode=stars", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/facemap/adjust", map[string]any{
		"point": map[string]any{"id": "ming", "x": 98, "y": 3},
		"dx":    5,
		"dy":    -10,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var p facemap.Point
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 100.0, p.X)
	assert.Equal(t, 0.0, p.Y)
}

func TestAnalyzeRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AnalyzeRPS = 0
	cfg.AnalyzeBurst = 1
	h := newTestHandler(t, cfg, &stubProvider{text: "ok"})
	snap := createSession(t, h, models.ModeSingle)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/analyze", nil)
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+snap.ID+"/analyze", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.limiter("10.0.0.1")

	now = now.Add(5 * time.Minute)
	rl.limiter("10.0.0.2")
	rl.Prune(3 * time.Minute)

	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "10.0.0.2")
}

func TestStaticAndHealth(t *testing.T) {
	h := newTestHandler(t, testConfig(), &stubProvider{})

	rec := do(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "<title>facereader</title>"))

	rec = do(t, h, http.MethodGet, "/nope.js", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, "OK", rec.Body.String())
}

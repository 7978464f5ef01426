package analysis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/facereader/facereader/internal/config"
	"github.com/facereader/facereader/internal/i18n"
	"github.com/facereader/facereader/internal/models"
	"github.com/facereader/facereader/internal/openai"
	"github.com/facereader/facereader/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	text  string
	err   error
	delay time.Duration
	calls atomic.Int32
	last  providers.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, req providers.Request) (string, error) {
	f.calls.Add(1)
	f.last = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func catalog(t *testing.T) *i18n.Catalog {
	t.Helper()
	c, err := i18n.Load()
	require.NoError(t, err)
	return c
}

func photo() models.Image {
	return models.Image{MIME: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
}

func TestAssemble(t *testing.T) {
	a := NewAssembler(catalog(t))

	tests := []struct {
		name       string
		in         Input
		wantErr    error
		wantPrompt string
		wantImages int
	}{
		{
			name:       "single",
			in:         Input{Mode: models.ModeSingle, Images: []models.Image{photo()}, Language: "zh-TW"},
			wantPrompt: "Analyze this face in Social Media Post Style. Language: 繁體中文. Include Emojis. No Markdown.",
			wantImages: 1,
		},
		{
			name:       "couple",
			in:         Input{Mode: models.ModeCouple, Images: []models.Image{photo(), photo()}, Language: "en"},
			wantPrompt: "Analyze compatibility. Language: English. Include Emojis. No Markdown.",
			wantImages: 2,
		},
		{
			name:       "aging",
			in:         Input{Mode: models.ModeAging, Images: []models.Image{photo()}, Language: "ja", AgingPath: models.AgingWorry},
			wantPrompt: "Simulate aging for path: worry. Language: Japanese (日本語). No Markdown.",
			wantImages: 1,
		},
		{
			name:       "mirror",
			in:         Input{Mode: models.ModeMirror, Images: []models.Image{photo(), photo()}, Language: "en"},
			wantPrompt: "Analyze contrast. Language: English. No Markdown.",
			wantImages: 2,
		},
		{
			name:    "couple missing partner",
			in:      Input{Mode: models.ModeCouple, Images: []models.Image{photo(), {}}, Language: "en"},
			wantErr: models.ErrMissingImage,
		},
		{
			name:    "single with two images",
			in:      Input{Mode: models.ModeSingle, Images: []models.Image{photo(), photo()}},
			wantErr: models.ErrMissingImage,
		},
		{
			name:    "no image",
			in:      Input{Mode: models.ModeDaily},
			wantErr: models.ErrMissingImage,
		},
		{
			name:    "too many",
			in:      Input{Mode: models.ModeCouple, Images: []models.Image{photo(), photo(), photo(), photo()}},
			wantErr: models.ErrValidation,
		},
		{
			name:    "aging without path",
			in:      Input{Mode: models.ModeAging, Images: []models.Image{photo()}},
			wantErr: models.ErrValidation,
		},
		{
			name:    "unknown mode",
			in:      Input{Mode: "palm", Images: []models.Image{photo()}},
			wantErr: models.ErrBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := a.Assemble(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrompt, req.UserPrompt)
			assert.NotEmpty(t, req.SystemPrompt)
			assert.Len(t, req.Images, tt.wantImages)
		})
	}
}

func TestAssembleLocalizesMissingImage(t *testing.T) {
	a := NewAssembler(catalog(t))

	_, err := a.Assemble(Input{Mode: models.ModeSingle, Language: "zh-TW"})
	appErr := models.AsAppError(err)
	assert.Equal(t, "請先上傳您的面部照片。", appErr.Message)

	_, err = a.Assemble(Input{Mode: models.ModeCouple, Language: "zh-TW"})
	assert.Equal(t, "請先上傳兩張照片", models.AsAppError(err).Message)
}

func TestEveryModeHasPrompts(t *testing.T) {
	for _, m := range models.Modes {
		n := ImageCount(m)
		assert.True(t, n >= 1 && n <= MaxImages, "mode %s", m)
	}
	assert.Equal(t, 2, ImageCount(models.ModeCouple))
	assert.Equal(t, 2, ImageCount(models.ModeMirror))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Title\nbold text", Sanitize("## Title\n**bold** text#"))
	assert.Equal(t, "", Sanitize(" *** "))
}

func TestAnalyze(t *testing.T) {
	p := &fakeProvider{text: "### 🌟 天庭飽滿 **貴人多**"}
	s := NewService(p, catalog(t), Settings{Model: "m", Temperature: 0.7, Timeout: time.Second})

	text, err := s.Analyze(context.Background(), Input{Mode: models.ModeSingle, Images: []models.Image{photo()}, Language: "zh-TW"})
	require.NoError(t, err)
	assert.Equal(t, "🌟 天庭飽滿 貴人多", text)
	assert.Equal(t, "m", p.last.Model)
	assert.Equal(t, 0.7, p.last.Temperature)
}

func TestAnalyzeFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		wantErr  error
	}{
		{"provider error", &fakeProvider{err: errors.New("connection refused")}, models.ErrUpstream},
		{"empty text", &fakeProvider{text: "  "}, models.ErrUpstream},
		{"only markup", &fakeProvider{text: "**##"}, models.ErrUpstream},
		{"timeout", &fakeProvider{text: "late", delay: time.Second}, models.ErrUpstreamTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(tt.provider, catalog(t), Settings{Timeout: 20 * time.Millisecond})
			_, err := s.Analyze(context.Background(), Input{Mode: models.ModeDaily, Images: []models.Image{photo()}, Language: "en"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int32(1), tt.provider.calls.Load(), "no retries")
		})
	}
}

func TestAnalyzeValidationSkipsProvider(t *testing.T) {
	p := &fakeProvider{text: "unused"}
	s := NewService(p, catalog(t), Settings{})

	_, err := s.Analyze(context.Background(), Input{Mode: models.ModeCouple, Images: []models.Image{photo()}})
	assert.ErrorIs(t, err, models.ErrMissingImage)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestAnalyzeUpstream500(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer server.Close()

	s := NewService(openai.New("sk-test", server.URL), catalog(t), Settings{Model: "gpt-4o", Timeout: 5 * time.Second})
	_, err := s.Analyze(context.Background(), Input{Mode: models.ModeSingle, Images: []models.Image{photo()}, Language: "en"})

	appErr := models.AsAppError(err)
	assert.Equal(t, models.ErrUpstream.Code, appErr.Code)
	assert.True(t, strings.HasPrefix(appErr.Message, "Error:"))
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewServiceFromConfig(t *testing.T) {
	c := catalog(t)

	_, err := NewServiceFromConfig(&config.Config{Provider: "gemini", RequestTimeout: time.Second, MaxUploadBytes: 1, AlignSize: 1, OutputFormat: "jpeg"}, c)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	s, err := NewServiceFromConfig(&config.Config{
		Provider:       "ollama",
		OllamaURL:      "http://localhost:11434",
		OllamaModel:    "llava:13b",
		RequestTimeout: time.Second,
		MaxUploadBytes: 1,
		AlignSize:      1,
		OutputFormat:   "png",
	}, c)
	require.NoError(t, err)
	assert.Equal(t, "ollama", s.Provider())
}

package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/facereader/facereader/internal/providers"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini is a provider for Google Gemini
type Gemini struct {
	apiKey string
	opts   []option.ClientOption
}

// New returns a new Gemini provider. Extra client options are appended
// after the API key.
func New(apiKey string, opts ...option.ClientOption) *Gemini {
	return &Gemini{apiKey: apiKey, opts: opts}
}

func (g *Gemini) Name() string { return "gemini" }

// Generate sends the instruction and images to Gemini and returns the first text part
func (g *Gemini) Generate(ctx context.Context, req providers.Request) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(g.apiKey)}, g.opts...)...)
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(strings.TrimSpace(req.Model))
	model.SetTemperature(float32(req.Temperature))
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}

	resp, err := model.GenerateContent(ctx, parts(req)...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return firstText(resp)
}

func parts(req providers.Request) []genai.Part {
	out := make([]genai.Part, 0, len(req.Images)+1)
	out = append(out, genai.Text(req.UserPrompt))
	for _, img := range req.Images {
		out = append(out, &genai.Blob{MIMEType: img.MIME, Data: img.Data})
	}
	return out
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if txt, ok := p.(genai.Text); ok && strings.TrimSpace(string(txt)) != "" {
				return string(txt), nil
			}
		}
	}

	return "", fmt.Errorf("empty content returned from Gemini")
}

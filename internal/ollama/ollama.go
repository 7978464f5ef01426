package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/facereader/facereader/internal/providers"
)

const DefaultURL = "http://localhost:11434"

// Ollama is a provider for a local Ollama server
type Ollama struct {
	url        string
	HTTPClient *http.Client
}

// New returns a new Ollama provider
func New(url string) *Ollama {
	if url == "" {
		url = DefaultURL
	}
	return &Ollama{
		url:        strings.TrimRight(url, "/"),
		HTTPClient: &http.Client{},
	}
}

func (o *Ollama) Name() string { return "ollama" }

// Generate calls /api/generate with the images inlined as base64
func (o *Ollama) Generate(ctx context.Context, req providers.Request) (string, error) {
	images := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, img.Base64())
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":  req.Model,
		"system": req.SystemPrompt,
		"prompt": req.UserPrompt,
		"images": images,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": req.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.url+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if strings.TrimSpace(response.Response) == "" {
		return "", fmt.Errorf("empty response returned from Ollama")
	}
	return response.Response, nil
}

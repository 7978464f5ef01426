package providers

import (
	"context"
	"encoding/base64"
)

// Image is an encoded photo sent inline with a request
type Image struct {
	MIME string
	Data []byte
}

// Base64 returns the image bytes in standard base64
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data: URL
func (i Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + i.Base64()
}

// Request is one analysis call: a persona, an instruction and 1-3 images
type Request struct {
	Model        string
	Temperature  float64
	SystemPrompt string
	UserPrompt   string
	Images       []Image
}

// Provider defines the interface for a vision-capable LLM provider
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

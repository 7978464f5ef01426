// Package faceimage decodes face photos, aligns them onto a square canvas and
// derives the mirrored half-face pair.
package faceimage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/facereader/facereader/internal/models"
	_ "golang.org/x/image/webp"
)

const DefaultMaxBytes int64 = 10 * 1024 * 1024

// Format is an output encoding for derived images
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

func (f Format) MIME() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Validate checks an upload before any decoding happens and returns the
// sniffed MIME type. declaredMIME may be empty when the client sent none.
func Validate(declaredMIME string, data []byte, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(data) == 0 {
		return "", models.ErrValidation.WithError(fmt.Errorf("empty file"))
	}
	if int64(len(data)) > maxBytes {
		return "", models.ErrFileTooLarge.WithError(fmt.Errorf("%d bytes exceeds limit of %d", len(data), maxBytes))
	}

	declared := normalizeMIME(declaredMIME)
	if declared != "" && declared != "application/octet-stream" && !allowedMIME[declared] {
		return "", models.ErrValidation.WithError(fmt.Errorf("declared type %s not accepted", declared))
	}

	sniffed := normalizeMIME(http.DetectContentType(data))
	if !allowedMIME[sniffed] {
		return "", models.ErrValidation.WithError(fmt.Errorf("content sniffed as %s", sniffed))
	}

	return sniffed, nil
}

func normalizeMIME(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		s = mt
	}
	if s == "image/jpg" || s == "image/pjpeg" {
		return "image/jpeg"
	}
	return s
}

// Decode parses a JPEG, PNG or WEBP buffer. Bytes in no registered format
// fail with ErrUnsupportedFormat.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, models.ErrUnsupportedFormat.WithError(err)
	}
	if err != nil {
		return nil, models.ErrDecode.WithError(fmt.Errorf("decoding image: %w", err))
	}
	return img, nil
}

// EncodeRegion encodes the part of img inside rect. The rectangle is clamped
// to the image bounds.
func EncodeRegion(img image.Image, rect image.Rectangle, format Format) ([]byte, error) {
	r := rect.Intersect(img.Bounds())
	if r.Empty() {
		return nil, models.ErrTransform.WithError(fmt.Errorf("region %v outside image bounds %v", rect, img.Bounds()))
	}

	var sub image.Image = img
	if r != img.Bounds() {
		sub = imaging.Crop(img, r)
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatPNG:
		err = imaging.Encode(&buf, sub, imaging.PNG)
	case FormatJPEG, "":
		err = imaging.Encode(&buf, sub, imaging.JPEG, imaging.JPEGQuality(95))
	default:
		return nil, models.ErrTransform.WithError(fmt.Errorf("unsupported format: %s", format))
	}
	if err != nil {
		return nil, models.ErrTransform.WithError(fmt.Errorf("encoding image: %w", err))
	}

	return buf.Bytes(), nil
}

// Encode encodes the full frame
func Encode(img image.Image, format Format) ([]byte, error) {
	return EncodeRegion(img, img.Bounds(), format)
}

// EncodeImage encodes img and wraps the result for session storage
func EncodeImage(img image.Image, format Format) (models.Image, error) {
	data, err := Encode(img, format)
	if err != nil {
		return models.Image{}, err
	}
	return models.Image{
		MIME:   format.MIME(),
		Data:   data,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

// Load validates and decodes an upload, returning the stored form and the
// decoded surface.
func Load(declaredMIME string, data []byte, maxBytes int64) (models.Image, image.Image, error) {
	mt, err := Validate(declaredMIME, data, maxBytes)
	if err != nil {
		return models.Image{}, nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return models.Image{}, nil, err
	}
	return models.Image{
		MIME:   mt,
		Data:   data,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, img, nil
}

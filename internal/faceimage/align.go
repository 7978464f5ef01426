package faceimage

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/facereader/facereader/internal/models"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	DefaultAlignSize = 600

	MinRotation = -45.0
	MaxRotation = 45.0
	MinScale    = 0.5
	MaxScale    = 3.0
)

// AlignmentState is a pending manual transform of a source photo.
// Translation is in screen pixels and is applied after rotation and scale.
type AlignmentState struct {
	TranslateX      float64 `json:"translate_x"`
	TranslateY      float64 `json:"translate_y"`
	Scale           float64 `json:"scale"`
	RotationDegrees float64 `json:"rotation_degrees"`
}

func Identity() AlignmentState {
	return AlignmentState{Scale: 1}
}

func (s AlignmentState) Validate() error {
	for _, v := range []float64{s.TranslateX, s.TranslateY, s.Scale, s.RotationDegrees} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.ErrValidation.WithError(fmt.Errorf("alignment values must be finite"))
		}
	}
	if s.Scale <= 0 {
		return models.ErrValidation.WithError(fmt.Errorf("scale must be positive, got %v", s.Scale))
	}
	return nil
}

// Clamped limits rotation and scale to the ranges offered by the interactive controls
func (s AlignmentState) Clamped() AlignmentState {
	s.RotationDegrees = clamp(s.RotationDegrees, MinRotation, MaxRotation)
	s.Scale = clamp(s.Scale, MinScale, MaxScale)
	return s
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// matrix maps source pixel coordinates onto a size×size canvas:
// dst = C + t + s·R(θ)·(p − c_img)
func (s AlignmentState) matrix(src image.Rectangle, size int) f64.Aff3 {
	theta := s.RotationDegrees * math.Pi / 180
	sin, cos := math.Sincos(theta)

	a, b := s.Scale*cos, -s.Scale*sin
	d, e := s.Scale*sin, s.Scale*cos

	cix := float64(src.Min.X) + float64(src.Dx())/2
	ciy := float64(src.Min.Y) + float64(src.Dy())/2
	cx := float64(size)/2 + s.TranslateX
	cy := float64(size)/2 + s.TranslateY

	return f64.Aff3{
		a, b, cx - (a*cix + b*ciy),
		d, e, cy - (d*cix + e*ciy),
	}
}

// Align rasterizes src through st onto an opaque black size×size canvas
func Align(src image.Image, st AlignmentState, size int) (*image.NRGBA, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, models.ErrTransform.WithError(fmt.Errorf("invalid canvas size %d", size))
	}
	if src.Bounds().Empty() {
		return nil, models.ErrTransform.WithError(fmt.Errorf("empty source image"))
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	m := st.matrix(src.Bounds(), size)
	if dp, ok := integralOffset(m); ok {
		draw.Copy(dst, src.Bounds().Min.Add(dp), src, src.Bounds(), draw.Over, nil)
	} else {
		draw.CatmullRom.Transform(dst, m, src, src.Bounds(), draw.Over, nil)
	}

	return dst, nil
}

// integralOffset reports whether m is a whole-pixel translation
func integralOffset(m f64.Aff3) (image.Point, bool) {
	if m[0] != 1 || m[1] != 0 || m[3] != 0 || m[4] != 1 {
		return image.Point{}, false
	}
	if m[2] != math.Trunc(m[2]) || m[5] != math.Trunc(m[5]) {
		return image.Point{}, false
	}
	return image.Pt(int(m[2]), int(m[5])), true
}

// AlignEncoded decodes data, aligns it and encodes the result
func AlignEncoded(data []byte, st AlignmentState, size int, format Format) (models.Image, error) {
	src, err := Decode(data)
	if err != nil {
		return models.Image{}, err
	}
	aligned, err := Align(src, st, size)
	if err != nil {
		return models.Image{}, err
	}
	return EncodeImage(aligned, format)
}

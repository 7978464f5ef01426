package faceimage

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/facereader/facereader/internal/models"
	"golang.org/x/sync/errgroup"
)

// MirrorImages are the two symmetric faces built from each half of a photo
type MirrorImages struct {
	Inner *image.NRGBA
	Outer *image.NRGBA
}

// Split mirrors the left half of img onto both sides (Inner) and the right
// half onto both sides (Outer). Both keep the source dimensions. With an odd
// width the center column of Inner is the source center column.
func Split(img image.Image) MirrorImages {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	half := w / 2

	left := imaging.Crop(src, image.Rect(0, 0, half, h))
	right := imaging.Crop(src, image.Rect(half, 0, w, h))

	inner := imaging.New(w, h, color.NRGBA{})
	if half > 0 {
		inner = imaging.Paste(inner, left, image.Pt(0, 0))
		inner = imaging.Paste(inner, imaging.FlipH(left), image.Pt(w-half, 0))
	}
	if w%2 == 1 {
		inner = imaging.Paste(inner, imaging.Crop(src, image.Rect(half, 0, half+1, h)), image.Pt(half, 0))
	}

	outer := imaging.New(w, h, color.NRGBA{})
	outer = imaging.Paste(outer, imaging.FlipH(right), image.Pt(0, 0))
	outer = imaging.Paste(outer, right, image.Pt(half, 0))

	return MirrorImages{Inner: inner, Outer: outer}
}

// SplitEncoded decodes data, splits it and encodes both halves
func SplitEncoded(data []byte, format Format) (models.MirrorPair, error) {
	img, err := Decode(data)
	if err != nil {
		return models.MirrorPair{}, err
	}
	return encodePair(Split(img), format)
}

func encodePair(m MirrorImages, format Format) (models.MirrorPair, error) {
	var pair models.MirrorPair
	var g errgroup.Group
	g.Go(func() error {
		var err error
		pair.Inner, err = EncodeImage(m.Inner, format)
		return err
	})
	g.Go(func() error {
		var err error
		pair.Outer, err = EncodeImage(m.Outer, format)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.MirrorPair{}, err
	}
	return pair, nil
}

// AlignAndSplit runs the confirm step of mirror mode: the aligned photo
// becomes the new primary image and the pair is derived from it.
func AlignAndSplit(data []byte, st AlignmentState, size int, format Format) (models.Image, models.MirrorPair, error) {
	src, err := Decode(data)
	if err != nil {
		return models.Image{}, models.MirrorPair{}, err
	}
	aligned, err := Align(src, st, size)
	if err != nil {
		return models.Image{}, models.MirrorPair{}, err
	}

	var (
		alignedImg models.Image
		pair       models.MirrorPair
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		alignedImg, err = EncodeImage(aligned, format)
		return err
	})
	g.Go(func() error {
		var err error
		pair, err = encodePair(Split(aligned), format)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Image{}, models.MirrorPair{}, err
	}
	return alignedImg, pair, nil
}

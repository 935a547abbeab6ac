package imageproc

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Bounds is the dimensional contract of the downstream model.
type Bounds struct {
	MinSide int
	MaxSide int
}

// TargetSize computes the output dimensions for a w×h image. Downscaling to
// fit MaxSide takes precedence; otherwise a shorter side below MinSide is
// scaled up to MinSide. Aspect ratio is preserved up to rounding.
func TargetSize(w, h int, b Bounds) (int, int, bool) {
	if w <= 0 || h <= 0 {
		return w, h, false
	}

	switch {
	case w > b.MaxSide || h > b.MaxSide:
		scale := float64(b.MaxSide) / float64(max(w, h))
		if w >= h {
			return b.MaxSide, scaleSide(h, scale), true
		}
		return scaleSide(w, scale), b.MaxSide, true

	case min(w, h) < b.MinSide:
		scale := float64(b.MinSide) / float64(min(w, h))
		if w <= h {
			return b.MinSide, scaleSide(h, scale), true
		}
		return scaleSide(w, scale), b.MinSide, true
	}

	return w, h, false
}

func scaleSide(side int, scale float64) int {
	return max(1, int(math.Round(float64(side)*scale)))
}

type Normalizer struct {
	bounds Bounds
	filter imaging.ResampleFilter
}

func NewNormalizer(b Bounds) *Normalizer {
	return &Normalizer{bounds: b, filter: imaging.Lanczos}
}

// Normalize resamples img into the configured bounds. Images already inside
// the bounds are returned untouched.
func (n *Normalizer) Normalize(img image.Image) image.Image {
	size := img.Bounds().Size()
	w, h, changed := TargetSize(size.X, size.Y, n.bounds)
	if !changed {
		return img
	}
	return imaging.Resize(img, w, h, n.filter)
}

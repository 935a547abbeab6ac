package imageproc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const DataURIPrefix = "data:image/jpeg;base64,"

// Encoder re-encodes rasters to JPEG and wraps them as data URIs.
type Encoder struct {
	quality int
}

func NewEncoder(quality int) *Encoder {
	return &Encoder{quality: quality}
}

func (e *Encoder) EncodeDataURI(img image.Image) (string, error) {
	img = flatten(img)

	var out bytes.Buffer
	out.WriteString(DataURIPrefix)

	b64 := base64.NewEncoder(base64.StdEncoding, &out)
	if err := imaging.Encode(b64, img, imaging.JPEG, imaging.JPEGQuality(e.quality)); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	if err := b64.Close(); err != nil {
		return "", fmt.Errorf("finalise base64 encoding: %w", err)
	}
	return out.String(), nil
}

// flatten composites transparent images onto white, since JPEG has no alpha.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	size := img.Bounds().Size()
	bg := imaging.New(size.X, size.Y, color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

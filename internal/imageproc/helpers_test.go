package imageproc

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/kdduha/property-inspector/backend/internal/config"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testImageConfig() config.ImageConfig {
	return config.ImageConfig{
		MaxUploadBytes: 20 << 20,
		MaxSide:        2000,
		MinSide:        768,
		MaxPixels:      50_000_000,
		JPEGQuality:    85,
		Workers:        4,
	}
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return encodePNG(t, img)
}

func noisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.UintN(256))
	}
	return encodePNG(t, img)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// withPNGSize rewrites the IHDR dimensions of an encoded PNG. Only the header
// changes, so the file stays small while claiming an arbitrary raster size.
func withPNGSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	// 8-byte signature, 4-byte length, then "IHDR" and its 13-byte payload.
	const ihdrType, ihdrData, ihdrCRC = 12, 16, 29
	if len(data) < ihdrCRC+4 || string(data[ihdrType:ihdrData]) != "IHDR" {
		t.Fatalf("not a png")
	}

	out := bytes.Clone(data)
	binary.BigEndian.PutUint32(out[ihdrData:], w)
	binary.BigEndian.PutUint32(out[ihdrData+4:], h)
	binary.BigEndian.PutUint32(out[ihdrCRC:], crc32.ChecksumIEEE(out[ihdrType:ihdrCRC]))
	return out
}

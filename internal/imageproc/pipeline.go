package imageproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"runtime"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kdduha/property-inspector/backend/internal/apperror"
	"github.com/kdduha/property-inspector/backend/internal/config"
	"github.com/kdduha/property-inspector/backend/internal/metrics"
)

// DefaultMaxPixels caps source and resized rasters when the config leaves it unset.
const DefaultMaxPixels = 50_000_000

// DecodeFunc decodes a raster from r.
type DecodeFunc func(r io.Reader) (image.Image, error)

// Result is the image reference forwarded to the inference service.
type Result struct {
	Source   Kind
	Filename string
	// URL is either the caller's URL or a JPEG data URI.
	URL string

	OriginalWidth  int
	OriginalHeight int
	Width          int
	Height         int
}

type Pipeline struct {
	validator  *Validator
	normalizer *Normalizer
	encoder    *Encoder
	decode     DecodeFunc
	maxPixels  int64
	workers    int
	logger     *logrus.Logger
}

type Option func(*Pipeline)

// WithDecoder replaces the image decoder.
func WithDecoder(decode DecodeFunc) Option {
	return func(p *Pipeline) {
		p.decode = decode
	}
}

func NewPipeline(cfg config.ImageConfig, logger *logrus.Logger, opts ...Option) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	maxPixels := cfg.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	p := &Pipeline{
		validator:  NewValidator(cfg.MaxUploadBytes),
		normalizer: NewNormalizer(Bounds{MinSide: cfg.MinSide, MaxSide: cfg.MaxSide}),
		encoder:    NewEncoder(cfg.JPEGQuality),
		decode:     func(r io.Reader) (image.Image, error) { return imaging.Decode(r) },
		maxPixels:  maxPixels,
		workers:    workers,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process validates every input, then normalizes and encodes uploads in
// parallel. The returned slice has the same order as inputs.
func (p *Pipeline) Process(ctx context.Context, inputs []Input) ([]Result, error) {
	if len(inputs) == 0 {
		return nil, apperror.NoImageProvided()
	}
	if err := p.validator.ValidateAll(inputs); err != nil {
		return nil, err
	}

	results := make([]Result, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, in := range inputs {
		if in.Kind == KindURL {
			results[i] = Result{Source: KindURL, URL: in.URL}
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.processUpload(in)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) processUpload(in Input) (res Result, err error) {
	start := time.Now()
	format := Extension(in.Filename)
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.FilePreprocessTotal(status, format)
		metrics.FilePreprocessDuration(status, format, time.Since(start))
	}()

	rc, err := in.Open()
	if err != nil {
		return Result{}, apperror.Internal("open upload", err)
	}
	defer rc.Close()

	// Declared sizes come from the client, so the read is capped as well.
	limited := &io.LimitedReader{R: rc, N: p.validator.MaxBytes() + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return Result{}, apperror.Internal(fmt.Sprintf("read upload %q", in.Filename), err)
	}
	if int64(len(data)) > p.validator.MaxBytes() {
		return Result{}, apperror.PayloadTooLarge(fmt.Sprintf(
			"File %q exceeds the maximum size of %s.", in.Filename, megabytes(p.validator.MaxBytes())))
	}

	if err := p.checkDimensions(in.Filename, data); err != nil {
		return Result{}, err
	}

	img, err := p.decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, apperror.Internal(fmt.Sprintf("decode image %q", in.Filename), err)
	}

	orig := img.Bounds().Size()
	img = p.normalizer.Normalize(img)
	size := img.Bounds().Size()

	uri, err := p.encoder.EncodeDataURI(img)
	if err != nil {
		return Result{}, apperror.Internal(fmt.Sprintf("encode image %q", in.Filename), err)
	}

	p.logger.WithFields(logrus.Fields{
		"filename":        in.Filename,
		"format":          format,
		"original_width":  orig.X,
		"original_height": orig.Y,
		"width":           size.X,
		"height":          size.Y,
		"encoded_bytes":   len(uri),
		"duration_ms":     time.Since(start).Milliseconds(),
	}).Debug("image normalized")

	return Result{
		Source:         KindUpload,
		Filename:       in.Filename,
		URL:            uri,
		OriginalWidth:  orig.X,
		OriginalHeight: orig.Y,
		Width:          size.X,
		Height:         size.Y,
	}, nil
}

// checkDimensions reads only the image header and rejects rasters whose
// source or resized pixel count exceeds the configured limit.
func (p *Pipeline) checkDimensions(filename string, data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return apperror.Internal(fmt.Sprintf("decode image header %q", filename), err)
	}

	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > p.maxPixels {
		return apperror.PayloadTooLarge(fmt.Sprintf(
			"Image %q is %dx%d pixels, above the limit of %d pixels.",
			filename, cfg.Width, cfg.Height, p.maxPixels))
	}

	w, h, _ := TargetSize(cfg.Width, cfg.Height, p.normalizer.bounds)
	if pixels := int64(w) * int64(h); pixels > p.maxPixels {
		return apperror.PayloadTooLarge(fmt.Sprintf(
			"Image %q is %dx%d pixels; resizing it to %dx%d would exceed the limit of %d pixels.",
			filename, cfg.Width, cfg.Height, w, h, p.maxPixels))
	}
	return nil
}

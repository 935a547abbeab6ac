package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kdduha/property-inspector/backend/internal/apperror"
)

const (
	FieldImageURL = "image_url"
	FieldImage    = "image"

	formMemory = 32 << 20
)

type Kind int

const (
	KindURL Kind = iota + 1
	KindUpload
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// Input is one image supplied by a request: either a URL reference or an
// uploaded file whose bytes are read only after validation.
type Input struct {
	Kind         Kind
	URL          string
	Filename     string
	DeclaredSize int64

	open func() (io.ReadCloser, error)
}

func URLInput(url string) Input {
	return Input{Kind: KindURL, URL: url}
}

func UploadInput(filename string, declaredSize int64, open func() (io.ReadCloser, error)) Input {
	return Input{
		Kind:         KindUpload,
		Filename:     filename,
		DeclaredSize: declaredSize,
		open:         open,
	}
}

// BytesInput wraps an in-memory upload.
func BytesInput(filename string, data []byte) Input {
	return UploadInput(filename, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

func (in Input) Open() (io.ReadCloser, error) {
	if in.Kind != KindUpload || in.open == nil {
		return nil, fmt.Errorf("input %q has no upload body", in.Filename)
	}
	return in.open()
}

// ResolveRequest extracts the image inputs from a multipart or urlencoded
// form. A non-empty image_url wins over uploads; uploads keep form order.
func ResolveRequest(r *http.Request) ([]Input, error) {
	if err := r.ParseMultipartForm(formMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.PayloadTooLarge(
				fmt.Sprintf("Request body exceeds the maximum size of %d MB.", tooLarge.Limit>>20))
		}
		return nil, apperror.Internal("parse form", err)
	}

	if url := strings.TrimSpace(r.PostFormValue(FieldImageURL)); url != "" {
		return []Input{URLInput(url)}, nil
	}

	if r.MultipartForm == nil {
		return nil, apperror.NoImageProvided()
	}

	headers := r.MultipartForm.File[FieldImage]
	if len(headers) == 0 {
		return nil, apperror.NoImageProvided()
	}

	inputs := make([]Input, 0, len(headers))
	for _, fh := range headers {
		inputs = append(inputs, UploadInput(fh.Filename, fh.Size, func() (io.ReadCloser, error) {
			return fh.Open()
		}))
	}
	return inputs, nil
}

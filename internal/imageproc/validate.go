package imageproc

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kdduha/property-inspector/backend/internal/apperror"
)

// AllowedExtensions is the upload allow-list, compared case-insensitively.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "webp"}

// Validator checks uploads against the size limit and the extension
// allow-list. It never reads image bytes.
type Validator struct {
	maxBytes int64
	allowed  map[string]struct{}
}

func NewValidator(maxBytes int64) *Validator {
	allowed := make(map[string]struct{}, len(AllowedExtensions))
	for _, ext := range AllowedExtensions {
		allowed[ext] = struct{}{}
	}
	return &Validator{maxBytes: maxBytes, allowed: allowed}
}

func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate returns nil for URL inputs; they are forwarded as-is.
func (v *Validator) Validate(in Input) error {
	if in.Kind != KindUpload {
		return nil
	}

	if in.DeclaredSize > v.maxBytes {
		return apperror.PayloadTooLarge(fmt.Sprintf(
			"File %q exceeds the maximum size of %s.", in.Filename, megabytes(v.maxBytes)))
	}

	ext := Extension(in.Filename)
	if _, ok := v.allowed[ext]; !ok {
		return apperror.UnsupportedFormat(fmt.Sprintf(
			"Unsupported file format for %q. Allowed formats: %s.",
			in.Filename, strings.Join(AllowedExtensions, ", ")))
	}
	return nil
}

// ValidateAll stops at the first invalid input.
func (v *Validator) ValidateAll(inputs []Input) error {
	for _, in := range inputs {
		if err := v.Validate(in); err != nil {
			return err
		}
	}
	return nil
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func megabytes(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no image", NoImageProvided(), http.StatusBadRequest},
		{"too large", PayloadTooLarge("big"), http.StatusBadRequest},
		{"format", UnsupportedFormat("bmp"), http.StatusBadRequest},
		{"wrapped format", fmt.Errorf("item 2: %w", UnsupportedFormat("bmp")), http.StatusBadRequest},
		{"inference", InferenceFailure(errors.New("quota")), http.StatusInternalServerError},
		{"internal", Internal("decode", errors.New("eof")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	if got := PublicMessage(NoImageProvided()); got != "No image provided." {
		t.Errorf("got %q", got)
	}
	cause := errors.New("rate limited")
	if got := PublicMessage(InferenceFailure(cause)); got != "inference request failed: rate limited" {
		t.Errorf("got %q", got)
	}
	if got := PublicMessage(errors.New("boom")); got != "boom" {
		t.Errorf("got %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("eof")
	err := Internal("decode image", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
}

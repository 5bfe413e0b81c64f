package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("loading doc 3: %w", ErrDocumentNotFound), http.StatusNotFound},
		{"threshold", ErrInvalidThreshold, http.StatusBadRequest},
		{"hit count", fmt.Errorf("evaluate: %w", ErrInvalidHitCount), http.StatusBadRequest},
		{"unknown ranker", ErrUnknownRanker, http.StatusBadRequest},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"app error", New(ErrInternal, http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidationSentinelsWrapInvalidInput(t *testing.T) {
	for _, err := range []error{ErrInvalidThreshold, ErrInvalidHitCount, ErrUnknownRanker} {
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%v does not wrap ErrInvalidInput", err)
		}
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrDocumentNotFound, http.StatusNotFound, "document %d", 42)
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatal("AppError should unwrap to its sentinel")
	}
	if err.Error() != "document not found: document 42" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusByKind(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{Validation("prompt is required"), http.StatusBadRequest},
		{Authorization("must pay to unlock"), http.StatusForbidden},
		{Configuration("PINATA_JWT not set"), http.StatusInternalServerError},
		{Upstream(errors.New("boom"), "pin failed"), http.StatusInternalServerError},
		{EmptyResult("no images returned"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.status {
			t.Fatalf("kind %d: expected status %d, got %d", tc.err.Kind, tc.status, got)
		}
	}
}

func TestFromPreservesWrappedKind(t *testing.T) {
	orig := Authorization("You must pay to unlock this model")
	wrapped := fmt.Errorf("generate: %w", orig)

	got := From(wrapped)
	if got.Kind != KindAuthorization {
		t.Fatalf("expected authorization kind through wrapping, got %d", got.Kind)
	}
	if !IsKind(wrapped, KindAuthorization) {
		t.Fatalf("IsKind should see through fmt.Errorf wrapping")
	}
}

func TestFromUnknownErrorBecomesUpstream(t *testing.T) {
	got := From(errors.New("connection refused"))
	if got.Kind != KindUpstream {
		t.Fatalf("expected upstream kind, got %d", got.Kind)
	}
	if got.Details != "connection refused" {
		t.Fatalf("expected original message in details, got %q", got.Details)
	}
}

func TestUpstreamDetailMessage(t *testing.T) {
	err := UpstreamDetail("Pinata image upload failed", "file too large")
	if err.Error() != "Pinata image upload failed: file too large" {
		t.Fatalf("unexpected error string: %q", err.Error())
	}
}

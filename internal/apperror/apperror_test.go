package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindBadRequest, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.HTTPStatus(); got != tt.want {
				t.Fatalf("expected status %d got %d", tt.want, got)
			}
		})
	}
}

func TestKindOfWrappedError(t *testing.T) {
	base := NotFound("channel does not exist")
	wrapped := fmt.Errorf("profile: %w", base)

	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("expected not found kind, got %v", KindOf(wrapped))
	}
	if MessageOf(wrapped) != "channel does not exist" {
		t.Fatalf("unexpected message %q", MessageOf(wrapped))
	}
	if !errors.Is(wrapped, &Error{Kind: KindNotFound}) {
		t.Fatal("expected errors.Is to match on kind")
	}
	if errors.Is(wrapped, &Error{Kind: KindConflict}) {
		t.Fatal("expected errors.Is not to match a different kind")
	}
}

func TestForeignErrorsAreInternal(t *testing.T) {
	err := errors.New("pq: connection refused")

	if KindOf(err) != KindInternal {
		t.Fatalf("expected internal kind, got %v", KindOf(err))
	}
	if MessageOf(err) != "internal server error" {
		t.Fatalf("expected generic message, got %q", MessageOf(err))
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal("failed to save", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
	if err.Error() != "failed to save: disk full" {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestCodeOf(t *testing.T) {
	err := Validation("bad url %q", "notaurl")
	if CodeOf(err) != CodeValidation {
		t.Errorf("Expected code %q, got %q", CodeValidation, CodeOf(err))
	}

	wrapped := fmt.Errorf("handling request: %w", err)
	if CodeOf(wrapped) != CodeValidation {
		t.Error("Expected code to survive wrapping")
	}

	if CodeOf(errors.New("plain")) != "" {
		t.Error("Expected empty code for foreign error")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("no content"), http.StatusBadRequest},
		{MalformedSubmission("2 placeholders, 1 part"), http.StatusBadRequest},
		{InvalidCredentials(), http.StatusUnauthorized},
		{Forbidden(), http.StatusForbidden},
		{Storage(errors.New("disk full")), http.StatusInternalServerError},
		{Persistence(errors.New("db locked")), http.StatusInternalServerError},
		{errors.New("unknown"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestCauseStaysServerSide(t *testing.T) {
	cause := errors.New("open /var/lib/secret: permission denied")
	err := Storage(cause)

	if !errors.Is(err, cause) {
		t.Error("Expected cause to be reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Error("Expected full Error() string to include cause for logging")
	}
	if err.Message != "storage failure" {
		t.Errorf("Client-facing message leaks detail: %q", err.Message)
	}
}

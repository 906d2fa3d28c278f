package lifecycle

import (
	"errors"
	"net/http"
	"testing"
)

func TestKindStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		BadRequest:          http.StatusBadRequest,
		Unauthorized:        http.StatusUnauthorized,
		Forbidden:           http.StatusForbidden,
		NotFound:            http.StatusNotFound,
		Conflict:            http.StatusConflict,
		RegistryUnavailable: http.StatusServiceUnavailable,
		DeploymentFailed:    http.StatusInternalServerError,
		IoError:             http.StatusInternalServerError,
		TemplateError:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.Status(); got != want {
			t.Errorf("%s.Status() = %d, want %d", kind, got, want)
		}
	}
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(Conflict, "fingerprint mismatch", base)
	if KindOf(wrapped) != Conflict {
		t.Fatalf("kind = %s", KindOf(wrapped))
	}
	if !errors.Is(wrapped, base) {
		t.Fatal("expected Unwrap to expose base error")
	}
}

func TestKindOfDefaultsToIoError(t *testing.T) {
	if KindOf(errors.New("unclassified")) != IoError {
		t.Fatal("expected unclassified error to default to IoError")
	}
}

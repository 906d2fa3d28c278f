package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"autopeer/pkg/auth"
	"autopeer/pkg/deploy"
	"autopeer/pkg/lifecycle"
	"autopeer/pkg/store"
)

const testSecret = "test-secret"

type noopMirror struct{}

func (noopMirror) EnsureFresh(ctx context.Context) (string, error) {
	return "", lifecycle.Wrap(lifecycle.RegistryUnavailable, "no registry configured in test", nil)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	pending := filepath.Join(t.TempDir(), "pending")
	verified := filepath.Join(t.TempDir(), "verified")
	st := store.New(pending, verified)
	dep := deploy.New(&deploy.FakeRunner{})
	engine := lifecycle.New(4242420000, testSecret, noopMirror{}, st, dep,
		filepath.Join(t.TempDir(), "wireguard"), filepath.Join(t.TempDir(), "frr"))
	return NewServer(engine, testSecret, []string{"localhost"}, nil)
}

func bearer(t *testing.T, asn uint32) string {
	t.Helper()
	tok, err := auth.Generate(asn, testSecret, 0)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestInitOutOfRangeAsnIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	rec := doRequest(t, mux, http.MethodPost, "/peering/init", "", `{"asn": 1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body=%s", rec.Code, rec.Body.String())
	}
}

func TestInitUnregisteredAsnSurfacesRegistryFailure(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	rec := doRequest(t, mux, http.MethodPost, "/peering/init", "", `{"asn": 4242420001}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503; body=%s", rec.Code, rec.Body.String())
	}
}

func TestStatusWithoutTokenIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	rec := doRequest(t, mux, http.MethodGet, "/peering/status", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401; body=%s", rec.Code, rec.Body.String())
	}
}

// TestDeployAsnConfusionIsForbidden exercises the scenario where a caller's
// token authenticates as one ASN but the request body names another: the
// token's ASN is the only authoritative identity, and any mismatch must
// surface as 403 before the request reaches the lifecycle engine.
func TestDeployAsnConfusionIsForbidden(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	token := bearer(t, 4242421234)
	rec := doRequest(t, mux, http.MethodPost, "/peering/deploy", token, `{"asn": 4242420001}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body=%s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "forbidden" {
		t.Fatalf("error = %q, want forbidden", resp.Error)
	}
}

func TestDeployWithMatchingAsnReachesEngine(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	token := bearer(t, 4242421234)
	// No verified record exists yet, so this should reach the engine and
	// fail NotFound (404), not get rejected by the ASN cross-check (403).
	rec := doRequest(t, mux, http.MethodPost, "/peering/deploy", token, `{"asn": 4242421234}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404; body=%s", rec.Code, rec.Body.String())
	}
}

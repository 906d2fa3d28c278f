package api

import (
	"encoding/json"
	"log"
	"net/http"

	"autopeer/pkg/lifecycle"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps a lifecycle.Error to its HTTP status and a JSON body;
// anything not classified surfaces as 500 without leaking its detail.
func writeError(w http.ResponseWriter, err error) {
	kind := lifecycle.KindOf(err)
	writeJSON(w, kind.Status(), errorResponse{Error: kind.String()})
}

// checkASNClaim cross-checks an ASN that appeared somewhere else in an
// authenticated request body against the token's claim. The token's ASN
// is always the authoritative identity; a zero bodyASN means the request
// didn't mention one, which is fine. Any mismatch is Forbidden.
func checkASNClaim(bodyASN, tokenASN uint32) error {
	if bodyASN != 0 && bodyASN != tokenASN {
		return lifecycle.NewError(lifecycle.Forbidden, "asn in request body does not match authenticated token")
	}
	return nil
}

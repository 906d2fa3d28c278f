// Package api exposes the lifecycle engine over HTTP, matching the
// init/verify/deploy/status/update/deactivate/delete surface bilateral
// peers drive their side of a peering through.
package api

import (
	"encoding/json"
	"net/http"

	"autopeer/pkg/auth"
	"autopeer/pkg/lifecycle"
)

// Server wires an Engine to a net/http.ServeMux.
type Server struct {
	Engine        *lifecycle.Engine
	JWTSecret     string
	CookieDomains []string
	Hub           *EventHub
}

// NewServer builds a Server. hub may be nil to disable the websocket surface.
func NewServer(engine *lifecycle.Engine, jwtSecret string, cookieDomains []string, hub *EventHub) *Server {
	if hub == nil {
		hub = NewEventHub()
	}
	return &Server{Engine: engine, JWTSecret: jwtSecret, CookieDomains: cookieDomains, Hub: hub}
}

// RegisterRoutes mounts the peering surface under /peering.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/peering/init", s.handleInit)
	mux.HandleFunc("/peering/verify", s.handleVerify)
	mux.HandleFunc("/peering/deploy", s.requireAuth(s.handleDeploy))
	mux.HandleFunc("/peering/status", s.requireAuth(s.handleStatus))
	mux.HandleFunc("/peering/config", s.requireAuth(s.handleConfig))
	mux.HandleFunc("/peering/update", s.requireAuth(s.handleUpdate))
	mux.HandleFunc("/peering/activate", s.requireAuth(s.handleActivate))
	mux.HandleFunc("/peering/deactivate", s.requireAuth(s.handleDeactivate))
	mux.HandleFunc("/peering/events", s.Hub.HandleWS(s.JWTSecret))
	mux.HandleFunc("/peering/", s.requireAuth(s.handleDelete))
	mux.HandleFunc("/healthz", s.handleHealthz)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

type initRequest struct {
	ASN uint32 `json:"asn"`
}

type initResponse struct {
	Challenge      string `json:"challenge"`
	PGPFingerprint string `json:"pgp_fingerprint"`
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var req initRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}
	result, err := s.Engine.Init(r.Context(), req.ASN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initResponse{Challenge: result.Challenge, PGPFingerprint: result.Fingerprint})
}

type verifyRequest struct {
	ASN             uint32 `json:"asn"`
	SignedChallenge string `json:"signed_challenge"`
	PublicKey       string `json:"public_key"`
	WgPublicKey     string `json:"wg_public_key"`
	Endpoint        string `json:"endpoint"`
}

type verifyResponse struct {
	Token           string `json:"token"`
	WireguardConfig string `json:"wireguard_config"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}
	result, err := s.Engine.Verify(r.Context(), lifecycle.VerifyRequest{
		ASN:             req.ASN,
		SignedChallenge: req.SignedChallenge,
		PublicKey:       req.PublicKey,
		WgPublicKey:     req.WgPublicKey,
		Endpoint:        req.Endpoint,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.setTokenCookie(w, result.Token)
	s.Hub.Publish(Event{Type: "verified", ASN: req.ASN, Status: "verified"})
	writeJSON(w, http.StatusOK, verifyResponse{Token: result.Token, WireguardConfig: result.WireguardConfig})
}

type deploymentView struct {
	ASN                uint32 `json:"asn"`
	Status             string `json:"status"`
	ListenPort         int    `json:"listen_port"`
	LocalTunnelAddress string `json:"local_tunnel_address"`
	PeerTunnelAddress  string `json:"peer_tunnel_address"`
	PeerEndpoint       string `json:"peer_endpoint"`
}

type deploymentResponse struct {
	Deployment deploymentView `json:"deployment"`
}

func toDeploymentView(v lifecycle.StatusView) deploymentView {
	return deploymentView{
		ASN:                v.ASN,
		Status:             string(v.Status),
		ListenPort:         v.ListenPort,
		LocalTunnelAddress: v.LocalTunnelAddress,
		PeerTunnelAddress:  v.PeerTunnelAddress,
		PeerEndpoint:       v.PeerEndpoint,
	}
}

type deployRequest struct {
	ASN         uint32 `json:"asn,omitempty"`
	WgPublicKey string `json:"wg_public_key,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var req deployRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := checkASNClaim(req.ASN, claims.ASN); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Engine.Deploy(r.Context(), claims.ASN); err != nil {
		writeError(w, err)
		return
	}
	s.Hub.Publish(Event{Type: "deployed", ASN: claims.ASN, Status: "deployed"})
	view, err := s.Engine.Status(claims.ASN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deploymentResponse{Deployment: toDeploymentView(view)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	view, err := s.Engine.Status(claims.ASN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deploymentResponse{Deployment: toDeploymentView(view)})
}

type configResponse struct {
	WireguardConfig string `json:"wireguard_config"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	text, err := s.Engine.Config(claims.ASN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{WireguardConfig: text})
}

type updateRequest struct {
	ASN      uint32 `json:"asn,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if r.Method != http.MethodPatch {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var req updateRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := checkASNClaim(req.ASN, claims.ASN); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Engine.Update(r.Context(), claims.ASN, req.Endpoint); err != nil {
		writeError(w, err)
		return
	}
	s.Hub.Publish(Event{Type: "updated", ASN: claims.ASN, Status: "deployed"})
	writeJSON(w, http.StatusOK, statusResponse{Status: "deployed"})
}

type asnCheckRequest struct {
	ASN uint32 `json:"asn,omitempty"`
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var req asnCheckRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := checkASNClaim(req.ASN, claims.ASN); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Engine.Deploy(r.Context(), claims.ASN); err != nil {
		writeError(w, err)
		return
	}
	s.Hub.Publish(Event{Type: "activated", ASN: claims.ASN, Status: "deployed"})
	writeJSON(w, http.StatusOK, statusResponse{Status: "deployed"})
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var req asnCheckRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := checkASNClaim(req.ASN, claims.ASN); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Engine.Deactivate(r.Context(), claims.ASN); err != nil {
		writeError(w, err)
		return
	}
	s.Hub.Publish(Event{Type: "deactivated", ASN: claims.ASN, Status: "inactive"})
	writeJSON(w, http.StatusOK, statusResponse{Status: "inactive"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var req asnCheckRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := checkASNClaim(req.ASN, claims.ASN); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Engine.Delete(r.Context(), claims.ASN); err != nil {
		writeError(w, err)
		return
	}
	s.Hub.Publish(Event{Type: "deleted", ASN: claims.ASN, Status: "absent"})
	writeJSON(w, http.StatusOK, statusResponse{Status: "absent"})
}

// Package lifecycle implements the peering state machine: the only
// component that composes the registry, signature verification,
// allocation, persistence, rendering, tokens and deployment into the
// init/verify/deploy/update/deactivate/delete operations the HTTP surface
// exposes.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"autopeer/pkg/alloc"
	"autopeer/pkg/auth"
	"autopeer/pkg/challenge"
	"autopeer/pkg/deploy"
	"autopeer/pkg/frr"
	"autopeer/pkg/model"
	"autopeer/pkg/pgp"
	"autopeer/pkg/registry"
	"autopeer/pkg/store"
	"autopeer/pkg/wireguard"
)

// AuditLog is the subset of *audit.Log the engine depends on, kept as an
// interface here so pkg/lifecycle never imports the sqlite driver.
type AuditLog interface {
	Append(ctx context.Context, entry model.AuditEntry) error
}

// writeSystemFile writes content to the well-known system path the
// Deployer's Runner reads from, creating its parent directory if needed.
func writeSystemFile(path, content string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), perm)
}

// RegistryMirror is the subset of *registry.Mirror the engine depends on.
// Tests substitute a stub that points at a fixture directory instead of
// driving a real git clone.
type RegistryMirror interface {
	EnsureFresh(ctx context.Context) (string, error)
}

// Engine orchestrates one host's peering lifecycle. All exported methods
// are safe for concurrent use across distinct ASNs; the state-changing
// operations on the same ASN are serialized by a per-ASN mutex, while the
// read-only Status and Config take no lock.
type Engine struct {
	MyASN     uint32
	JWTSecret string

	Mirror   RegistryMirror
	Store    *store.TwoPhase
	Deployer *deploy.Deployer

	// Audit is optional; when set, Init and Verify append an entry
	// best-effort, never blocking or failing the transition itself.
	// Deploy, Update, Deactivate and Delete do not append entries.
	Audit AuditLog

	// TunnelConfigDir and FRRPeerDir are the well-known system
	// directories the Deployer's Runner reads its config files from.
	TunnelConfigDir string
	FRRPeerDir      string

	now          func() time.Time
	genChallenge func(asn uint32) (string, error)
	mus          sync.Map // asn -> *sync.Mutex
}

// New builds an Engine. now and genChallenge default to time.Now and
// challenge.Generate if nil, overridable only by tests.
func New(myASN uint32, jwtSecret string, mirror RegistryMirror, st *store.TwoPhase, dep *deploy.Deployer, tunnelDir, frrDir string) *Engine {
	return &Engine{
		MyASN:           myASN,
		JWTSecret:       jwtSecret,
		Mirror:          mirror,
		Store:           st,
		Deployer:        dep,
		TunnelConfigDir: tunnelDir,
		FRRPeerDir:      frrDir,
		now:             time.Now,
		genChallenge:    challenge.Generate,
	}
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

func (e *Engine) lockFor(asn uint32) *sync.Mutex {
	mu, _ := e.mus.LoadOrStore(asn, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (e *Engine) iface(asn uint32) string {
	return model.InterfaceNameForASN(asn)
}

func (e *Engine) record(ctx context.Context, action, iface, detail string) {
	if e.Audit == nil {
		return
	}
	entry := model.AuditEntry{Actor: "lifecycle", Action: action, Target: iface, Detail: detail}
	if err := e.Audit.Append(ctx, entry); err != nil {
		log.Printf("audit append failed: %v", err)
	}
}

// refreshRegistry retries the mirror refresh once with a short backoff on
// transient failures, per the recovery policy: the only retries are
// transient registry-refresh failures.
func (e *Engine) refreshRegistry(ctx context.Context) (string, error) {
	path, err := e.Mirror.EnsureFresh(ctx)
	if err == nil {
		return path, nil
	}
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return "", Wrap(RegistryUnavailable, "registry refresh", ctx.Err())
	}
	path, err = e.Mirror.EnsureFresh(ctx)
	if err != nil {
		return "", Wrap(RegistryUnavailable, "registry refresh", err)
	}
	return path, nil
}

// DefaultPendingTTL is how long an unverified pending record is kept
// before Recover treats its challenge as abandoned and drops it.
const DefaultPendingTTL = 24 * time.Hour

// Recover runs the process-start recovery pass: it clears stray temp
// files left by a crash mid-write in either store bucket, and drops
// pending records whose challenge has gone stale (no verify arrived
// within ttl of init). ttl defaults to DefaultPendingTTL when zero.
func (e *Engine) Recover(ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	cutoff := e.clock().Add(-ttl)
	return e.Store.Sweep(func(iface, content string) bool {
		cfg, err := wireguard.FromString(content)
		if err != nil {
			return true
		}
		record, err := model.FromWireguardConfig(cfg)
		if err != nil {
			return true
		}
		return record.CreatedAt.Before(cutoff)
	})
}

// InitResult is what Init returns to the caller.
type InitResult struct {
	Challenge   string
	Fingerprint string
}

// Init begins a peering for asn: it proves the ASN is registered, mints a
// fresh challenge and tunnel keypair, and persists a pending record.
func (e *Engine) Init(ctx context.Context, asn uint32) (InitResult, error) {
	if err := ValidateASN(asn); err != nil {
		return InitResult{}, err
	}

	mu := e.lockFor(asn)
	mu.Lock()
	defer mu.Unlock()

	registryPath, err := e.refreshRegistry(ctx)
	if err != nil {
		return InitResult{}, err
	}

	fingerprint, err := registry.GetPGPFingerprintForASN(registryPath, asn)
	if err != nil {
		return InitResult{}, Wrap(NotFound, fmt.Sprintf("asn %d not registered", asn), err)
	}

	gen := e.genChallenge
	if gen == nil {
		gen = challenge.Generate
	}
	code, err := gen(asn)
	if err != nil {
		return InitResult{}, Wrap(IoError, "generate challenge", err)
	}

	keypair, err := wireguard.GenerateKeypair()
	if err != nil {
		return InitResult{}, Wrap(IoError, "generate tunnel keypair", err)
	}

	allocation := alloc.Allocate(e.MyASN, asn)

	record := model.PeeringRecord{
		ASN:                asn,
		Status:             model.StatusPending,
		Challenge:          code,
		PGPFingerprint:     fingerprint,
		LocalPrivateKey:    keypair.PrivateKey,
		LocalPublicKey:     keypair.PublicKey,
		ListenPort:         allocation.ListenPort,
		LocalTunnelAddress: alloc.LocalAddr(allocation.Local),
		PeerTunnelAddress:  allocation.Peer,
		LocalASN:           e.MyASN,
		CreatedAt:          e.clock(),
	}

	content := record.ToWireguardConfig().String()
	if err := e.Store.Write(store.Pending, e.iface(asn), content); err != nil {
		return InitResult{}, Wrap(IoError, "persist pending record", err)
	}

	e.record(ctx, "init", e.iface(asn), fmt.Sprintf("asn=%d", asn))
	return InitResult{Challenge: code, Fingerprint: fingerprint}, nil
}

// VerifyRequest carries the claims a prospective peer submits to prove
// they control both the ASN and the tunnel endpoint they're requesting.
type VerifyRequest struct {
	ASN             uint32
	SignedChallenge string
	PublicKey       string // armored PGP public key
	WgPublicKey     string
	Endpoint        string
}

// VerifyResult is what Verify returns to the caller.
type VerifyResult struct {
	Token           string
	WireguardConfig string
}

// Verify checks a signed challenge against the pending record, promotes
// it to verified on success, and issues a bearer token.
func (e *Engine) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	if err := ValidateASN(req.ASN); err != nil {
		return VerifyResult{}, err
	}
	if err := ValidateWgPubkey(req.WgPublicKey); err != nil {
		return VerifyResult{}, err
	}
	if err := ValidateEndpoint(req.Endpoint); err != nil {
		return VerifyResult{}, err
	}
	if err := ValidatePGPKey(req.PublicKey); err != nil {
		return VerifyResult{}, err
	}
	if err := ValidateSignedChallenge(req.SignedChallenge); err != nil {
		return VerifyResult{}, err
	}

	mu := e.lockFor(req.ASN)
	mu.Lock()
	defer mu.Unlock()

	iface := e.iface(req.ASN)
	content, err := e.Store.Read(store.Pending, iface)
	if err != nil {
		return VerifyResult{}, Wrap(NotFound, "no pending record", err)
	}
	cfg, err := wireguard.FromString(content)
	if err != nil {
		return VerifyResult{}, Wrap(IoError, "parse pending record", err)
	}
	record, err := model.FromWireguardConfig(cfg)
	if err != nil {
		return VerifyResult{}, Wrap(IoError, "parse pending record", err)
	}
	if record.ASN != req.ASN {
		return VerifyResult{}, NewError(BadRequest, "asn mismatch")
	}

	verified, err := pgp.VerifyCleartext(req.SignedChallenge, req.PublicKey)
	if err != nil {
		return VerifyResult{}, Wrap(Unauthorized, "signature verification failed", err)
	}
	if verified.Plaintext != record.Challenge {
		return VerifyResult{}, NewError(Unauthorized, "challenge mismatch")
	}
	if verified.Fingerprint != record.PGPFingerprint {
		return VerifyResult{}, NewError(Conflict, "fingerprint mismatch")
	}
	keyMatches, err := pgp.VerifyKeyFingerprint(req.PublicKey, record.PGPFingerprint)
	if err != nil || !keyMatches {
		return VerifyResult{}, NewError(Conflict, "submitted key fingerprint mismatch")
	}

	local, peer := alloc.LinkLocal(e.MyASN, req.ASN)
	record.LocalTunnelAddress = alloc.LocalAddr(local)
	record.PeerTunnelAddress = peer
	record.PeerPublicKey = req.WgPublicKey
	record.PeerEndpoint = req.Endpoint
	record.Challenge = ""
	record.Status = model.StatusVerified
	record.VerifiedAt = e.clock()

	newContent := record.ToWireguardConfig().String()
	if err := e.Store.Promote(iface, newContent); err != nil {
		return VerifyResult{}, Wrap(IoError, "promote to verified", err)
	}

	token, err := auth.Generate(req.ASN, e.JWTSecret, 0)
	if err != nil {
		return VerifyResult{}, Wrap(IoError, "issue token", err)
	}

	e.record(ctx, "verify", iface, fmt.Sprintf("asn=%d", req.ASN))
	return VerifyResult{Token: token, WireguardConfig: newContent}, nil
}

func (e *Engine) loadVerified(asn uint32) (model.PeeringRecord, error) {
	content, err := e.Store.Read(store.Verified, e.iface(asn))
	if err != nil {
		return model.PeeringRecord{}, Wrap(NotFound, "no verified record", err)
	}
	cfg, err := wireguard.FromString(content)
	if err != nil {
		return model.PeeringRecord{}, Wrap(IoError, "parse verified record", err)
	}
	return model.FromWireguardConfig(cfg)
}

func (e *Engine) frrStanzaPath(asn uint32) string {
	return fmt.Sprintf("%s/%s.conf", e.FRRPeerDir, e.iface(asn))
}

func (e *Engine) tunnelConfigPath(asn uint32) string {
	return fmt.Sprintf("%s/%s.conf", e.TunnelConfigDir, e.iface(asn))
}

// Deploy loads the verified record for asn and activates the tunnel and
// BGP session.
func (e *Engine) Deploy(ctx context.Context, asn uint32) error {
	mu := e.lockFor(asn)
	mu.Lock()
	defer mu.Unlock()

	record, err := e.loadVerified(asn)
	if err != nil {
		return err
	}

	iface := e.iface(asn)
	if err := writeSystemFile(e.tunnelConfigPath(asn), record.ToWireguardConfig().String(), 0o600); err != nil {
		return Wrap(IoError, "write tunnel config", err)
	}
	stanza := frr.NewPeerConfig(e.MyASN, asn, fmt.Sprintf("AS%d", asn)).ToConfig()
	if err := writeSystemFile(e.frrStanzaPath(asn), stanza, 0o640); err != nil {
		return Wrap(IoError, "write bgpd stanza", err)
	}

	if err := e.Deployer.Deploy(ctx, e.tunnelConfigPath(asn), iface, e.frrStanzaPath(asn)); err != nil {
		os.Remove(e.tunnelConfigPath(asn))
		os.Remove(e.frrStanzaPath(asn))
		return Wrap(DeploymentFailed, "activate peering", err)
	}

	record.Status = model.StatusDeployed
	record.DeployedAt = e.clock()
	if err := e.Store.Write(store.Verified, iface, record.ToWireguardConfig().String()); err != nil {
		return Wrap(IoError, "persist deployed status", err)
	}
	return nil
}

// Status returns a projection of the verified record with no private keys
// or challenge material.
type StatusView struct {
	ASN                uint32
	Status             model.Status
	ListenPort         int
	LocalTunnelAddress string
	PeerTunnelAddress  string
	PeerEndpoint       string
}

func (e *Engine) Status(asn uint32) (StatusView, error) {
	record, err := e.loadVerified(asn)
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{
		ASN:                record.ASN,
		Status:             record.Status,
		ListenPort:         record.ListenPort,
		LocalTunnelAddress: record.LocalTunnelAddress,
		PeerTunnelAddress:  record.PeerTunnelAddress,
		PeerEndpoint:       record.PeerEndpoint,
	}, nil
}

// Config returns the full rendered tunnel config text for the verified
// record (GET /peering/config).
func (e *Engine) Config(asn uint32) (string, error) {
	record, err := e.loadVerified(asn)
	if err != nil {
		return "", err
	}
	return record.ToWireguardConfig().String(), nil
}

// Update changes the verified record's endpoint, if provided, and
// re-activates the peering (deactivate then deploy).
func (e *Engine) Update(ctx context.Context, asn uint32, endpoint string) error {
	if endpoint != "" {
		if err := ValidateEndpoint(endpoint); err != nil {
			return err
		}
	}

	mu := e.lockFor(asn)
	mu.Lock()
	defer mu.Unlock()

	record, err := e.loadVerified(asn)
	if err != nil {
		return err
	}
	if endpoint != "" {
		record.PeerEndpoint = endpoint
	}

	iface := e.iface(asn)
	if err := e.Deployer.Remove(ctx, iface, e.frrStanzaPath(asn), e.removeStanza(asn)); err != nil {
		return Wrap(DeploymentFailed, "deactivate before update", err)
	}

	if err := writeSystemFile(e.tunnelConfigPath(asn), record.ToWireguardConfig().String(), 0o600); err != nil {
		return Wrap(IoError, "write tunnel config", err)
	}
	stanza := frr.NewPeerConfig(e.MyASN, asn, fmt.Sprintf("AS%d", asn)).ToConfig()
	if err := writeSystemFile(e.frrStanzaPath(asn), stanza, 0o640); err != nil {
		return Wrap(IoError, "write bgpd stanza", err)
	}
	if err := e.Deployer.Deploy(ctx, e.tunnelConfigPath(asn), iface, e.frrStanzaPath(asn)); err != nil {
		return Wrap(DeploymentFailed, "re-activate peering", err)
	}

	record.Status = model.StatusDeployed
	if err := e.Store.Write(store.Verified, iface, record.ToWireguardConfig().String()); err != nil {
		return Wrap(IoError, "persist updated record", err)
	}
	return nil
}

func (e *Engine) removeStanza(asn uint32) string {
	return fmt.Sprintf("! autopeer removing AS%d\nrouter bgp %d\n no neighbor %s\n!\n",
		asn, e.MyASN, e.peerLinkLocal(asn))
}

func (e *Engine) peerLinkLocal(asn uint32) string {
	_, peer := alloc.LinkLocal(e.MyASN, asn)
	return peer
}

// Deactivate tears down the tunnel and BGP session but keeps the verified
// file. Idempotent: deactivating twice leaves the same state as once.
func (e *Engine) Deactivate(ctx context.Context, asn uint32) error {
	mu := e.lockFor(asn)
	mu.Lock()
	defer mu.Unlock()

	record, err := e.loadVerified(asn)
	if err != nil {
		return err
	}

	iface := e.iface(asn)
	if err := e.Deployer.Remove(ctx, iface, e.frrStanzaPath(asn), e.removeStanza(asn)); err != nil {
		return Wrap(DeploymentFailed, "deactivate peering", err)
	}

	record.Status = model.StatusInactive
	if err := e.Store.Write(store.Verified, iface, record.ToWireguardConfig().String()); err != nil {
		return Wrap(IoError, "persist inactive status", err)
	}
	return nil
}

// Delete deactivates (best-effort) and removes the verified record.
func (e *Engine) Delete(ctx context.Context, asn uint32) error {
	mu := e.lockFor(asn)
	mu.Lock()
	defer mu.Unlock()

	iface := e.iface(asn)
	_ = e.Deployer.Remove(ctx, iface, e.frrStanzaPath(asn), e.removeStanza(asn))

	if err := e.Store.Delete(store.Verified, iface); err != nil {
		return Wrap(IoError, "delete verified record", err)
	}
	e.Store.Delete(store.Pending, iface)
	return nil
}

package model

import (
	"testing"
	"time"

	"autopeer/pkg/wireguard"
)

func TestRenderRoundtripPending(t *testing.T) {
	original := PeeringRecord{
		ASN:                4242421234,
		Status:             StatusPending,
		Challenge:          "AUTOPEER-4242421234-cafef00d",
		PGPFingerprint:     "922CA9191D9D5C1CD28E4D2B935300055E6B8E16",
		LocalPrivateKey:    "MA3Oj1xzJzoGfIkMJagCXOHmGIkLkK49XUFfqS1Xjmo=",
		ListenPort:         31234,
		LocalTunnelAddress: "fe80::1234:257:1",
		CreatedAt:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	cfg := original.ToWireguardConfig()
	serialized := cfg.String()

	parsedCfg, err := wireguard.FromString(serialized)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := FromWireguardConfig(parsedCfg)
	if err != nil {
		t.Fatal(err)
	}

	if parsed.ASN != original.ASN {
		t.Errorf("asn = %d, want %d", parsed.ASN, original.ASN)
	}
	if parsed.Status != original.Status {
		t.Errorf("status = %q, want %q", parsed.Status, original.Status)
	}
	if parsed.Challenge != original.Challenge {
		t.Errorf("challenge = %q, want %q", parsed.Challenge, original.Challenge)
	}
	if parsed.PGPFingerprint != original.PGPFingerprint {
		t.Errorf("fingerprint = %q, want %q", parsed.PGPFingerprint, original.PGPFingerprint)
	}
	if !parsed.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("createdAt = %v, want %v", parsed.CreatedAt, original.CreatedAt)
	}
}

func TestRenderRoundtripVerified(t *testing.T) {
	original := PeeringRecord{
		ASN:                4242421234,
		Status:             StatusVerified,
		PGPFingerprint:     "922CA9191D9D5C1CD28E4D2B935300055E6B8E16",
		LocalPrivateKey:    "MA3Oj1xzJzoGfIkMJagCXOHmGIkLkK49XUFfqS1Xjmo=",
		PeerPublicKey:      "uS1AYe7zTGAP48XeNn0vppNjg7q0hawyh8Y0bvvAWhk=",
		PeerEndpoint:       "1.2.3.4:31234",
		ListenPort:         31234,
		LocalTunnelAddress: "fe80::1234:257:0",
		PeerTunnelAddress:  "fe80::1234:257:1",
		VerifiedAt:         time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	cfg := original.ToWireguardConfig()
	if cfg.Peer == nil {
		t.Fatal("expected peer section for verified record")
	}
	if cfg.BGP == nil {
		t.Fatal("expected bgp section for verified record")
	}
	if cfg.Peer.Endpoint != "1.2.3.4:31234" {
		t.Fatalf("endpoint = %q", cfg.Peer.Endpoint)
	}

	serialized := cfg.String()
	parsedCfg, err := wireguard.FromString(serialized)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := FromWireguardConfig(parsedCfg)
	if err != nil {
		t.Fatal(err)
	}

	if parsed.PeerPublicKey != original.PeerPublicKey {
		t.Errorf("peer public key = %q, want %q", parsed.PeerPublicKey, original.PeerPublicKey)
	}
	if parsed.PeerTunnelAddress != original.PeerTunnelAddress {
		t.Errorf("peer tunnel address = %q, want %q", parsed.PeerTunnelAddress, original.PeerTunnelAddress)
	}
	if !parsed.VerifiedAt.Equal(original.VerifiedAt) {
		t.Errorf("verifiedAt = %v, want %v", parsed.VerifiedAt, original.VerifiedAt)
	}
}

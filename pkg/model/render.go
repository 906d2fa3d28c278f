package model

import (
	"fmt"
	"time"

	"autopeer/pkg/wireguard"
)

const timeLayout = time.RFC3339

// ToWireguardConfig renders the record into the ini sections the tunnel
// config file carries. [Interface] always carries the allocated address,
// port, and local private key. [Challenge] always carries the bookkeeping
// the ini format otherwise has no room for (status, fingerprint,
// timestamps), plus the challenge code itself while still pending.
// [Peer]/[BGP] only appear once a peer side exists.
func (r PeeringRecord) ToWireguardConfig() wireguard.Config {
	cfg := wireguard.Config{
		Interface: wireguard.InterfaceConfig{
			Address:    []string{r.LocalTunnelAddress + "/64"},
			PrivateKey: r.LocalPrivateKey,
			ListenPort: uint16(r.ListenPort),
			Table:      "off",
		},
		Challenge: &wireguard.ChallengeConfig{
			Code:        r.Challenge,
			ASN:         r.ASN,
			LocalASN:    r.LocalASN,
			Fingerprint: r.PGPFingerprint,
			Status:      string(r.Status),
			CreatedAt:   formatTime(r.CreatedAt),
			VerifiedAt:  formatTime(r.VerifiedAt),
			DeployedAt:  formatTime(r.DeployedAt),
		},
	}

	if r.PeerPublicKey != "" {
		cfg.Peer = &wireguard.PeerConfig{
			PublicKey:           r.PeerPublicKey,
			Endpoint:            r.PeerEndpoint,
			AllowedIPs:          []string{"0.0.0.0/0", "::/0"},
			PersistentKeepalive: 25,
		}
	}
	if r.Status == StatusVerified || r.Status == StatusDeployed || r.Status == StatusInactive {
		cfg.BGP = &wireguard.BgpConfig{
			MPBGP:           true,
			ExtendedNextHop: true,
			Local:           r.LocalTunnelAddress,
			Neighbor:        r.PeerTunnelAddress,
		}
	}
	return cfg
}

// FromWireguardConfig rebuilds a record from a tunnel config file, the
// inverse of ToWireguardConfig for every field the file carries.
// LocalPublicKey is not written to the file and comes back empty, and
// PeerTunnelAddress is only restored when a [BGP] section is present, so
// it comes back empty for a pending record.
func FromWireguardConfig(cfg wireguard.Config) (PeeringRecord, error) {
	if len(cfg.Interface.Address) == 0 {
		return PeeringRecord{}, fmt.Errorf("tunnel config has no interface address")
	}
	if cfg.Challenge == nil {
		return PeeringRecord{}, fmt.Errorf("tunnel config has no [Challenge] section")
	}

	r := PeeringRecord{
		ASN:                cfg.Challenge.ASN,
		Status:             Status(cfg.Challenge.Status),
		Challenge:          cfg.Challenge.Code,
		PGPFingerprint:     cfg.Challenge.Fingerprint,
		LocalASN:           cfg.Challenge.LocalASN,
		LocalPrivateKey:    cfg.Interface.PrivateKey,
		ListenPort:         int(cfg.Interface.ListenPort),
		LocalTunnelAddress: stripMask(cfg.Interface.Address[0]),
		CreatedAt:          parseTime(cfg.Challenge.CreatedAt),
		VerifiedAt:         parseTime(cfg.Challenge.VerifiedAt),
		DeployedAt:         parseTime(cfg.Challenge.DeployedAt),
	}

	if cfg.Peer != nil {
		r.PeerPublicKey = cfg.Peer.PublicKey
		r.PeerEndpoint = cfg.Peer.Endpoint
	}
	if cfg.BGP != nil {
		r.LocalTunnelAddress = cfg.BGP.Local
		r.PeerTunnelAddress = cfg.BGP.Neighbor
	}

	return r, nil
}

func stripMask(cidr string) string {
	for i, c := range cidr {
		if c == '/' {
			return cidr[:i]
		}
	}
	return cidr
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

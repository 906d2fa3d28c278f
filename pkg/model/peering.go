package model

import "time"

// Status is a peering record's position in the lifecycle state machine.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusDeployed Status = "deployed"
	StatusInactive Status = "inactive"
)

// PeeringRecord is the single first-class entity of the system: everything
// known about one bilateral peering with a remote ASN.
type PeeringRecord struct {
	ASN    uint32 `json:"asn"`
	Status Status `json:"status"`

	// Challenge is cleared once verification succeeds.
	Challenge      string `json:"challenge,omitempty"`
	PGPFingerprint string `json:"pgpFingerprint"`

	LocalPrivateKey string `json:"-"`
	LocalPublicKey  string `json:"localPublicKey"`

	PeerPublicKey string `json:"peerPublicKey,omitempty"`
	PeerEndpoint  string `json:"peerEndpoint,omitempty"`

	ListenPort         int    `json:"listenPort"`
	LocalTunnelAddress string `json:"localTunnelAddress"`
	PeerTunnelAddress  string `json:"peerTunnelAddress"`

	LocalASN uint32 `json:"localAsn"`

	CreatedAt  time.Time `json:"createdAt"`
	VerifiedAt time.Time `json:"verifiedAt,omitempty"`
	DeployedAt time.Time `json:"deployedAt,omitempty"`
}

// InterfaceName is the deterministic tunnel interface name for this record.
func (r PeeringRecord) InterfaceName() string {
	return InterfaceNameForASN(r.ASN)
}

// InterfaceNameForASN derives the wg-as<asn> interface name from a bare ASN,
// usable before a full record exists (e.g. during init).
func InterfaceNameForASN(asn uint32) string {
	return "wg-as" + itoa(asn)
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

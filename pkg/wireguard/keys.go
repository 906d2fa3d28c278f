package wireguard

import (
	"fmt"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// Keypair is a generated WireGuard private/public key pair, base64-encoded
// the same way wg-quick config files expect.
type Keypair struct {
	PrivateKey string
	PublicKey  string
}

// GenerateKeypair creates a new Curve25519 keypair in-process via wgctrl's
// wgtypes, rather than shelling out to `wg genkey`/`wg pubkey`.
func GenerateKeypair() (Keypair, error) {
	priv, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return Keypair{}, fmt.Errorf("generate wireguard key: %w", err)
	}
	pub := priv.PublicKey()
	return Keypair{
		PrivateKey: priv.String(),
		PublicKey:  pub.String(),
	}, nil
}

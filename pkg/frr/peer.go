package frr

import (
	"fmt"
	"os"
	"strings"

	"autopeer/pkg/alloc"
)

// PeerConfig describes the FRR bgpd stanza for a single autopeer session.
type PeerConfig struct {
	MyASN         uint32
	PeerASN       uint32
	PeerName      string
	InterfaceName string
}

// NewPeerConfig builds a PeerConfig for a verified peering.
func NewPeerConfig(myASN, peerASN uint32, peerName string) PeerConfig {
	return PeerConfig{
		MyASN:         myASN,
		PeerASN:       peerASN,
		PeerName:      peerName,
		InterfaceName: alloc.InterfaceName(peerASN),
	}
}

// ProtocolName is the name FRR uses to refer to this neighbor in `show bgp
// neighbors` and friends.
func (c PeerConfig) ProtocolName() string {
	return fmt.Sprintf("autopeer_as%d", c.PeerASN)
}

// ToConfig renders the bgpd stanza for this peering: a single neighbor
// entry under the local router bgp block, reachable over the dedicated
// WireGuard link-local addresses allocated for this ASN pair.
func (c PeerConfig) ToConfig() string {
	local, peer := alloc.LinkLocal(c.MyASN, c.PeerASN)
	localAddr := alloc.LocalAddr(local)

	var b strings.Builder
	fmt.Fprintf(&b, "! AutoPeer - %s - AS%d\n", c.PeerName, c.PeerASN)
	fmt.Fprintf(&b, "router bgp %d\n", c.MyASN)
	fmt.Fprintf(&b, " neighbor %s remote-as %d\n", peer, c.PeerASN)
	fmt.Fprintf(&b, " neighbor %s description %s\n", peer, c.ProtocolName())
	fmt.Fprintf(&b, " neighbor %s interface %s\n", peer, c.InterfaceName)
	b.WriteString(" address-family ipv6\n")
	fmt.Fprintf(&b, "  neighbor %s activate\n", peer)
	b.WriteString("  extended next hop yes\n")
	b.WriteString(" exit-address-family\n")
	fmt.Fprintf(&b, "! local %s as %d, neighbor %s as %d\n", localAddr, c.MyASN, peer, c.PeerASN)
	b.WriteString("!\n")

	return b.String()
}

// ToFile writes the rendered stanza to path for vtysh -b -f to apply.
func (c PeerConfig) ToFile(path string) error {
	return os.WriteFile(path, []byte(c.ToConfig()), 0o640)
}

// Package alloc computes the deterministic network resources a peering
// needs from nothing but the two ASNs involved: a UDP listen port and a
// pair of IPv6 link-local tunnel addresses. Every computation here is a
// pure function so the lifecycle engine can swap allocators without
// touching anything else.
package alloc

import "fmt"

// Allocation is the set of resources derived from one (my ASN, peer ASN) pair.
type Allocation struct {
	ListenPort int
	Local      string // link-local address with /64, our side
	Peer       string // link-local address, no mask, peer's side
}

// ListenPort derives the UDP port this service should listen on for a
// peering with peerASN: 30000 plus the low four decimal digits of the
// peer's ASN. Two peer ASNs that share their low four digits collide;
// that is accepted under the private-ASN-range assumption this service
// operates under.
func ListenPort(peerASN uint32) int {
	return 30000 + int(peerASN%10000)
}

// LinkLocal derives the pair of IPv6 link-local addresses used as BGP
// neighbor addresses inside the tunnel: this host's own address (suffix
// :0) and the peer's address (suffix :1), both built from the low four
// decimal digits of each ASN with the peer's digits first. Only this
// host ever calls LinkLocal for a given peering. The remote side never
// runs this allocator, it just configures whatever address this host's
// API response tells it to use, so swapping myASN and peerASN is not
// expected to reproduce the same pair of strings.
func LinkLocal(myASN, peerASN uint32) (local, peer string) {
	mine := myASN % 10000
	theirs := peerASN % 10000
	local = fmt.Sprintf("fe80::%d:%d:0/64", theirs, mine)
	peer = fmt.Sprintf("fe80::%d:%d:1", theirs, mine)
	return local, peer
}

// LocalAddr strips the /64 mask from the local address LinkLocal returns.
func LocalAddr(cidr string) string {
	for i := 0; i < len(cidr); i++ {
		if cidr[i] == '/' {
			return cidr[:i]
		}
	}
	return cidr
}

// InterfaceName derives the tunnel interface name for a remote ASN.
func InterfaceName(asn uint32) string {
	return fmt.Sprintf("wg-as%d", asn)
}

// Allocate computes the full allocation for a (my, peer) ASN pair.
func Allocate(myASN, peerASN uint32) Allocation {
	local, peer := LinkLocal(myASN, peerASN)
	return Allocation{
		ListenPort: ListenPort(peerASN),
		Local:      local,
		Peer:       peer,
	}
}

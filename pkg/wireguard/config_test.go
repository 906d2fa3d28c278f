package wireguard

import "testing"

func TestParseBasicConfig(t *testing.T) {
	configStr := `
[Interface]
Address = fe80::2225:1/64
PrivateKey = MA3Oj1xzJzoGfIkMJagCXOHmGIkLkK49XUFfqS1Xjmo=
ListenPort = 51827
Table = off

[Peer]
PublicKey = uS1AYe7zTGAP48XeNn0vppNjg7q0hawyh8Y0bvvAWhk=
Endpoint = dn42-de.maraun.de:20257
AllowedIPs = 172.20.0.0/14
AllowedIPs = fd00::/8
PersistentKeepalive = 25
`
	cfg, err := FromString(configStr)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Interface.ListenPort != 51827 {
		t.Fatalf("listen port = %d", cfg.Interface.ListenPort)
	}
	if len(cfg.Interface.Address) != 1 || cfg.Interface.Address[0] != "fe80::2225:1/64" {
		t.Fatalf("address = %v", cfg.Interface.Address)
	}
	if cfg.Peer == nil {
		t.Fatal("expected peer section")
	}
	if cfg.Peer.Endpoint != "dn42-de.maraun.de:20257" {
		t.Fatalf("endpoint = %q", cfg.Peer.Endpoint)
	}
	if len(cfg.Peer.AllowedIPs) != 2 {
		t.Fatalf("allowed ips = %v", cfg.Peer.AllowedIPs)
	}
}

func TestParseWithCustomSections(t *testing.T) {
	configStr := `
[Interface]
Address = fe80::1/64
PrivateKey = test123
ListenPort = 31234

[Challenge]
Code = AUTOPEER-4242421234-abc123
ASN = 4242421234

[BGP]
MPBGP = on
ExtendedNextHop = true
Local = fe80::1
Neighbor = fe80::2
`
	cfg, err := FromString(configStr)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Challenge == nil {
		t.Fatal("expected challenge section")
	}
	if cfg.Challenge.ASN != 4242421234 {
		t.Fatalf("asn = %d", cfg.Challenge.ASN)
	}
	if cfg.BGP == nil {
		t.Fatal("expected bgp section")
	}
	if !cfg.BGP.MPBGP {
		t.Fatal("expected mpbgp on")
	}
	if !cfg.BGP.ExtendedNextHop {
		t.Fatal("expected extended next hop")
	}
}

func TestConfigRoundtrip(t *testing.T) {
	original := Config{
		Interface: InterfaceConfig{
			Address:    []string{"fe80::1/64"},
			PrivateKey: "testkey123",
			ListenPort: 31234,
			Table:      "off",
		},
		Challenge: &ChallengeConfig{
			Code: "AUTOPEER-TEST",
			ASN:  4242421234,
		},
	}

	serialized := original.String()
	parsed, err := FromString(serialized)
	if err != nil {
		t.Fatal(err)
	}

	if parsed.Interface.ListenPort != original.Interface.ListenPort {
		t.Fatalf("listen port mismatch: %d vs %d", parsed.Interface.ListenPort, original.Interface.ListenPort)
	}
	if parsed.Interface.PrivateKey != original.Interface.PrivateKey {
		t.Fatalf("private key mismatch")
	}
	if parsed.Interface.Table != original.Interface.Table {
		t.Fatalf("table mismatch: %q vs %q", parsed.Interface.Table, original.Interface.Table)
	}
	if parsed.Challenge == nil || parsed.Challenge.ASN != original.Challenge.ASN {
		t.Fatalf("challenge mismatch")
	}
	if parsed.Peer != nil {
		t.Fatalf("expected no peer section")
	}
	if parsed.BGP != nil {
		t.Fatalf("expected no bgp section")
	}
}

package wireguard

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// InterfaceConfig is the [Interface] section of a tunnel config file.
type InterfaceConfig struct {
	Address    []string
	PrivateKey string
	ListenPort uint16
	Table      string // empty means unset
}

// PeerConfig is the [Peer] section of a tunnel config file.
type PeerConfig struct {
	PublicKey           string
	Endpoint            string // empty means unset
	AllowedIPs          []string
	PersistentKeepalive uint16 // 0 means unset
}

// ChallengeConfig is autopeer's own [Challenge] section. The external
// tunnel tool ignores it because it doesn't recognize the section name, so
// it doubles as the place autopeer stores everything about a record that
// the [Interface]/[Peer]/[BGP] sections have no room for: the challenge
// itself while pending, and the lifecycle bookkeeping (fingerprint,
// status, timestamps) for the life of the record.
type ChallengeConfig struct {
	Code        string
	ASN         uint32
	LocalASN    uint32
	Fingerprint string
	Status      string
	CreatedAt   string
	VerifiedAt  string
	DeployedAt  string
}

// BgpConfig is autopeer's own [BGP] section, describing the multiprotocol
// BGP session that will ride this tunnel.
type BgpConfig struct {
	MPBGP           bool
	ExtendedNextHop bool
	Local           string
	Neighbor        string
}

// Config is a complete tunnel config file: one required [Interface]
// section plus the optional [Peer], [Challenge] and [BGP] sections.
type Config struct {
	Interface InterfaceConfig
	Peer      *PeerConfig
	Challenge *ChallengeConfig
	BGP       *BgpConfig
}

// FromFile reads and parses a tunnel config file.
func FromFile(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read tunnel config: %w", err)
	}
	return FromString(string(content))
}

// FromString parses a tunnel config from its ini-style text.
func FromString(content string) (Config, error) {
	sections := parseIniSections(content)

	iface, err := parseInterface(sections)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{Interface: iface}
	if peer, err := parsePeer(sections); err == nil {
		cfg.Peer = peer
	}
	if challenge, err := parseChallenge(sections); err == nil {
		cfg.Challenge = challenge
	}
	if bgp, err := parseBgp(sections); err == nil {
		cfg.BGP = bgp
	}
	return cfg, nil
}

// ToFile renders the config and writes it to path.
func (c Config) ToFile(path string) error {
	return os.WriteFile(path, []byte(c.String()), 0o600)
}

// String renders the config as wg-quick compatible ini text.
func (c Config) String() string {
	var b strings.Builder

	b.WriteString("[Interface]\n")
	for _, addr := range c.Interface.Address {
		fmt.Fprintf(&b, "Address = %s\n", addr)
	}
	fmt.Fprintf(&b, "PrivateKey = %s\n", c.Interface.PrivateKey)
	fmt.Fprintf(&b, "ListenPort = %d\n", c.Interface.ListenPort)
	if c.Interface.Table != "" {
		fmt.Fprintf(&b, "Table = %s\n", c.Interface.Table)
	}
	b.WriteString("\n")

	if c.Peer != nil {
		b.WriteString("[Peer]\n")
		fmt.Fprintf(&b, "PublicKey = %s\n", c.Peer.PublicKey)
		if c.Peer.Endpoint != "" {
			fmt.Fprintf(&b, "Endpoint = %s\n", c.Peer.Endpoint)
		}
		for _, ip := range c.Peer.AllowedIPs {
			fmt.Fprintf(&b, "AllowedIPs = %s\n", ip)
		}
		if c.Peer.PersistentKeepalive > 0 {
			fmt.Fprintf(&b, "PersistentKeepalive = %d\n", c.Peer.PersistentKeepalive)
		}
		b.WriteString("\n")
	}

	if c.Challenge != nil {
		b.WriteString("[Challenge]\n")
		if c.Challenge.Code != "" {
			fmt.Fprintf(&b, "Code = %s\n", c.Challenge.Code)
		}
		fmt.Fprintf(&b, "ASN = %d\n", c.Challenge.ASN)
		fmt.Fprintf(&b, "LocalASN = %d\n", c.Challenge.LocalASN)
		if c.Challenge.Fingerprint != "" {
			fmt.Fprintf(&b, "Fingerprint = %s\n", c.Challenge.Fingerprint)
		}
		if c.Challenge.Status != "" {
			fmt.Fprintf(&b, "Status = %s\n", c.Challenge.Status)
		}
		if c.Challenge.CreatedAt != "" {
			fmt.Fprintf(&b, "CreatedAt = %s\n", c.Challenge.CreatedAt)
		}
		if c.Challenge.VerifiedAt != "" {
			fmt.Fprintf(&b, "VerifiedAt = %s\n", c.Challenge.VerifiedAt)
		}
		if c.Challenge.DeployedAt != "" {
			fmt.Fprintf(&b, "DeployedAt = %s\n", c.Challenge.DeployedAt)
		}
		b.WriteString("\n")
	}

	if c.BGP != nil {
		b.WriteString("[BGP]\n")
		fmt.Fprintf(&b, "MPBGP = %s\n", onOff(c.BGP.MPBGP))
		fmt.Fprintf(&b, "ExtendedNextHop = %s\n", onOff(c.BGP.ExtendedNextHop))
		fmt.Fprintf(&b, "Local = %s\n", c.BGP.Local)
		fmt.Fprintf(&b, "Neighbor = %s\n", c.BGP.Neighbor)
		b.WriteString("\n")
	}

	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

type iniSections map[string]map[string][]string

func parseIniSections(content string) iniSections {
	sections := iniSections{}
	var current string

	for _, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = line[1 : len(line)-1]
			sections[current] = map[string][]string{}
			continue
		}
		if current == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		sections[current][key] = append(sections[current][key], value)
	}
	return sections
}

func first(section map[string][]string, key string) (string, bool) {
	values, ok := section[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func parseInterface(sections iniSections) (InterfaceConfig, error) {
	section, ok := sections["Interface"]
	if !ok {
		return InterfaceConfig{}, fmt.Errorf("missing [Interface] section")
	}

	address, ok := section["Address"]
	if !ok {
		return InterfaceConfig{}, fmt.Errorf("missing Address in [Interface]")
	}

	privateKey, ok := first(section, "PrivateKey")
	if !ok {
		return InterfaceConfig{}, fmt.Errorf("missing PrivateKey in [Interface]")
	}

	listenPortStr, ok := first(section, "ListenPort")
	if !ok {
		return InterfaceConfig{}, fmt.Errorf("missing ListenPort in [Interface]")
	}
	listenPort, err := strconv.ParseUint(listenPortStr, 10, 16)
	if err != nil {
		return InterfaceConfig{}, fmt.Errorf("invalid ListenPort: %w", err)
	}

	table, _ := first(section, "Table")

	return InterfaceConfig{
		Address:    address,
		PrivateKey: privateKey,
		ListenPort: uint16(listenPort),
		Table:      table,
	}, nil
}

func parsePeer(sections iniSections) (*PeerConfig, error) {
	section, ok := sections["Peer"]
	if !ok {
		return nil, fmt.Errorf("missing [Peer] section")
	}

	publicKey, ok := first(section, "PublicKey")
	if !ok {
		return nil, fmt.Errorf("missing PublicKey in [Peer]")
	}

	endpoint, _ := first(section, "Endpoint")

	allowedIPs, ok := section["AllowedIPs"]
	if !ok {
		return nil, fmt.Errorf("missing AllowedIPs in [Peer]")
	}

	var keepalive uint16
	if s, ok := first(section, "PersistentKeepalive"); ok {
		if v, err := strconv.ParseUint(s, 10, 16); err == nil {
			keepalive = uint16(v)
		}
	}

	return &PeerConfig{
		PublicKey:           publicKey,
		Endpoint:            endpoint,
		AllowedIPs:          allowedIPs,
		PersistentKeepalive: keepalive,
	}, nil
}

func parseChallenge(sections iniSections) (*ChallengeConfig, error) {
	section, ok := sections["Challenge"]
	if !ok {
		return nil, fmt.Errorf("missing [Challenge] section")
	}

	asnStr, ok := first(section, "ASN")
	if !ok {
		return nil, fmt.Errorf("missing ASN in [Challenge]")
	}
	asn, err := strconv.ParseUint(asnStr, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid ASN: %w", err)
	}

	var localASN uint64
	if s, ok := first(section, "LocalASN"); ok {
		localASN, _ = strconv.ParseUint(s, 10, 32)
	}

	code, _ := first(section, "Code")
	fingerprint, _ := first(section, "Fingerprint")
	status, _ := first(section, "Status")
	createdAt, _ := first(section, "CreatedAt")
	verifiedAt, _ := first(section, "VerifiedAt")
	deployedAt, _ := first(section, "DeployedAt")

	return &ChallengeConfig{
		Code:        code,
		ASN:         uint32(asn),
		LocalASN:    uint32(localASN),
		Fingerprint: fingerprint,
		Status:      status,
		CreatedAt:   createdAt,
		VerifiedAt:  verifiedAt,
		DeployedAt:  deployedAt,
	}, nil
}

func parseBgp(sections iniSections) (*BgpConfig, error) {
	section, ok := sections["BGP"]
	if !ok {
		return nil, fmt.Errorf("missing [BGP] section")
	}

	local, ok := first(section, "Local")
	if !ok {
		return nil, fmt.Errorf("missing Local in [BGP]")
	}

	neighbor, ok := first(section, "Neighbor")
	if !ok {
		return nil, fmt.Errorf("missing Neighbor in [BGP]")
	}

	mpbgp := boolFlag(section, "MPBGP")
	extendedNextHop := boolFlag(section, "ExtendedNextHop")

	return &BgpConfig{
		MPBGP:           mpbgp,
		ExtendedNextHop: extendedNextHop,
		Local:           local,
		Neighbor:        neighbor,
	}, nil
}

func boolFlag(section map[string][]string, key string) bool {
	v, ok := first(section, key)
	if !ok {
		return false
	}
	v = strings.ToLower(v)
	return v == "on" || v == "true"
}

// Package registry resolves the trust chain the dn42-style registry
// encodes: an ASN names a maintainer, a maintainer names the PGP
// fingerprints allowed to act on its behalf. Parsing is pure, line-based
// text handling; it performs no network I/O of its own (see mirror.go for
// that).
package registry

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AsObject is a parsed data/aut-num/AS<asn> record.
type AsObject struct {
	ASN         uint32
	ASName      string
	Description string
	AdminC      string
	TechC       string
	MntBy       string
}

// MaintainerObject is a parsed data/mntner/<mntner> record.
type MaintainerObject struct {
	Mntner           string
	Description      string
	AuthFingerprints []string
}

// KeyCert is a parsed data/key-cert/<key-id> record.
type KeyCert struct {
	KeyID       string
	Method      string
	Fingerprint string
	Owner       string
	PublicKey   string
}

var (
	ErrAsnNotRegistered = fmt.Errorf("registry: ASN not registered")
	ErrKeyNotFound      = fmt.Errorf("registry: key not found")
)

// parseObject splits a registry object's text into lowercase attribute name
// to ordered list of values, tolerant of blank lines and '#' comments.
func parseObject(content string) map[string][]string {
	fields := make(map[string][]string)
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		fields[key] = append(fields[key], value)
	}
	return fields
}

func firstField(fields map[string][]string, key string) (string, bool) {
	v, ok := fields[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// ParseAsObject parses a data/aut-num/AS<asn> record.
func ParseAsObject(content string) (AsObject, error) {
	fields := parseObject(content)

	asnField, ok := firstField(fields, "aut-num")
	if !ok {
		return AsObject{}, fmt.Errorf("missing aut-num field")
	}
	asnStr, ok := strings.CutPrefix(asnField, "AS")
	if !ok {
		return AsObject{}, fmt.Errorf("invalid ASN format %q", asnField)
	}
	var asn uint32
	if _, err := fmt.Sscanf(asnStr, "%d", &asn); err != nil {
		return AsObject{}, fmt.Errorf("parse ASN: %w", err)
	}

	mntBy, ok := firstField(fields, "mnt-by")
	if !ok {
		return AsObject{}, fmt.Errorf("missing mnt-by field")
	}

	asName, _ := firstField(fields, "as-name")
	descr, _ := firstField(fields, "descr")
	adminC, _ := firstField(fields, "admin-c")
	techC, _ := firstField(fields, "tech-c")

	return AsObject{
		ASN:         asn,
		ASName:      asName,
		Description: descr,
		AdminC:      adminC,
		TechC:       techC,
		MntBy:       mntBy,
	}, nil
}

// ParseMaintainer parses a data/mntner/<mntner> record.
func ParseMaintainer(content string) (MaintainerObject, error) {
	fields := parseObject(content)

	mntner, ok := firstField(fields, "mntner")
	if !ok {
		return MaintainerObject{}, fmt.Errorf("missing mntner field")
	}
	descr, _ := firstField(fields, "descr")

	var fingerprints []string
	for _, auth := range fields["auth"] {
		if fp, ok := strings.CutPrefix(auth, "pgp-fingerprint "); ok {
			fingerprints = append(fingerprints, fp)
		}
	}

	return MaintainerObject{
		Mntner:           mntner,
		Description:      descr,
		AuthFingerprints: fingerprints,
	}, nil
}

// ParseKeyCert parses a data/key-cert/<key-id> record, reassembling the
// armored public key from its certif: continuation lines.
func ParseKeyCert(content string) (KeyCert, error) {
	fields := parseObject(content)

	keyID, ok := firstField(fields, "key-cert")
	if !ok {
		return KeyCert{}, fmt.Errorf("missing key-cert field")
	}
	method, ok := firstField(fields, "method")
	if !ok {
		method = "PGP"
	}
	fingerprint, _ := firstField(fields, "fingerpr")
	owner, _ := firstField(fields, "owner")

	var pubKey strings.Builder
	for _, line := range fields["certif"] {
		pubKey.WriteString(line)
		pubKey.WriteByte('\n')
	}

	return KeyCert{
		KeyID:       keyID,
		Method:      method,
		Fingerprint: fingerprint,
		Owner:       owner,
		PublicKey:   pubKey.String(),
	}, nil
}

// GetAsObject loads and parses the AS object for asn from the registry at path.
func GetAsObject(path string, asn uint32) (AsObject, error) {
	file := filepath.Join(path, "data", "aut-num", fmt.Sprintf("AS%d", asn))
	content, err := os.ReadFile(file)
	if err != nil {
		return AsObject{}, fmt.Errorf("%w: %v", ErrAsnNotRegistered, err)
	}
	return ParseAsObject(string(content))
}

// GetMaintainer loads and parses a maintainer object by name.
func GetMaintainer(path, mntner string) (MaintainerObject, error) {
	file := filepath.Join(path, "data", "mntner", mntner)
	content, err := os.ReadFile(file)
	if err != nil {
		return MaintainerObject{}, fmt.Errorf("read maintainer %s: %w", mntner, err)
	}
	return ParseMaintainer(string(content))
}

// GetKeyCert loads and parses a key-cert object by key id, for callers that
// want the full armored key the registry itself vouches for rather than
// relying solely on what the client submits.
func GetKeyCert(path, keyID string) (KeyCert, error) {
	file := filepath.Join(path, "data", "key-cert", keyID)
	content, err := os.ReadFile(file)
	if err != nil {
		return KeyCert{}, fmt.Errorf("%w: %v", ErrKeyNotFound, err)
	}
	return ParseKeyCert(string(content))
}

// GetPGPFingerprintForASN resolves ASN -> maintainer -> first PGP
// fingerprint, the trust anchor the signature verifier pins against.
func GetPGPFingerprintForASN(path string, asn uint32) (string, error) {
	asObj, err := GetAsObject(path, asn)
	if err != nil {
		return "", err
	}
	mnt, err := GetMaintainer(path, asObj.MntBy)
	if err != nil {
		return "", err
	}
	if len(mnt.AuthFingerprints) == 0 {
		return "", fmt.Errorf("no PGP fingerprint found for maintainer %s", mnt.Mntner)
	}
	return mnt.AuthFingerprints[0], nil
}

package lifecycle

import (
	"regexp"
	"strings"
)

var (
	ipv4Endpoint = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}:\d{1,5}$`)
	ipv6Endpoint = regexp.MustCompile(`^\[([0-9a-fA-F:]+)\]:\d{1,5}$`)
)

const (
	minASN = 4200000000
	maxASN = 4294967294
)

// ValidateASN checks that asn falls in the agreed private range.
func ValidateASN(asn uint32) error {
	if asn < minASN || asn > maxASN {
		return NewError(BadRequest, "asn out of valid range (4200000000-4294967294)")
	}
	return nil
}

// ValidateEndpoint checks an "ip:port" or "[ipv6]:port" endpoint string.
func ValidateEndpoint(endpoint string) error {
	if !ipv4Endpoint.MatchString(endpoint) && !ipv6Endpoint.MatchString(endpoint) {
		return NewError(BadRequest, "invalid endpoint format, expected ip:port or [ipv6]:port")
	}
	idx := strings.LastIndex(endpoint, ":")
	if idx == -1 {
		return NewError(BadRequest, "invalid endpoint format")
	}
	port := endpoint[idx+1:]
	if port == "0" || port == "00000" {
		return NewError(BadRequest, "port cannot be 0")
	}
	return nil
}

// ValidateWgPubkey checks the 44-character base64 shape of a WireGuard key.
func ValidateWgPubkey(key string) error {
	if len(key) != 44 {
		return NewError(BadRequest, "wireguard public key must be 44 characters")
	}
	for _, c := range key {
		if !isBase64Char(c) {
			return NewError(BadRequest, "wireguard public key must be valid base64")
		}
	}
	return nil
}

func isBase64Char(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '+' || c == '/' || c == '=':
		return true
	default:
		return false
	}
}

// ValidatePGPKey performs the shallow check; real validation happens when
// the signature is verified against it.
func ValidatePGPKey(key string) error {
	if key == "" {
		return NewError(BadRequest, "pgp key cannot be empty")
	}
	return nil
}

// ValidateSignedChallenge performs the shallow check; real validation
// happens in the signature verifier.
func ValidateSignedChallenge(signed string) error {
	if signed == "" {
		return NewError(BadRequest, "signed message cannot be empty")
	}
	return nil
}

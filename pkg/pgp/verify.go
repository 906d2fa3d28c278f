// Package pgp verifies OpenPGP cleartext-signed messages against
// candidate public keys, and checks a key's fingerprint against the one
// the registry pins for an ASN. It never consults a keyring: trust comes
// entirely from the registry's own distribution of fingerprints, not from
// anything this package trusts on its own.
package pgp

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
)

var (
	ErrMalformedMessage = errors.New("pgp: malformed message")
	ErrNoMatchingKey    = errors.New("pgp: no matching key")
	ErrBadSignature     = errors.New("pgp: bad signature")
	ErrKeyExpired       = errors.New("pgp: key expired")
)

// VerifyResult carries what the verifier recovered from a valid signature.
type VerifyResult struct {
	Plaintext   string
	Fingerprint string
}

// VerifyCleartext verifies an armored cleartext-signed OpenPGP message
// against one or more candidate armored public keys, returning the
// recovered plaintext and the fingerprint of whichever candidate's key
// signed it. The candidates are exactly the keys the caller trusts for
// this check; no other keyring is consulted.
func VerifyCleartext(signedBlob string, candidateArmoredKeys ...string) (VerifyResult, error) {
	block, _ := clearsign.Decode([]byte(signedBlob))
	if block == nil {
		return VerifyResult{}, fmt.Errorf("%w: not a cleartext-signed message", ErrMalformedMessage)
	}

	for _, armored := range candidateArmoredKeys {
		keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armored))
		if err != nil {
			continue
		}
		signer, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(block.Bytes), block.ArmoredSignature.Body, nil)
		if err != nil {
			continue
		}
		if signer == nil || signer.PrimaryKey == nil {
			continue
		}
		fp := fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint)
		return VerifyResult{
			Plaintext:   canonicalizePlaintext(string(block.Plaintext)),
			Fingerprint: fp,
		}, nil
	}

	return VerifyResult{}, fmt.Errorf("%w: no candidate key verified the signature", ErrNoMatchingKey)
}

// canonicalizePlaintext applies the trimming the cleartext-signature
// convention expects on the recovered body: trailing whitespace per line is
// already stripped by clearsign, this normalizes the final newline so
// comparisons against a stored challenge are exact-or-nothing.
func canonicalizePlaintext(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// KeyFingerprint parses an armored public key and returns its fingerprint,
// uppercase hex with no separators.
func KeyFingerprint(armoredKey string) (string, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredKey))
	if err != nil {
		return "", fmt.Errorf("%w: parse public key: %v", ErrMalformedMessage, err)
	}
	if len(keyring) == 0 || keyring[0].PrimaryKey == nil {
		return "", fmt.Errorf("%w: key ring is empty", ErrMalformedMessage)
	}
	return fmt.Sprintf("%X", keyring[0].PrimaryKey.Fingerprint), nil
}

// VerifyKeyFingerprint reports whether armoredKey's fingerprint matches
// expected, normalizing both (stripping spaces, uppercasing) before the
// comparison since registries and PGP tooling format fingerprints with
// inconsistent spacing.
func VerifyKeyFingerprint(armoredKey, expected string) (bool, error) {
	actual, err := KeyFingerprint(armoredKey)
	if err != nil {
		return false, err
	}
	normalize := func(s string) string {
		return strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	}
	return normalize(actual) == normalize(expected), nil
}

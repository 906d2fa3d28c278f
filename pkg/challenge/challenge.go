// Package challenge generates the random, unpredictable tokens an operator
// must sign with their registered OpenPGP key to prove control of an ASN.
package challenge

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Generate produces a fresh challenge code for asn with 128 bits of entropy,
// encoded as AUTOPEER-<asn>-<hex>. Every call returns a distinct code.
func Generate(asn uint32) (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate challenge: %w", err)
	}
	return fmt.Sprintf("AUTOPEER-%d-%s", asn, hex.EncodeToString(b[:])), nil
}

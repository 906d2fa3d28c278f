package pgp

import "testing"

// These are real OpenPGP test vectors: a clearsigned message and the
// public key that signed it.
const testSignedMessage = `-----BEGIN PGP SIGNED MESSAGE-----
Hash: SHA512

AUTOPEER-AS4242420257-THISISATEST

-----BEGIN PGP SIGNATURE-----

iHUEARYKAB0WIQSLfwOEy+AnJ2HYUuoGhONubPnU1AUCaPe23gAKCRAGhONubPnU
1G50AP0bnfUm+rT/lag4MFTWuaYdD7kEIa/KjJ0hOwkX5yeFlwEAqzUAznyJ3dlI
5tsRBC4VYY8aBXfA8RycPLsPLy3WZws=
=Vr9+
-----END PGP SIGNATURE-----`

const testPublicKey = `-----BEGIN PGP PUBLIC KEY BLOCK-----

mDMEYVuS5RYJKwYBBAHaRw8BAQdAnJ1to/QytFqDfg3gtUrtiqmJRMSLNrG/fLNG
BesjX5m0L0ZlcmRpbmFuZCBMaW5uZW5iZXJnIDxmZXJkaW5hbmRAbGlubmVuYmVy
Zy5kZXY+iJAEExYIADgWIQSLfwOEy+AnJ2HYUuoGhONubPnU1AUCYVuS5QIbAwUL
CQgHAgYVCgkICwIEFgIDAQIeAQIXgAAKCRAGhONubPnU1M2ZAP0drb1tbnLi1cU+
Pc4NPTMjviTBBFmGFoDni/0mvMC5qAD6AlB24idciDkSeJFz3s/6wSog/Rj4ALpk
RQ/v8Ls4gQa4OARhW5LlEgorBgEEAZdVAQUBAQdAci4cwabJdJGO+VF5wxEW+yuO
Y+BPprEQpy4jFiN713sDAQgHiHgEGBYIACAWIQSLfwOEy+AnJ2HYUuoGhONubPnU
1AUCYVuS5QIbDAAKCRAGhONubPnU1I79AQC7Weudp5yzofVqZQCa/ijohC5CuwXw
LGZbH16nUawo9gEAw+6wvpgw2d7IS6rnT6jJZ1qm6inF/XzTZTNfq9rsmgM=
=WrLZ
-----END PGP PUBLIC KEY BLOCK-----`

const testFingerprint = "8B7F0384CBE0272761D852EA0684E36E6CF9D4D4"

func TestVerifyCleartextRealSignature(t *testing.T) {
	result, err := VerifyCleartext(testSignedMessage, testPublicKey)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if result.Plaintext != "AUTOPEER-AS4242420257-THISISATEST" {
		t.Fatalf("plaintext = %q", result.Plaintext)
	}
	if result.Fingerprint != testFingerprint {
		t.Fatalf("fingerprint = %q, want %q", result.Fingerprint, testFingerprint)
	}
}

func TestVerifyCleartextNoMatchingKey(t *testing.T) {
	_, err := VerifyCleartext(testSignedMessage)
	if err == nil {
		t.Fatal("expected error with no candidate keys")
	}
}

func TestVerifyCleartextMalformed(t *testing.T) {
	_, err := VerifyCleartext("not a signed message", testPublicKey)
	if err == nil {
		t.Fatal("expected malformed message error")
	}
}

func TestKeyFingerprint(t *testing.T) {
	fp, err := KeyFingerprint(testPublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if fp != testFingerprint {
		t.Fatalf("fingerprint = %q, want %q", fp, testFingerprint)
	}
}

func TestVerifyKeyFingerprintMismatch(t *testing.T) {
	ok, err := VerifyKeyFingerprint(testPublicKey, "0000000000000000000000000000000000000000")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected mismatch")
	}
}

func TestVerifyKeyFingerprintNormalizesSpacing(t *testing.T) {
	spaced := "8B7F 0384 CBE0 2727 61D8 52EA 0684 E36E 6CF9 D4D4"
	ok, err := VerifyKeyFingerprint(testPublicKey, spaced)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected match after normalizing spacing")
	}
}

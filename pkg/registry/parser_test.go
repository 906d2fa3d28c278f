package registry

import "testing"

func TestParseAsObject(t *testing.T) {
	content := `
aut-num:            AS4242420257
as-name:            SCARJIT-AS
descr:              SCARJIT Network
admin-c:            SCARJIT-DN42
tech-c:             SCARJIT-DN42
mnt-by:             SCARJIT-MNT
source:             DN42
`
	obj, err := ParseAsObject(content)
	if err != nil {
		t.Fatal(err)
	}
	if obj.ASN != 4242420257 {
		t.Fatalf("ASN = %d", obj.ASN)
	}
	if obj.ASName != "SCARJIT-AS" {
		t.Fatalf("ASName = %q", obj.ASName)
	}
	if obj.MntBy != "SCARJIT-MNT" {
		t.Fatalf("MntBy = %q", obj.MntBy)
	}
}

func TestParseMaintainer(t *testing.T) {
	content := `
mntner:             SCARJIT-MNT
descr:              SCARJIT https://linnenberg.dev/
admin-c:            SCARJIT-DN42
tech-c:             SCARJIT-DN42
auth:               pgp-fingerprint 8B7F0384CBE0272761D852EA0684E36E6CF9D4D4
mnt-by:             SCARJIT-MNT
source:             DN42
`
	mnt, err := ParseMaintainer(content)
	if err != nil {
		t.Fatal(err)
	}
	if mnt.Mntner != "SCARJIT-MNT" {
		t.Fatalf("Mntner = %q", mnt.Mntner)
	}
	if len(mnt.AuthFingerprints) != 1 || mnt.AuthFingerprints[0] != "8B7F0384CBE0272761D852EA0684E36E6CF9D4D4" {
		t.Fatalf("AuthFingerprints = %v", mnt.AuthFingerprints)
	}
}

func TestParseKeyCert(t *testing.T) {
	content := `
key-cert:           PGPKEY-6CF9D4D4
method:             PGP
owner:              Ferdinand Linnenberg <ferdinand@linnenberg.dev>
fingerpr:           8B7F 0384 CBE0 2727 61D8 52EA 0684 E36E 6CF9 D4D4
certif:             -----BEGIN PGP PUBLIC KEY BLOCK-----
certif:
certif:             mDMEYVuS5RYJKwYBBAHaRw8BAQdA
certif:             -----END PGP PUBLIC KEY BLOCK-----
source:             DN42
`
	kc, err := ParseKeyCert(content)
	if err != nil {
		t.Fatal(err)
	}
	if kc.KeyID != "PGPKEY-6CF9D4D4" {
		t.Fatalf("KeyID = %q", kc.KeyID)
	}
	if kc.PublicKey == "" {
		t.Fatalf("PublicKey should not be empty")
	}
}

func TestGetPGPFingerprintForASN(t *testing.T) {
	dir := t.TempDir()
	writeRegistryFixture(t, dir, "aut-num", "AS4242420257", `
aut-num:            AS4242420257
as-name:            SCARJIT-AS
mnt-by:             SCARJIT-MNT
`)
	writeRegistryFixture(t, dir, "mntner", "SCARJIT-MNT", `
mntner:             SCARJIT-MNT
auth:               pgp-fingerprint 8B7F0384CBE0272761D852EA0684E36E6CF9D4D4
`)

	fp, err := GetPGPFingerprintForASN(dir, 4242420257)
	if err != nil {
		t.Fatal(err)
	}
	if fp != "8B7F0384CBE0272761D852EA0684E36E6CF9D4D4" {
		t.Fatalf("fingerprint = %q", fp)
	}
}

func TestGetPGPFingerprintForASNUnregistered(t *testing.T) {
	dir := t.TempDir()
	if _, err := GetPGPFingerprintForASN(dir, 4242420001); err == nil {
		t.Fatal("expected error for unregistered ASN")
	}
}

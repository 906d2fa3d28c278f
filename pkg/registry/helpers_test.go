package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRegistryFixture(t *testing.T, root, kind, name, content string) {
	t.Helper()
	dir := filepath.Join(root, "data", kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

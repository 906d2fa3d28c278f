// Package store persists tunnel config files across the pending/verified
// lifecycle a peering moves through, using the filesystem as the sole
// source of truth rather than a database.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Bucket names a phase directory.
type Bucket string

const (
	Pending  Bucket = "pending"
	Verified Bucket = "verified"
)

// TwoPhase stores one config file per interface name, in either a pending
// or a verified directory. Promote moves a file from pending to verified.
// Writes are atomic: content lands in a PID-tagged temp file in the target
// directory, then gets renamed into place, so a crash mid-write never
// leaves a half-written config for a reader to pick up.
type TwoPhase struct {
	PendingDir  string
	VerifiedDir string
}

// New builds a TwoPhase store rooted at the given directories.
func New(pendingDir, verifiedDir string) *TwoPhase {
	return &TwoPhase{PendingDir: pendingDir, VerifiedDir: verifiedDir}
}

func (s *TwoPhase) dir(bucket Bucket) string {
	if bucket == Verified {
		return s.VerifiedDir
	}
	return s.PendingDir
}

func (s *TwoPhase) path(bucket Bucket, iface string) string {
	return filepath.Join(s.dir(bucket), iface+".conf")
}

// Write atomically writes content for iface into bucket, creating the
// directory if needed.
func (s *TwoPhase) Write(bucket Bucket, iface, content string) error {
	dir := s.dir(bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", bucket, err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%d.tmp", iface, os.Getpid()))
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, s.path(bucket, iface)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Read returns the content stored for iface in bucket. If bucket is
// Verified and a stray pending duplicate also exists (left behind by a
// crash between writing the verified file and unlinking the pending one),
// it opportunistically removes the stray pending file.
func (s *TwoPhase) Read(bucket Bucket, iface string) (string, error) {
	content, err := os.ReadFile(s.path(bucket, iface))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, iface)
		}
		return "", fmt.Errorf("read config: %w", err)
	}

	if bucket == Verified {
		if _, err := os.Stat(s.path(Pending, iface)); err == nil {
			os.Remove(s.path(Pending, iface))
		}
	}

	return string(content), nil
}

// Promote moves iface's config from pending to verified, overwriting
// newContent (the caller has usually filled in the peer/bgp sections by
// this point). The pending file is removed only after the verified write
// succeeds, so the verified store is always the sole source of truth: a
// crash in between just leaves both files, which Read's pending cleanup
// resolves on the next read.
func (s *TwoPhase) Promote(iface, newContent string) error {
	if err := s.Write(Verified, iface, newContent); err != nil {
		return err
	}
	os.Remove(s.path(Pending, iface))
	return nil
}

// Delete removes iface's config from bucket. Deleting a config that does
// not exist is not an error.
func (s *TwoPhase) Delete(bucket Bucket, iface string) error {
	err := os.Remove(s.path(bucket, iface))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete config: %w", err)
	}
	return nil
}

// Exists reports whether iface has a config stored in bucket.
func (s *TwoPhase) Exists(bucket Bucket, iface string) bool {
	_, err := os.Stat(s.path(bucket, iface))
	return err == nil
}

// List returns the interface names with a config stored in bucket.
func (s *TwoPhase) List(bucket Bucket) ([]string, error) {
	entries, err := os.ReadDir(s.dir(bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".conf" {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".conf"))
	}
	return out, nil
}

// Sweep runs the process-start recovery pass: it removes leftover
// PID-tagged temp files from both buckets (a crash mid-write can strand
// one) and, among pending records, drops those for which isStale returns
// true. The verified store is never pruned by age; a verified record is
// deployed infrastructure, not a leftover of an interrupted handshake.
func (s *TwoPhase) Sweep(isStale func(iface, content string) bool) error {
	for _, bucket := range []Bucket{Pending, Verified} {
		if err := s.removeStrayTemps(bucket); err != nil {
			return err
		}
	}
	ifaces, err := s.List(Pending)
	if err != nil {
		return err
	}
	for _, iface := range ifaces {
		content, err := s.Read(Pending, iface)
		if err != nil {
			continue
		}
		if isStale != nil && isStale(iface, content) {
			if err := s.Delete(Pending, iface); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *TwoPhase) removeStrayTemps(bucket Bucket) error {
	dir := s.dir(bucket)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list %s: %w", bucket, err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove stray temp %s: %w", e.Name(), err)
			}
		}
	}
	return nil
}

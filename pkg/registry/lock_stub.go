//go:build !consul

package registry

import "log"

// NewConsulLock returns a local, in-process RefreshLock when the consul
// build tag is not enabled. A single autopeerd instance never needs more
// than that; the distributed lock only matters once there is more than one
// replica sharing a registry path.
func NewConsulLock(addr, key string) RefreshLock {
	log.Printf("consul refresh lock requested (addr=%s key=%s) but consul build tag not enabled; using local lock", addr, key)
	return newLocalLock()
}

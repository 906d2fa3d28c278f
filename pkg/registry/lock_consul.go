//go:build consul

package registry

import (
	"context"
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// consulLock is a RefreshLock backed by a Consul session lock, letting
// multiple autopeerd replicas behind a load balancer share one registry
// checkout without racing each other on refresh.
type consulLock struct {
	cli *consulapi.Client
	key string
}

// NewConsulLock builds a distributed RefreshLock against the Consul agent
// at addr, guarding key.
func NewConsulLock(addr, key string) RefreshLock {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, _ := consulapi.NewClient(cfg)
	return &consulLock{cli: cli, key: key}
}

func (l *consulLock) Acquire(ctx context.Context) (func(), error) {
	if l.cli == nil {
		return nil, fmt.Errorf("consul client not configured")
	}
	sessionID, _, err := l.cli.Session().Create(&consulapi.SessionEntry{
		TTL:       "30s",
		Behavior:  consulapi.SessionBehaviorRelease,
		LockDelay: 0,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("create consul session: %w", err)
	}

	lock, err := l.cli.LockOpts(&consulapi.LockOptions{
		Key:     l.key,
		Session: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("build consul lock: %w", err)
	}

	stopCh := ctx.Done()
	leaderCh, err := lock.Lock(stopCh)
	if err != nil {
		return nil, fmt.Errorf("acquire consul lock: %w", err)
	}
	if leaderCh == nil {
		return nil, fmt.Errorf("consul lock not acquired")
	}

	release := func() {
		_ = lock.Unlock()
		_, _ = l.cli.Session().Destroy(sessionID, nil)
	}
	return release, nil
}

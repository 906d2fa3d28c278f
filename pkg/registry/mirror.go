package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

var (
	ErrRegistryUnavailable = errors.New("registry: unavailable")
	ErrRegistryCorrupt     = errors.New("registry: corrupt, non-fast-forward")
)

// Mirror maintains a local working copy of the remote registry and keeps it
// at the remote branch head. Readers use the working tree directly and
// lock-free; refresh itself is serialized by a RefreshLock.
type Mirror struct {
	URL      string
	Path     string
	Username string
	Token    string
	Ref      string // branch to track, default "master"

	lock RefreshLock
}

// NewMirror builds a Mirror. lock may be nil, in which case an in-process
// mutex is used.
func NewMirror(url, path, username, token, ref string, lock RefreshLock) *Mirror {
	if ref == "" {
		ref = "master"
	}
	if lock == nil {
		lock = newLocalLock()
	}
	return &Mirror{URL: url, Path: path, Username: username, Token: token, Ref: ref, lock: lock}
}

func (m *Mirror) auth() *http.BasicAuth {
	if m.Username == "" && m.Token == "" {
		return nil
	}
	return &http.BasicAuth{Username: m.Username, Password: m.Token}
}

// EnsureFresh clones the registry on first use and otherwise fetches the
// tracked branch with a forced refspec and force-checks-out the fetched
// head. It does not check that the update is a fast-forward: a rewritten
// remote history is taken as is. It is idempotent and safe to call before
// every operation that reads the registry.
func (m *Mirror) EnsureFresh(ctx context.Context) (string, error) {
	unlock, err := m.lock.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: acquire refresh lock: %v", ErrRegistryUnavailable, err)
	}
	defer unlock()

	if _, err := os.Stat(m.Path); errors.Is(err, os.ErrNotExist) {
		if err := m.clone(ctx); err != nil {
			return "", err
		}
		return m.Path, nil
	}

	if err := m.fetchAndFastForward(ctx); err != nil {
		return "", err
	}
	return m.Path, nil
}

func (m *Mirror) clone(ctx context.Context) error {
	_, err := git.PlainCloneContext(ctx, m.Path, false, &git.CloneOptions{
		URL:           m.URL,
		Auth:          m.auth(),
		ReferenceName: plumbing.NewBranchReferenceName(m.Ref),
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		return fmt.Errorf("%w: clone %s: %v", ErrRegistryUnavailable, m.URL, err)
	}
	return nil
}

func (m *Mirror) fetchAndFastForward(ctx context.Context) error {
	repo, err := git.PlainOpen(m.Path)
	if err != nil {
		return fmt.Errorf("%w: open repo: %v", ErrRegistryCorrupt, err)
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		Auth:       m.auth(),
		RefSpecs: []config.RefSpec{
			config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", m.Ref, m.Ref)),
		},
		Force: false,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("%w: fetch: %v", ErrRegistryUnavailable, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: worktree: %v", ErrRegistryCorrupt, err)
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", m.Ref), true)
	if err != nil {
		return fmt.Errorf("%w: resolve remote ref: %v", ErrRegistryCorrupt, err)
	}

	err = wt.Checkout(&git.CheckoutOptions{
		Hash:  remoteRef.Hash(),
		Force: true,
	})
	if err != nil {
		return fmt.Errorf("%w: checkout: %v", ErrRegistryCorrupt, err)
	}

	localRef := plumbing.NewBranchReferenceName(m.Ref)
	return repo.Storer.SetReference(plumbing.NewHashReference(localRef, remoteRef.Hash()))
}

// RefreshLock serializes registry refresh across the process (or, when
// backed by Consul, across a fleet of autopeerd replicas sharing one
// registry path).
type RefreshLock interface {
	// Acquire blocks until the lock is held, returning a release function.
	Acquire(ctx context.Context) (release func(), err error)
}

type localLock struct {
	ch chan struct{}
}

func newLocalLock() *localLock {
	l := &localLock{ch: make(chan struct{}, 1)}
	l.ch <- struct{}{}
	return l
}

func (l *localLock) Acquire(ctx context.Context) (func(), error) {
	select {
	case <-l.ch:
		return func() { l.ch <- struct{}{} }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(60 * time.Second):
		return nil, fmt.Errorf("timed out acquiring local refresh lock")
	}
}

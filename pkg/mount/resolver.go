// Package mount maintains per-drive mount trees and resolves external paths
// into (drive, internal path) pairs across arbitrarily nested mounts.
//
// Trees are keyed by the owning drive's identity key, not its session
// handle, so a drive's mounts survive close/reopen cycles; mount targets
// are re-resolved by identity key on access (spec: stale handles re-resolve
// lazily). Drives that can mount each other form a cyclic reference graph,
// so the resolver never follows live references: it walks an arena of trees
// with explicit cycle detection at mount time and a bounded depth guard at
// resolve time.
package mount

import (
	"context"
	"sync"

	"github.com/peerdrive/peerdrive/internal/logger"
	"github.com/peerdrive/peerdrive/pkg/drive"
	"github.com/peerdrive/peerdrive/pkg/metrics"
	"github.com/peerdrive/peerdrive/pkg/store"
)

// MaxResolveDepth bounds mount nesting during resolution. A cycle that
// slipped past mount-time detection fails with MountTooDeep instead of
// recursing forever.
const MaxResolveDepth = 64

// mountPoint binds a path prefix in the owner's namespace to another
// drive's root.
type mountPoint struct {
	path      string
	targetKey store.Key
}

// Info describes one mount point on the control surface.
type Info struct {
	Path      string    `json:"path"`
	TargetKey store.Key `json:"target_key"`
}

// Resolver resolves the unified path space spanning mounted drives.
//
// Structural mutation (mount, unmount) is serialized per resolver;
// resolution takes read locks and observes a consistent snapshot of each
// tree it walks.
type Resolver struct {
	mu    sync.RWMutex
	reg   *drive.Registry
	trees map[store.Key][]mountPoint
}

// NewResolver creates a resolver over the given registry.
func NewResolver(reg *drive.Registry) *Resolver {
	return &Resolver{
		reg:   reg,
		trees: make(map[store.Key][]mountPoint),
	}
}

// Mount records a mount point splicing the drive identified by targetKey
// into ownerHandle's namespace at path. The target drive is not opened
// eagerly.
//
// Fails with InvalidPath if path is the root, escapes it, or overlaps an
// existing mount in the same tree; with CycleDetected if the target,
// directly or through further mounts, reaches the owner again; with
// NotFound if ownerHandle is unknown or closed.
func (r *Resolver) Mount(ctx context.Context, ownerHandle uint64, path string, targetKey store.Key) error {
	owner, err := r.reg.Get(ownerHandle)
	if err != nil {
		return err
	}
	np, err := Normalize(path)
	if err != nil {
		return err
	}
	if np == "" {
		return store.NewError(store.ErrInvalidPath, path, "cannot mount at the drive root")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mp := range r.trees[owner.Key()] {
		if mp.path == np {
			return store.NewError(store.ErrInvalidPath, np, "mount already exists at this path")
		}
		if HasPathPrefix(np, mp.path) || HasPathPrefix(mp.path, np) {
			return store.NewError(store.ErrInvalidPath, np, "mount overlaps existing mount at %q", mp.path)
		}
	}

	if r.reachesLocked(targetKey, owner.Key()) {
		return store.NewError(store.ErrCycleDetected, np,
			"mounting %s under drive %s would create a cycle", targetKey, owner.Key())
	}

	r.trees[owner.Key()] = insertByPrefixLength(r.trees[owner.Key()], mountPoint{path: np, targetKey: targetKey})
	metrics.MountsActive.Inc()
	logger.Info("mount recorded",
		"owner", owner.Handle(), "path", np, "target", targetKey.String())
	return nil
}

// Unmount removes the mount point at exactly the given normalized path.
// Fails with NotFound if no mount exists there.
func (r *Resolver) Unmount(ownerHandle uint64, path string) error {
	owner, err := r.reg.Get(ownerHandle)
	if err != nil {
		return err
	}
	np, err := Normalize(path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tree := r.trees[owner.Key()]
	for i, mp := range tree {
		if mp.path == np {
			r.trees[owner.Key()] = append(tree[:i:i], tree[i+1:]...)
			metrics.MountsActive.Dec()
			logger.Info("mount removed", "owner", owner.Handle(), "path", np)
			return nil
		}
	}
	return store.NewError(store.ErrNotFound, np, "no mount at this path")
}

// Mounts lists the mount points in ownerHandle's tree.
func (r *Resolver) Mounts(ownerHandle uint64) ([]Info, error) {
	owner, err := r.reg.Get(ownerHandle)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tree := r.trees[owner.Key()]
	out := make([]Info, 0, len(tree))
	for _, mp := range tree {
		out = append(out, Info{Path: mp.path, TargetKey: mp.targetKey})
	}
	return out, nil
}

// Resolve walks mount points by longest-prefix match, recursively across
// nested mounts, and returns the deepest (drive, remainder) pair.
//
// Mount targets are opened lazily by identity key; a target that cannot be
// reopened fails the resolution with StaleMount. Nesting beyond
// MaxResolveDepth fails with MountTooDeep.
func (r *Resolver) Resolve(ctx context.Context, ownerHandle uint64, path string) (*drive.Drive, string, error) {
	cur, err := r.reg.Get(ownerHandle)
	if err != nil {
		return nil, "", err
	}
	rem, err := Normalize(path)
	if err != nil {
		return nil, "", err
	}

	for depth := 0; depth <= MaxResolveDepth; depth++ {
		mp, ok := r.match(cur.Key(), rem)
		if !ok {
			return cur, rem, nil
		}

		target, err := r.reg.OpenByKey(ctx, mp.targetKey)
		if err != nil {
			if store.IsNotFound(err) {
				return nil, "", store.NewError(store.ErrStaleMount, mp.path,
					"mount target %s could not be reopened", mp.targetKey)
			}
			return nil, "", err
		}

		if rem == mp.path {
			rem = ""
		} else {
			rem = rem[len(mp.path)+1:]
		}
		cur = target
	}
	return nil, "", store.NewError(store.ErrMountTooDeep, path,
		"resolution exceeded %d nested mounts", MaxResolveDepth)
}

// match returns the longest-prefix mount point for rem in key's tree. The
// tree slice is ordered by descending path length, so the first hit wins.
func (r *Resolver) match(key store.Key, rem string) (mountPoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, mp := range r.trees[key] {
		if HasPathPrefix(rem, mp.path) {
			return mp, true
		}
	}
	return mountPoint{}, false
}

// reachesLocked reports whether walking mount targets starting at from can
// reach the drive identified by to. Caller holds mu.
func (r *Resolver) reachesLocked(from, to store.Key) bool {
	if from == to {
		return true
	}
	visited := map[store.Key]struct{}{from: {}}
	stack := []store.Key{from}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, mp := range r.trees[k] {
			if mp.targetKey == to {
				return true
			}
			if _, seen := visited[mp.targetKey]; !seen {
				visited[mp.targetKey] = struct{}{}
				stack = append(stack, mp.targetKey)
			}
		}
	}
	return false
}

// insertByPrefixLength keeps the tree ordered by descending path length so
// longest-prefix matching is a linear scan with first-hit semantics.
func insertByPrefixLength(tree []mountPoint, mp mountPoint) []mountPoint {
	i := 0
	for ; i < len(tree); i++ {
		if len(tree[i].path) <= len(mp.path) {
			break
		}
	}
	tree = append(tree, mountPoint{})
	copy(tree[i+1:], tree[i:])
	tree[i] = mp
	return tree
}

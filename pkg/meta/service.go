// Package meta computes and normalizes entry metadata over the storage
// primitive, including synthetic entries that are not literal storage
// nodes.
package meta

import (
	"context"
	"encoding/hex"

	"github.com/peerdrive/peerdrive/pkg/mount"
	"github.com/peerdrive/peerdrive/pkg/store"
)

// KeyMarkerName is the synthetic root-level entry exposing the drive's
// identity. It is generated per request, never stored.
const KeyMarkerName = store.KeyMarkerName

// Entry is the normalized metadata of one entry.
type Entry struct {
	Size        uint64 `json:"size"`
	UID         uint32 `json:"uid"`
	GID         uint32 `json:"gid"`
	Mode        uint32 `json:"mode"`
	IsDirectory bool   `json:"is_directory"`
}

// Service is the metadata layer.
type Service struct {
	res *mount.Resolver
}

// New creates the metadata layer over the given resolver.
func New(res *mount.Resolver) *Service {
	return &Service{res: res}
}

// Stat returns the entry metadata at path. Ownership fields are 0 unless
// set at write time; size is authoritative from the storage primitive.
func (s *Service) Stat(ctx context.Context, handle uint64, path string) (*Entry, error) {
	d, rel, err := s.res.Resolve(ctx, handle, path)
	if err != nil {
		return nil, err
	}

	if rel == KeyMarkerName {
		return &Entry{
			Size: uint64(hex.EncodedLen(store.KeySize)),
			Mode: 0o444,
		}, nil
	}

	node, err := d.Store().Stat(ctx, rel)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Size:        node.Size,
		UID:         node.UID,
		GID:         node.GID,
		Mode:        node.Mode,
		IsDirectory: node.Kind == store.KindDirectory,
	}, nil
}

// Readdir returns the child names of the directory at path. For a drive
// root the listing includes the synthetic identity marker in addition to
// real children. Ordering is unspecified but stable for an unchanged
// directory within one call.
func (s *Service) Readdir(ctx context.Context, handle uint64, path string) ([]string, error) {
	d, rel, err := s.res.Resolve(ctx, handle, path)
	if err != nil {
		return nil, err
	}

	names, err := d.Store().List(ctx, rel)
	if err != nil {
		return nil, err
	}
	if rel == "" {
		names = append(names, KeyMarkerName)
	}
	return names, nil
}

// Symlink records a link entry at linkPath pointing at targetPath. Both
// paths are interpreted within the drive the linkPath resolves to; reads
// and listings through linkPath transparently resolve to targetPath's
// entry.
func (s *Service) Symlink(ctx context.Context, handle uint64, targetPath, linkPath string) error {
	target, err := mount.Normalize(targetPath)
	if err != nil {
		return err
	}
	d, link, err := s.res.Resolve(ctx, handle, linkPath)
	if err != nil {
		return err
	}
	if link == "" {
		return store.NewError(store.ErrInvalidPath, linkPath, "cannot link over the drive root")
	}
	return d.Store().Symlink(ctx, target, link)
}

// Package objects implements the content-addressed baseline store: a
// flat, write-once, idempotent directory of files named by their SHA-256
// digest.
package objects

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/castsync/cast/pkg/atomicfile"
	"github.com/castsync/cast/pkg/normalize"
)

// Store is a flat content-addressed directory under a vault's
// .cast/objects subdirectory.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir, creating it if necessary.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object store at %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// pathFor returns the on-disk path for a digest, stripping the
// algorithm prefix the way the object stays flat regardless of which
// digest algorithm produced it.
func (s *Store) pathFor(digest normalize.Digest) string {
	hex := strings.TrimPrefix(string(digest), "sha256:")
	return filepath.Join(s.dir, hex)
}

// Has reports whether an object with this digest already exists.
func (s *Store) Has(digest normalize.Digest) bool {
	_, err := os.Stat(s.pathFor(digest))
	return err == nil
}

// Get returns the bytes stored for digest, or ok=false if absent.
func (s *Store) Get(digest normalize.Digest) (data []byte, ok bool, err error) {
	data, err = os.ReadFile(s.pathFor(digest))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Put computes the digest of data and writes it if absent. Writing is
// atomic (temp file + fsync + rename) and idempotent: a second Put of
// identical content is a cheap no-op.
func (s *Store) Put(data []byte) (normalize.Digest, error) {
	digest := normalize.ComputeDigest(data)
	path := s.pathFor(digest)

	if _, err := os.Stat(path); err == nil {
		return digest, nil
	}

	if err := atomicfile.Write(path, data, 0o444); err != nil {
		return "", fmt.Errorf("failed to write object %s: %w", digest, err)
	}
	return digest, nil
}

// List returns every digest currently stored, prefixed with "sha256:".
func (s *Store) List() ([]normalize.Digest, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]normalize.Digest, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), atomicfile.TempPrefix) {
			continue
		}
		out = append(out, normalize.Digest("sha256:"+e.Name()))
	}
	return out, nil
}

// CleanupOrphans removes any stored object whose digest is not present
// in referenced. This is a separable maintenance operation; it is never
// invoked implicitly by sync or indexing.
func (s *Store) CleanupOrphans(referenced map[normalize.Digest]struct{}) (removed int, err error) {
	all, err := s.List()
	if err != nil {
		return 0, err
	}
	for _, digest := range all {
		if _, ok := referenced[digest]; ok {
			continue
		}
		if err := os.Remove(s.pathFor(digest)); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// SizeBytes reports the total size of all stored objects.
func (s *Store) SizeBytes() (int64, error) {
	var total int64
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

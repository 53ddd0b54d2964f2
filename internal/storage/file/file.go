// Package file implements storage.Store as one JSON file per document:
// <dir>/<scope>/<key>.json. Writes go through a temp file and a rename,
// and every scope directory is guarded by a cross-process flock.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"mamaboss/internal/storage"
)

const (
	globalDir      = "_global"
	lockFileName   = ".lock"
	docExt         = ".json"
	lockRetryDelay = 100 * time.Millisecond
	lockTimeout    = 3 * time.Second
)

var ErrInvalidName = errors.New("file store: invalid scope or key")

type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

var _ storage.Store = (*Store)(nil)

func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.RWMutex)}, nil
}

// Dir returns the root data directory.
func (s *Store) Dir() string { return s.dir }

func validName(name string) bool {
	return !strings.ContainsAny(name, `/\`) && name != "." && name != ".." && !strings.HasPrefix(name, ".")
}

func (s *Store) scopeDir(scope string) (string, error) {
	if scope == storage.GlobalScope {
		return filepath.Join(s.dir, globalDir), nil
	}
	if !validName(scope) || scope == globalDir {
		return "", fmt.Errorf("%w: scope %q", ErrInvalidName, scope)
	}
	return filepath.Join(s.dir, scope), nil
}

func (s *Store) docPath(scope, key string) (string, string, error) {
	dir, err := s.scopeDir(scope)
	if err != nil {
		return "", "", err
	}
	if key == "" || !validName(key) {
		return "", "", fmt.Errorf("%w: key %q", ErrInvalidName, key)
	}
	return dir, filepath.Join(dir, key+docExt), nil
}

func (s *Store) localLock(dir string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[dir]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[dir] = l
	}
	return l
}

// withLock runs fn holding both the in-process and the on-disk lock of dir.
func (s *Store) withLock(ctx context.Context, dir string, exclusive bool, fn func() error) error {
	local := s.localLock(dir)
	if exclusive {
		local.Lock()
		defer local.Unlock()
	} else {
		local.RLock()
		defer local.RUnlock()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create scope directory: %w", err)
	}

	lctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	fl := flock.New(filepath.Join(dir, lockFileName))
	var locked bool
	var err error
	if exclusive {
		locked, err = fl.TryLockContext(lctx, lockRetryDelay)
	} else {
		locked, err = fl.TryRLockContext(lctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire file lock: timed out after %s", lockTimeout)
	}
	defer fl.Unlock()

	return fn()
}

func (s *Store) Get(ctx context.Context, scope, key string) ([]byte, error) {
	dir, path, err := s.docPath(scope, key)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.withLock(ctx, dir, false, func() error {
		b, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		data = b
		return nil
	})
	return data, err
}

func (s *Store) Set(ctx context.Context, scope, key string, value []byte) error {
	dir, path, err := s.docPath(scope, key)
	if err != nil {
		return err
	}
	return s.withLock(ctx, dir, true, func() error {
		tmp, err := os.CreateTemp(dir, "."+key+"-*.tmp")
		if err != nil {
			return fmt.Errorf("create temp file: %w", err)
		}
		tmpPath := tmp.Name()
		if _, err := tmp.Write(value); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("write temp file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("close temp file: %w", err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("rename temp file: %w", err)
		}
		return nil
	})
}

func (s *Store) Remove(ctx context.Context, scope, key string) error {
	dir, path, err := s.docPath(scope, key)
	if err != nil {
		return err
	}
	return s.withLock(ctx, dir, true, func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove document: %w", err)
		}
		return nil
	})
}

func (s *Store) Clear(ctx context.Context, scope string) error {
	keys, err := s.Keys(ctx, scope)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.Remove(ctx, scope, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, scope string) ([]string, error) {
	dir, err := s.scopeDir(scope)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scope directory: %w", err)
	}
	keys := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, docExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, docExt))
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *Store) Scopes(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	scopes := []string{}
	for _, e := range entries {
		if e.IsDir() && e.Name() != globalDir && validName(e.Name()) {
			scopes = append(scopes, e.Name())
		}
	}
	return scopes, nil
}

func (s *Store) Close() error { return nil }

package go_seos

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// MemKeystoreStorage keeps sealed blobs in memory. Useful for tests and for
// components without persistent storage.
type MemKeystoreStorage struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemKeystoreStorage creates an empty in-memory backend.
func NewMemKeystoreStorage() *MemKeystoreStorage {
	return &MemKeystoreStorage{entries: make(map[string][]byte)}
}

func (m *MemKeystoreStorage) Put(name string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = cloneBytes(blob)
	return nil
}

func (m *MemKeystoreStorage) Get(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.entries[name]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(blob), nil
}

func (m *MemKeystoreStorage) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[name]; !ok {
		return ErrNotFound
	}
	delete(m.entries, name)
	return nil
}

func (m *MemKeystoreStorage) Wipe() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]byte)
	return nil
}

// FileKeystoreStorage persists sealed blobs as one file per entry in a
// directory. Entry names are already restricted to a filesystem-safe
// alphabet before they reach the backend.
type FileKeystoreStorage struct {
	dir string
}

// keystoreFileExt marks keystore entries so unrelated files in the
// directory are left alone.
const keystoreFileExt = ".ksb"

// NewFileKeystoreStorage creates the directory if needed and returns a
// file-backed storage rooted there.
func NewFileKeystoreStorage(dir string) (*FileKeystoreStorage, error) {
	if dir == "" {
		return nil, ErrInvalidParameter
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, ErrAborted
	}
	return &FileKeystoreStorage{dir: dir}, nil
}

func (f *FileKeystoreStorage) path(name string) string {
	return filepath.Join(f.dir, name+keystoreFileExt)
}

func (f *FileKeystoreStorage) Put(name string, blob []byte) error {
	// write-then-rename keeps a crash from leaving a half-written entry
	tmp := f.path(name) + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return ErrAborted
	}
	if err := os.Rename(tmp, f.path(name)); err != nil {
		_ = os.Remove(tmp)
		return ErrAborted
	}
	return nil
}

func (f *FileKeystoreStorage) Get(name string) ([]byte, error) {
	blob, err := os.ReadFile(f.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, ErrAborted
	}
	return blob, nil
}

func (f *FileKeystoreStorage) Delete(name string) error {
	err := os.Remove(f.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return ErrAborted
	}
	return nil
}

func (f *FileKeystoreStorage) Wipe() error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return ErrAborted
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != keystoreFileExt {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, e.Name())); err != nil {
			return ErrAborted
		}
	}
	return nil
}

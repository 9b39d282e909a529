package store

import (
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mcsas3/mcsas3-go/mcerr"
)

// FileStore is a Store backed by a single msgpack-encoded file. It keeps
// the full key/value table in memory (via an embedded MemStore) and
// flushes to disk on every mutating call, following the original format's
// "open, mutate, close" HDF5 idiom (McHDF._HDFstoreKV) without requiring
// an HDF5 binding (none exists in the available dependency set — see
// DESIGN.md). A whole-file rewrite cannot offer path-scoped writer
// isolation (§5), so concurrent writers are serialized through a single
// flush mutex rather than racing on the underlying file.
type FileStore struct {
	*MemStore
	filename string
	flushMu  sync.Mutex
}

// Open loads filename if it exists, or starts an empty store that will be
// created on first write.
func Open(filename string) (*FileStore, error) {
	fs := &FileStore{MemStore: NewMemStore(), filename: filename}
	if _, err := os.Stat(filename); err == nil {
		if err := fs.reload(); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

func (fs *FileStore) reload() error {
	b, err := os.ReadFile(fs.filename)
	if err != nil {
		return mcerr.New(mcerr.ConfigInvalid, err)
	}
	var data map[string]entry
	if err := msgpack.Unmarshal(b, &data); err != nil {
		return mcerr.New(mcerr.ConfigInvalid, err)
	}
	fs.load(data)
	return nil
}

func (fs *FileStore) flush() error {
	fs.flushMu.Lock()
	defer fs.flushMu.Unlock()
	b, err := msgpack.Marshal(fs.snapshot())
	if err != nil {
		return mcerr.New(mcerr.ConfigInvalid, err)
	}
	return os.WriteFile(fs.filename, b, 0o644)
}

func (fs *FileStore) PutScalar(path, name string, v float64) error {
	if err := fs.MemStore.PutScalar(path, name, v); err != nil {
		return err
	}
	return fs.flush()
}

func (fs *FileStore) PutArray(path, name string, v []float64) error {
	if err := fs.MemStore.PutArray(path, name, v); err != nil {
		return err
	}
	return fs.flush()
}

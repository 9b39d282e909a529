package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/mcsas3/mcsas3-go/mcerr"
)

// entry is the value held at one (path, name) key: either a scalar or an
// array, never both. Fields are exported so msgpack can encode them
// without custom marshalers.
type entry struct {
	Scalar   float64   `msgpack:"scalar"`
	Array    []float64 `msgpack:"array"`
	IsScalar bool      `msgpack:"isScalar"`
}

// MemStore is an in-memory Store, used by tests and as the building block
// FileStore persists to disk. Keys are sharded across a sync.Map rather
// than guarded by one global lock, so concurrent repetitions writing to
// distinct "repetition{i}/" prefixes do not serialize against each other
// (§5 path-scoped writer isolation).
type MemStore struct {
	data sync.Map // string -> entry
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func key(path, name string) string {
	return strings.Trim(path, "/") + "/" + name
}

func (m *MemStore) PutScalar(path, name string, v float64) error {
	m.data.Store(key(path, name), entry{Scalar: v, IsScalar: true})
	return nil
}

func (m *MemStore) GetScalar(path, name string) (float64, error) {
	v, ok := m.data.Load(key(path, name))
	e, _ := v.(entry)
	if !ok || !e.IsScalar {
		return 0, mcerr.Newf(mcerr.ConfigInvalid, "store: no scalar at %s/%s", path, name)
	}
	return e.Scalar, nil
}

func (m *MemStore) PutArray(path, name string, v []float64) error {
	m.data.Store(key(path, name), entry{Array: append([]float64(nil), v...)})
	return nil
}

func (m *MemStore) GetArray(path, name string) ([]float64, error) {
	v, ok := m.data.Load(key(path, name))
	e, _ := v.(entry)
	if !ok || e.IsScalar {
		return nil, mcerr.Newf(mcerr.ConfigInvalid, "store: no array at %s/%s", path, name)
	}
	return append([]float64(nil), e.Array...), nil
}

func (m *MemStore) Groups(path string) ([]string, error) {
	prefix := strings.Trim(path, "/") + "/"
	seen := make(map[string]bool)
	m.data.Range(func(k, _ interface{}) bool {
		rest := strings.TrimPrefix(k.(string), prefix)
		if rest == k.(string) {
			return true // k did not have prefix
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			seen[rest[:i]] = true
		}
		return true
	})
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out, nil
}

// snapshot returns a deep copy of the underlying map, for FileStore's
// encode step.
func (m *MemStore) snapshot() map[string]entry {
	out := make(map[string]entry)
	m.data.Range(func(k, v interface{}) bool {
		out[k.(string)] = v.(entry)
		return true
	})
	return out
}

func (m *MemStore) load(data map[string]entry) {
	m.data.Range(func(k, _ interface{}) bool {
		m.data.Delete(k)
		return true
	})
	for k, v := range data {
		m.data.Store(k, v)
	}
}

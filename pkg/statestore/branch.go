package statestore

import (
	"sort"
	"sync"
)

// Branch is a write-buffering view over a parent KVStore.
// Reads fall through to the parent for keys the branch has not touched.
// Nothing reaches the parent until Write is called; Discard drops all buffered changes.
// Branches nest: a Branch is itself a KVStore.
type Branch struct {
	parent KVStore

	mu      sync.RWMutex
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewBranch creates a new branch over parent.
func NewBranch(parent KVStore) *Branch {
	return &Branch{
		parent:  parent,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// Get retrieves the value for a key, preferring buffered changes.
func (b *Branch) Get(key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	k := string(key)
	if _, ok := b.deletes[k]; ok {
		return nil, nil
	}
	if v, ok := b.writes[k]; ok {
		return cloneBytes(v), nil
	}
	return b.parent.Get(key)
}

// Has checks if a key exists in the branch view.
func (b *Branch) Has(key []byte) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	k := string(key)
	if _, ok := b.deletes[k]; ok {
		return false, nil
	}
	if _, ok := b.writes[k]; ok {
		return true, nil
	}
	return b.parent.Has(key)
}

// Set buffers a key-value pair.
func (b *Branch) Set(key []byte, value []byte) error {
	if key == nil {
		return errNilKey
	}
	if value == nil {
		return errNilValue
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	k := string(key)
	delete(b.deletes, k)
	b.writes[k] = cloneBytes(value)
	return nil
}

// Delete buffers the removal of a key.
func (b *Branch) Delete(key []byte) error {
	if key == nil {
		return errNilKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	k := string(key)
	delete(b.writes, k)
	b.deletes[k] = struct{}{}
	return nil
}

// Write applies all buffered changes to the parent in sorted key order and
// resets the branch. The order keeps the resulting tree independent of map iteration.
func (b *Branch) Write() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]string, 0, len(b.writes)+len(b.deletes))
	for k := range b.writes {
		keys = append(keys, k)
	}
	for k := range b.deletes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if v, ok := b.writes[k]; ok {
			if err := b.parent.Set([]byte(k), v); err != nil {
				return err
			}
			continue
		}
		if err := b.parent.Delete([]byte(k)); err != nil {
			return err
		}
	}

	b.reset()
	return nil
}

// Discard drops all buffered changes.
func (b *Branch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

// Dirty reports whether the branch holds unwritten changes.
func (b *Branch) Dirty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.writes) > 0 || len(b.deletes) > 0
}

func (b *Branch) reset() {
	b.writes = make(map[string][]byte)
	b.deletes = make(map[string]struct{})
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ KVStore = (*Branch)(nil)

package scene

import "sync/atomic"

// DefaultBucket is the reserved vocabulary entry at index 0. Every name that
// was never registered resolves to it, so unrecognized object types at
// inference time fold into the "some unknown object" mass instead of failing.
const DefaultBucket = "__default__"

// Vocabulary maps object-type names to stable integer indices. Indices are
// assigned monotonically and never reused; index 0 is always DefaultBucket.
// All probability tables in the model are backed by a Vocabulary.
type Vocabulary struct {
	names []string
	index map[string]int

	// defaultHits counts lookups that fell through to the default bucket.
	// Exposed so operators can see how much evidence mass the fallback is
	// silently absorbing.
	defaultHits atomic.Uint64
}

// NewVocabulary returns a vocabulary containing only the default bucket.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		names: []string{DefaultBucket},
		index: map[string]int{DefaultBucket: 0},
	}
}

// Register returns the index for name, appending a new entry if name was not
// seen before. Registering the same name twice returns the same index.
func (v *Vocabulary) Register(name string) int {
	if idx, ok := v.index[name]; ok {
		return idx
	}
	idx := len(v.names)
	v.names = append(v.names, name)
	v.index[name] = idx
	return idx
}

// Lookup returns the index for name, or 0 (the default bucket) if name was
// never registered. Lookup never grows the vocabulary.
func (v *Vocabulary) Lookup(name string) int {
	if idx, ok := v.index[name]; ok {
		return idx
	}
	v.defaultHits.Add(1)
	return 0
}

// Index is the strict variant of Lookup: it reports whether name is actually
// registered instead of falling back to the default bucket.
func (v *Vocabulary) Index(name string) (int, bool) {
	idx, ok := v.index[name]
	return idx, ok
}

// Contains reports whether name is registered.
func (v *Vocabulary) Contains(name string) bool {
	_, ok := v.index[name]
	return ok
}

// Len returns the number of entries including the default bucket.
func (v *Vocabulary) Len() int { return len(v.names) }

// Name returns the name at idx, or the default bucket for out-of-range
// indices.
func (v *Vocabulary) Name(idx int) string {
	if idx < 0 || idx >= len(v.names) {
		return DefaultBucket
	}
	return v.names[idx]
}

// Names returns a copy of the entries in index order. The ordering is stable
// and is what gets persisted in the model schema.
func (v *Vocabulary) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// DefaultHits returns how many lookups resolved to the default bucket.
func (v *Vocabulary) DefaultHits() uint64 { return v.defaultHits.Load() }

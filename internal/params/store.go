package params

import (
	"sync"
	"time"
)

// Source identifies where a parameter change originated.
type Source string

const (
	SourceCLI     Source = "cli"
	SourceEnv     Source = "env"
	SourceFile    Source = "file"
	SourceNetwork Source = "network"
)

// Change describes one applied parameter update. The store hands a slice of
// these to each registered observer after an Update commits.
type Change struct {
	Timestamp time.Time
	Source    Source
	Name      string
	Old       float64
	New       float64
}

// UpdateResult is the per-key outcome of a Store.Update call.
type UpdateResult struct {
	Applied  Set               `json:"applied"`
	Rejected map[string]string `json:"rejected,omitempty"`
}

// Store holds the live parameter set. Readers take immutable snapshot copies;
// writers serialise through a single mutex so no reader ever observes a
// half-applied batch.
type Store struct {
	mu        sync.RWMutex
	values    Set
	observers []func([]Change)
}

// NewStore creates a store seeded with every registered default, then layered
// with the given override sets in order (later sets win). Overrides are
// assumed pre-validated; unknown keys are dropped silently.
func NewStore(layers ...Set) *Store {
	values := Defaults()
	for _, layer := range layers {
		for k, v := range layer {
			if _, ok := registryByName[k]; ok {
				values[k] = v
			}
		}
	}
	return &Store{values: values}
}

// Observe registers a callback invoked synchronously, outside the store lock,
// with the changes of every committed Update batch. Observers run on the
// updating goroutine in registration order; the audit logger and the
// write-through persister register here.
func (st *Store) Observe(fn func([]Change)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.observers = append(st.observers, fn)
}

// Snapshot returns an immutable copy of the current parameter set. The copy
// is safe to read for the rest of the caller's cycle without any lock.
func (st *Store) Snapshot() Set {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.values.Clone()
}

// Update validates each key of partial independently and applies all valid
// keys as one atomic batch. It returns the applied values and, per rejected
// key, a reason (unknown key, wrong type, out of range). A batch with zero
// valid keys changes nothing and notifies nobody.
func (st *Store) Update(partial map[string]any, source Source) UpdateResult {
	res := UpdateResult{Applied: make(Set), Rejected: make(map[string]string)}
	validated := make(Set)
	for name, raw := range partial {
		spec, ok := registryByName[name]
		if !ok {
			res.Rejected[name] = "unknown parameter"
			continue
		}
		v, reason := spec.validate(raw)
		if reason != "" {
			res.Rejected[name] = reason
			continue
		}
		validated[name] = v
	}
	if len(validated) == 0 {
		return res
	}

	now := time.Now()
	var changes []Change

	st.mu.Lock()
	for name, v := range validated {
		old := st.values[name]
		st.values[name] = v
		res.Applied[name] = v
		changes = append(changes, Change{
			Timestamp: now,
			Source:    source,
			Name:      name,
			Old:       old,
			New:       v,
		})
	}
	observers := st.observers
	st.mu.Unlock()

	for _, fn := range observers {
		fn(changes)
	}
	return res
}

// UpdateValues is Update for callers that already hold numeric values
// (file reload, paramctl-style tooling).
func (st *Store) UpdateValues(partial Set, source Source) UpdateResult {
	raw := make(map[string]any, len(partial))
	for k, v := range partial {
		raw[k] = v
	}
	return st.Update(raw, source)
}

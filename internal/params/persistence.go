package params

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/carrybot-robotics/stairguard/internal/monitoring"
)

// FileStore persists the parameter set as a flat JSON object at a well-known
// path and detects external edits by comparing a modification fingerprint.
// The in-memory Store stays authoritative: a failing disk degrades to log
// lines, never to a stalled sampling loop.
type FileStore struct {
	path string

	mu          sync.Mutex
	fingerprint fileFingerprint
}

type fileFingerprint struct {
	modTimeUnixNanos int64
	size             int64
}

// NewFileStore creates a persister for the JSON document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: filepath.Clean(path)}
}

// Path returns the configured document path.
func (fs *FileStore) Path() string { return fs.path }

// Load parses the durable document into a Set. Unknown keys are ignored,
// non-numeric or out-of-range values fall back to the key's default. A
// missing file is not an error; it returns an empty set.
func (fs *FileStore) Load() (Set, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("read config document: %w", err)
	}
	fs.mu.Lock()
	fs.fingerprint = fs.statFingerprint()
	fs.mu.Unlock()
	return parseDocument(data), nil
}

func parseDocument(data []byte) Set {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		monitoring.Logf("config document is not a JSON object, ignoring: %v", err)
		return Set{}
	}
	set := make(Set)
	for name, raw := range doc {
		spec, ok := registryByName[name]
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			monitoring.Logf("config key %q is not numeric, using default", name)
			set[name] = spec.Default
			continue
		}
		if nv, reason := spec.validate(v); reason == "" {
			set[name] = nv
		} else {
			monitoring.Logf("config key %q rejected (%s), using default", name, reason)
			set[name] = spec.Default
		}
	}
	return set
}

// Save writes the full current parameter set, replacing the previous
// document. Only recognised keys are written, so stray keys from hand edits
// are not round-tripped. The write goes through a temp file and rename so a
// concurrent Load never sees a torn document.
func (fs *FileStore) Save(set Set) error {
	doc := make(map[string]float64, len(Registry))
	for _, spec := range Registry {
		if v, ok := set[spec.Name]; ok {
			doc[spec.Name] = v
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config document: %w", err)
	}
	data = append(data, '\n')

	fs.mu.Lock()
	defer fs.mu.Unlock()

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write config document: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("replace config document: %w", err)
	}
	// Record our own write so the next poll does not report it as an
	// external edit.
	fs.fingerprint = fs.statFingerprint()
	return nil
}

// PollExternalChange compares the stored fingerprint against the file's
// current one. If the document changed outside this process it is reloaded
// and the parsed set returned; otherwise it returns nil. Called once per
// sampling cycle (or on a low-frequency timer in server-only mode).
func (fs *FileStore) PollExternalChange() (Set, error) {
	fs.mu.Lock()
	current := fs.statFingerprint()
	changed := current != fs.fingerprint && current != (fileFingerprint{})
	fs.mu.Unlock()

	if !changed {
		return nil, nil
	}
	return fs.Load()
}

// statFingerprint must be called with fs.mu held (or before the store is
// shared). A missing file yields the zero fingerprint.
func (fs *FileStore) statFingerprint() fileFingerprint {
	info, err := os.Stat(fs.path)
	if err != nil {
		return fileFingerprint{}
	}
	return fileFingerprint{
		modTimeUnixNanos: info.ModTime().UnixNano(),
		size:             info.Size(),
	}
}

// WriteThrough returns an observer that saves the full set after every
// committed update. Persistence failure is logged and swallowed; the
// in-memory store remains authoritative.
func (fs *FileStore) WriteThrough(st *Store) func([]Change) {
	return func([]Change) {
		if err := fs.Save(st.Snapshot()); err != nil {
			monitoring.Logf("config write-through failed: %v", err)
		}
	}
}

package drivelink

import (
	"bytes"
	"strings"
	"sync"
)

// MockPort is an in-memory WriteCloser for tests: it records everything the
// link writes and can be told to fail.
type MockPort struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	failed error
	closed bool
}

// NewMockLink returns a Link backed by a MockPort, plus the port for
// inspection.
func NewMockLink() (*Link, *MockPort) {
	p := &MockPort{}
	return New(p), p
}

func (p *MockPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed != nil {
		return 0, p.failed
	}
	return p.buf.Write(b)
}

func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// FailWith makes subsequent writes return err (nil restores normal writes).
func (p *MockPort) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = err
}

// Lines returns the complete lines written so far.
func (p *MockPort) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := strings.TrimSuffix(p.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Closed reports whether Close was called.
func (p *MockPort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

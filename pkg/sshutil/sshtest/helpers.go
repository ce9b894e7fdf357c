package sshtest

import (
	"context"
	"errors"
	"sync"

	"github.com/rileyhilliard/barstat/pkg/sshutil"
)

// WithFiles pre-populates the host's filesystem. Keys are paths, values
// are file contents.
func WithFiles(host *MockHost, files map[string]string) {
	for p, content := range files {
		host.FS().WriteFile(p, []byte(content))
	}
}

// WithDirs creates directories on the host.
func WithDirs(host *MockHost, dirs []string) {
	for _, dir := range dirs {
		host.FS().MkdirAll(dir)
	}
}

// Network hands out MockHosts by name. Each dial creates a fresh host
// through its factory, so a test can observe reconnects.
type Network struct {
	mu      sync.Mutex
	factory map[string]func() *MockHost
	dialed  map[string][]*MockHost
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		factory: make(map[string]func() *MockHost),
		dialed:  make(map[string][]*MockHost),
	}
}

// Add makes name reachable. setup, when non-nil, prepares every new
// connection's host.
func (n *Network) Add(name string, setup func(*MockHost)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.factory[name] = func() *MockHost {
		h := NewMockHost(name)
		if setup != nil {
			setup(h)
		}
		return h
	}
}

// Dial implements sshutil.DialFunc. Unknown hosts fail the way an
// unreachable address does.
func (n *Network) Dial(ctx context.Context, name string) (sshutil.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	factory, ok := n.factory[name]
	if !ok {
		return nil, errors.New("dial tcp " + name + ":22: connect: no route to host")
	}
	h := factory()
	n.dialed[name] = append(n.dialed[name], h)
	return h, nil
}

// Connections returns every connection dialed to name, oldest first.
func (n *Network) Connections(name string) []*MockHost {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*MockHost(nil), n.dialed[name]...)
}

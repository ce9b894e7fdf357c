package sshutil

import (
	"context"
	"sync"

	"github.com/rileyhilliard/barstat/internal/errors"
)

// Pool keeps one connection per host alive between refresh cycles so a
// remote block doesn't pay for a handshake every interval.
type Pool struct {
	mu          sync.Mutex
	connections map[string]Conn
	dial        DialFunc
}

// NewPool creates a pool that opens connections with dial.
func NewPool(dial DialFunc) *Pool {
	return &Pool{
		connections: make(map[string]Conn),
		dial:        dial,
	}
}

// Get returns the pooled connection for host, dialing a fresh one when
// none exists or the old one is dead.
func (p *Pool) Get(ctx context.Context, host string) (Conn, error) {
	p.mu.Lock()
	pooled, exists := p.connections[host]
	p.mu.Unlock()

	if exists {
		if pooled.Alive() {
			return pooled, nil
		}
		p.remove(host, pooled)
	}

	conn, err := p.dial(ctx, host)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Another task may have dialed the same host meanwhile; keep theirs.
	if existing, ok := p.connections[host]; ok {
		_ = conn.Close()
		return existing, nil
	}
	p.connections[host] = conn
	return conn, nil
}

// Run executes command on host over the pooled connection. A session
// failure drops the connection so the next call redials.
func (p *Pool) Run(ctx context.Context, host, command string) (stdout, stderr []byte, exitCode int, err error) {
	conn, err := p.Get(ctx, host)
	if err != nil {
		return nil, nil, -1, err
	}

	stdout, stderr, exitCode, err = conn.Exec(ctx, command)
	if err != nil && errors.IsCode(err, errors.ErrSSH) {
		p.remove(host, conn)
	}
	return stdout, stderr, exitCode, err
}

// Close closes every pooled connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for host, conn := range p.connections {
		_ = conn.Close()
		delete(p.connections, host)
	}
	return nil
}

// Size returns the number of pooled connections.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.connections)
}

// remove closes conn and drops it, unless it was already replaced.
func (p *Pool) remove(host string, conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pooled, ok := p.connections[host]; ok && pooled == conn {
		_ = pooled.Close()
		delete(p.connections, host)
	}
}

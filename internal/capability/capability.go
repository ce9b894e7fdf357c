// Package capability holds the measurement kinds a block can be configured
// with and the registry that maps kind names to them.
package capability

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/rileyhilliard/barstat/internal/config"
)

// Reading is the result of one measurement.
type Reading struct {
	// Value replaces "{}" in the block's format.
	Value string
	// Fields replace "{name}" placeholders.
	Fields map[string]string
	// Color is a semantic name (good, degraded, bad) or a color value.
	// The entry's configured color takes precedence.
	Color string
	// FullText, when set, is used as the block text and format is skipped.
	FullText string
}

// Capability performs one measurement. Implementations must honor ctx and
// must not keep state that another instance of the same kind could see.
// Args carries the entry's arguments plus its effective format.
type Capability interface {
	Measure(ctx context.Context, args config.Args) (Reading, error)
}

// Func adapts a plain function to Capability.
type Func func(ctx context.Context, args config.Args) (Reading, error)

// Measure calls f.
func (f Func) Measure(ctx context.Context, args config.Args) (Reading, error) {
	return f(ctx, args)
}

// Kind is a registered capability with its default format.
type Kind struct {
	Name          string
	Capability    Capability
	DefaultFormat string
}

// Registry maps kind names to capabilities. It is built once at startup
// and passed to whatever needs it.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
	close []io.Closer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds a kind. Registering the same name twice is an error.
func (r *Registry) Register(k Kind) error {
	if k.Name == "" || k.Capability == nil {
		return fmt.Errorf("capability: kind needs a name and an implementation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.kinds[k.Name]; dup {
		return fmt.Errorf("capability: kind %q already registered", k.Name)
	}
	r.kinds[k.Name] = k
	return nil
}

// MustRegister is Register for static setup.
func (r *Registry) MustRegister(k Kind) {
	if err := r.Register(k); err != nil {
		panic(err)
	}
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Kinds returns the registered names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OnClose registers a resource released by Close.
func (r *Registry) OnClose(c io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.close = append(r.close, c)
}

// Close releases resources shared by capabilities, such as pooled
// connections.
func (r *Registry) Close() error {
	r.mu.Lock()
	closers := r.close
	r.close = nil
	r.mu.Unlock()

	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

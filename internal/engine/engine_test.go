package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/barstat/internal/block"
	"github.com/rileyhilliard/barstat/internal/capability"
	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
)

// Shared fixtures for the engine tests.

func testGeneral() config.General {
	return config.General{
		Interval:    time.Second,
		TaskTimeout: 5 * time.Second,
		Output:      config.OutputI3bar,
		Separator:   true,
		Colors: config.Colors{
			Good:     block.DefaultGood,
			Degraded: block.DefaultDegraded,
			Bad:      block.DefaultBad,
		},
	}
}

// entry builds an entry from key/value pairs.
func entry(instance, kind string, kv ...string) config.Entry {
	e := config.Entry{
		Instance:  instance,
		Kind:      kind,
		Separator: true,
		Args:      config.Args{"instance": instance},
	}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Args[kv[i]] = kv[i+1]
	}
	return e
}

func configOf(entries ...config.Entry) *config.Config {
	return &config.Config{
		Path:     "test.yaml",
		General:  testGeneral(),
		Snapshot: config.Snapshot{Entries: entries},
	}
}

// echo returns its "text" argument.
var echo = capability.Func(func(ctx context.Context, args config.Args) (capability.Reading, error) {
	return capability.Reading{Value: args["text"]}, nil
})

// counted counts calls and returns err, or the call number.
type counted struct {
	calls atomic.Int64
	err   error
}

func (c *counted) Measure(ctx context.Context, args config.Args) (capability.Reading, error) {
	n := c.calls.Add(1)
	if c.err != nil {
		return capability.Reading{}, c.err
	}
	return capability.Reading{Value: strconv.FormatInt(n, 10)}, nil
}

// rendezvous only lets callers through once n of them are waiting at the
// same time, so it can only succeed when tasks really run concurrently.
type rendezvous struct {
	n       int
	mu      sync.Mutex
	arrived int
	release chan struct{}
}

func (r *rendezvous) Measure(ctx context.Context, args config.Args) (capability.Reading, error) {
	r.mu.Lock()
	if r.release == nil {
		r.release = make(chan struct{})
	}
	gate := r.release
	r.arrived++
	if r.arrived == r.n {
		close(gate)
		r.arrived = 0
		r.release = nil
	}
	r.mu.Unlock()

	select {
	case <-gate:
		return capability.Reading{Value: "met"}, nil
	case <-ctx.Done():
		return capability.Reading{}, ctx.Err()
	}
}

func testRegistry(extra ...capability.Kind) *capability.Registry {
	r := capability.NewRegistry()
	r.MustRegister(capability.Kind{Name: "echo", Capability: echo, DefaultFormat: " {} "})
	for _, k := range extra {
		r.MustRegister(k)
	}
	return r
}

// scriptedSource returns its configs in order, repeating the last one.
// A nil config in the script returns err instead.
type scriptedSource struct {
	mu      sync.Mutex
	configs []*config.Config
	err     error
	loads   int
}

func (s *scriptedSource) Load() (*config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.loads
	if i >= len(s.configs) {
		i = len(s.configs) - 1
	}
	s.loads++
	if s.configs[i] == nil {
		return nil, s.err
	}
	return s.configs[i], nil
}

// recordingEncoder keeps every frame and announces it on frames.
type recordingEncoder struct {
	mu       sync.Mutex
	headers  int
	written  [][]block.Block
	frames   chan []block.Block
	frameErr error
}

func newRecordingEncoder() *recordingEncoder {
	return &recordingEncoder{frames: make(chan []block.Block, 64)}
}

func (e *recordingEncoder) WriteHeader() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.headers++
	return nil
}

func (e *recordingEncoder) WriteFrame(blocks []block.Block) error {
	if e.frameErr != nil {
		return e.frameErr
	}
	e.mu.Lock()
	e.written = append(e.written, blocks)
	e.mu.Unlock()
	e.frames <- blocks
	return nil
}

func (e *recordingEncoder) snapshot() (int, [][]block.Block) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.headers, append([][]block.Block(nil), e.written...)
}

func texts(frame []block.Block) []string {
	out := make([]string, len(frame))
	for i, b := range frame {
		out[i] = b.FullText
	}
	return out
}

var errFlaky = errors.WrapWithCode(fmt.Errorf("connection reset"), errors.ErrMeasure, "probe failed", "")

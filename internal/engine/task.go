package engine

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/barstat/internal/block"
	"github.com/rileyhilliard/barstat/internal/capability"
	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/rileyhilliard/barstat/internal/logger"
)

// Task is the worker for one configured instance. The coordinator owns it:
// Execute and Reconfigure are never called concurrently for the same task.
type Task struct {
	entry   config.Entry
	kind    capability.Kind
	args    config.Args
	format  string
	palette block.Palette
	log     logger.Logger

	last    block.Block
	hasLast bool

	// permanent is the last configuration error and the fingerprint of
	// the entry that produced it. The capability isn't called again until
	// the fingerprint changes.
	permanent   error
	failedPrint uint64

	// pending is the result channel of a measurement abandoned at its
	// deadline. No new measurement starts until it delivers.
	pending <-chan measurement
}

// NewTask creates a task for entry measured by kind.
func NewTask(entry config.Entry, kind capability.Kind, palette block.Palette, log logger.Logger) *Task {
	if log == nil {
		log = logger.Noop()
	}
	t := &Task{log: log}
	t.Reconfigure(entry, kind, palette)
	return t
}

// Instance returns the task's key.
func (t *Task) Instance() string {
	return t.entry.Instance
}

// Entry returns the current configuration.
func (t *Task) Entry() config.Entry {
	return t.entry
}

// LastOutput returns the block produced by the most recent Execute.
func (t *Task) LastOutput() (block.Block, bool) {
	return t.last, t.hasLast
}

// Reconfigure swaps in a new configuration. The last output is kept.
func (t *Task) Reconfigure(entry config.Entry, kind capability.Kind, palette block.Palette) {
	format := entry.Format
	if format == "" {
		format = kind.DefaultFormat
	}

	// Capabilities get their own copy of the args with the effective
	// format, so nothing they hold can see a later reconfiguration.
	args := make(config.Args, len(entry.Args)+1)
	for k, v := range entry.Args {
		args[k] = v
	}
	args[config.KeyFormat] = format

	t.entry = entry
	t.kind = kind
	t.args = args
	t.format = format
	t.palette = palette
}

type measurement struct {
	reading capability.Reading
	err     error
}

// Execute measures once and returns the block to show. Failures produce an
// error block; they never propagate. If ctx ends before the capability
// returns, the result is abandoned and an error block is returned. While an
// abandoned measurement is still running, later calls return an error block
// without starting another one.
func (t *Task) Execute(ctx context.Context) block.Block {
	if t.pending != nil {
		select {
		case <-t.pending:
			t.pending = nil
		default:
			t.log.Debug("%s: previous measurement still running, skipping", t.entry.Instance)
			return t.record(t.errorBlock())
		}
	}

	fingerprint := t.entry.Fingerprint()
	if t.permanent != nil && fingerprint == t.failedPrint {
		return t.record(t.errorBlock())
	}

	done := make(chan measurement, 1)
	go func(c capability.Capability, args config.Args) {
		var m measurement
		defer func() {
			if r := recover(); r != nil {
				m = measurement{err: errors.Wrap(fmt.Errorf("panic: %v", r), "Capability crashed")}
			}
			done <- m
		}()
		m.reading, m.err = c.Measure(ctx, args)
	}(t.kind.Capability, t.args)

	m, ok := await(ctx, done)
	if !ok {
		t.pending = done
		m.err = errors.Wrap(ctx.Err(), fmt.Sprintf("'%s' didn't finish in time", t.entry.Instance))
	}
	if m.err != nil {
		return t.record(t.fail(m.err, fingerprint))
	}

	t.permanent = nil
	return t.record(t.render(m.reading))
}

// await returns the measurement from done, or false if ctx ends first. A
// result that is already delivered wins over an expired ctx.
func await(ctx context.Context, done <-chan measurement) (measurement, bool) {
	select {
	case m := <-done:
		return m, true
	case <-ctx.Done():
	}
	select {
	case m := <-done:
		return m, true
	default:
		return measurement{}, false
	}
}

func (t *Task) fail(err error, fingerprint uint64) block.Block {
	if errors.IsPermanent(err) {
		t.permanent = err
		t.failedPrint = fingerprint
		t.log.Warn("%s: %s (not retried until its config changes)", t.entry.Instance, errors.Brief(err))
	} else {
		t.log.Warn("%s: %s", t.entry.Instance, errors.Brief(err))
	}
	return t.errorBlock()
}

func (t *Task) render(r capability.Reading) block.Block {
	text := r.FullText
	if text == "" {
		text = block.Format(t.format, r.Value, r.Fields)
	}

	b := block.Block{
		Name:      t.kind.Name,
		Instance:  t.entry.Instance,
		FullText:  text,
		Separator: t.entry.Separator,
	}

	color := t.entry.Color
	if color == "" {
		color = r.Color
	}
	if color != "" {
		resolved, err := t.palette.Resolve(color)
		if err != nil {
			t.log.Debug("%s: ignoring color %q: %v", t.entry.Instance, color, err)
		}
		b.Color = resolved
	}
	return b.Sanitize()
}

func (t *Task) errorBlock() block.Block {
	color, err := t.palette.Resolve(block.ColorBad)
	if err != nil {
		color = block.DefaultBad
	}
	return block.Error(t.kind.Name, t.entry.Instance, t.entry.Separator, color).Sanitize()
}

func (t *Task) record(b block.Block) block.Block {
	t.last = b
	t.hasLast = true
	return b
}

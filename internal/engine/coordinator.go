// Package engine runs the refresh loop: it measures every configured
// instance concurrently, waits for all of them, writes one frame, sleeps and
// picks up configuration changes before the next cycle.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rileyhilliard/barstat/internal/block"
	"github.com/rileyhilliard/barstat/internal/capability"
	"github.com/rileyhilliard/barstat/internal/clock"
	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/rileyhilliard/barstat/internal/logger"
	"github.com/rileyhilliard/barstat/internal/protocol"
)

// Source produces configuration. *config.Loader is the production source.
type Source interface {
	Load() (*config.Config, error)
}

// Options configures a Coordinator.
type Options struct {
	// Source is re-read before every cycle.
	Source Source
	// Registry resolves function names to capabilities.
	Registry *capability.Registry
	// Encoder writes the primary stream.
	Encoder protocol.Encoder
	Clock   clock.Clock
	Logger  logger.Logger
}

// Coordinator owns the task list. Only Run mutates it, and only between
// cycles.
type Coordinator struct {
	source   Source
	registry *capability.Registry
	encoder  protocol.Encoder
	clock    clock.Clock
	log      logger.Logger

	general config.General
	palette block.Palette
	tasks   []*Task
	cycles  uint64

	// reported holds the problems logged for the current configuration so a
	// broken entry is reported once, not every cycle.
	reported map[string]bool
}

// New builds the task list from the initial configuration. Any entry the
// initial configuration couldn't use is a startup failure.
func New(opts Options, initial *config.Config) (*Coordinator, error) {
	if opts.Registry == nil || opts.Encoder == nil || initial == nil {
		return nil, fmt.Errorf("engine: registry, encoder and initial config are required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}

	c := &Coordinator{
		source:   opts.Source,
		registry: opts.Registry,
		encoder:  opts.Encoder,
		clock:    opts.Clock,
		log:      opts.Logger,
		reported: make(map[string]bool),
	}

	snapshot, problems := c.validate(initial)
	if len(problems) > 0 {
		return nil, startupError(initial.Path, problems)
	}

	c.apply(initial.General, snapshot)
	return c, nil
}

func startupError(path string, problems []error) error {
	lines := make([]string, len(problems))
	for i, p := range problems {
		lines[i] = "- " + describe(p)
	}
	return errors.WrapWithCode(fmt.Errorf("%s", strings.Join(lines, "\n  ")), errors.ErrConfig,
		fmt.Sprintf("%d block(s) in %s can't be used", len(problems), path),
		"Fix the listed blocks and start barstat again.")
}

// describe renders a problem on one line with its suggestion.
func describe(err error) string {
	msg := errors.Brief(err)
	if hint := errors.Hint(err); hint != "" {
		msg += ". " + hint
	}
	return msg
}

// Tasks returns the current task list in emission order.
func (c *Coordinator) Tasks() []*Task {
	out := make([]*Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Cycles returns the number of frames written so far.
func (c *Coordinator) Cycles() uint64 {
	return c.cycles
}

// Run writes the header and then one frame per cycle until ctx is done.
// Cancellation returns nil; the only error is a failure writing output.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.encoder.WriteHeader(); err != nil {
		return err
	}

	for {
		frame, err := c.RunCycle(ctx)
		if err != nil {
			c.log.Debug("stopping before writing cycle %d: %v", c.cycles+1, err)
			return nil
		}

		if err := c.encoder.WriteFrame(frame); err != nil {
			return err
		}
		c.cycles++

		if err := clock.Sleep(ctx, c.clock, c.general.Interval); err != nil {
			return nil
		}

		c.Reload()
	}
}

// RunCycle executes every task concurrently and returns their blocks in
// task order once all of them have finished. If ctx ends during the cycle
// the blocks are discarded and ctx.Err() is returned.
func (c *Coordinator) RunCycle(ctx context.Context) ([]block.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := make([]block.Block, len(c.tasks))
	timeout := c.general.TaskTimeout

	var wg sync.WaitGroup
	for i, task := range c.tasks {
		wg.Add(1)
		go func(i int, task *Task) {
			defer wg.Done()

			taskCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				taskCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			frame[i] = task.Execute(taskCtx)
		}(i, task)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return frame, nil
}

// Reload re-reads the configuration and reconciles the task list with it.
// A configuration that can't be read leaves everything as it was.
func (c *Coordinator) Reload() {
	if c.source == nil {
		return
	}

	cfg, err := c.source.Load()
	if err != nil {
		err = errors.WrapWithCode(err, errors.ErrReload,
			"Couldn't reload config, keeping the previous one", "")
		c.report([]error{err})
		return
	}

	snapshot, problems := c.validate(cfg)
	c.report(problems)

	if cfg.General.Output != c.general.Output {
		c.log.Warn("output mode changed to %q; restart barstat to apply it", cfg.General.Output)
		cfg.General.Output = c.general.Output
	}

	c.apply(cfg.General, snapshot)
}

// validate returns the usable part of cfg and everything wrong with the rest.
func (c *Coordinator) validate(cfg *config.Config) (config.Snapshot, []error) {
	snapshot, problems := config.Validate(cfg.Snapshot, c.registry, cfg.General.Palette())
	return snapshot, append(append([]error(nil), cfg.Problems...), problems...)
}

// report logs problems not already logged. A problem that goes away and
// comes back is logged again.
func (c *Coordinator) report(problems []error) {
	current := make(map[string]bool, len(problems))
	for _, p := range problems {
		msg := errors.Brief(p)
		current[msg] = true
		if !c.reported[msg] {
			c.log.Warn("%s", describe(p))
		}
	}
	c.reported = current
}

// apply reconciles the task list with snapshot. New instances get a task at
// their position, existing ones keep their task and its last output, and
// instances no longer configured are dropped.
func (c *Coordinator) apply(general config.General, snapshot config.Snapshot) {
	c.general = general
	c.palette = general.Palette()

	existing := make(map[string]*Task, len(c.tasks))
	for _, t := range c.tasks {
		existing[t.Instance()] = t
	}

	tasks := make([]*Task, 0, snapshot.Len())
	for _, entry := range snapshot.Entries {
		kind, ok := c.registry.Lookup(entry.Kind)
		if !ok {
			// validate already dropped unknown kinds.
			continue
		}
		if t, ok := existing[entry.Instance]; ok {
			if t.Entry().Fingerprint() != entry.Fingerprint() {
				c.log.Debug("%s: configuration changed", entry.Instance)
			}
			t.Reconfigure(entry, kind, c.palette)
			tasks = append(tasks, t)
			delete(existing, entry.Instance)
			continue
		}
		c.log.Debug("%s: added (%s)", entry.Instance, entry.Kind)
		tasks = append(tasks, NewTask(entry, kind, c.palette, c.log))
	}
	for instance := range existing {
		c.log.Debug("%s: removed", instance)
	}
	c.tasks = tasks
}

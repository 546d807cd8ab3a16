package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/gridstamp/internal/config"
	"github.com/roach88/gridstamp/internal/engine"
	"github.com/roach88/gridstamp/internal/grid"
	"github.com/roach88/gridstamp/internal/registry"
	"github.com/roach88/gridstamp/internal/stamp"
	"github.com/roach88/gridstamp/internal/testutil"
)

// Harness executes one scenario against a fresh engine.
type Harness struct {
	engine *engine.Engine
	clock  *testutil.DeterministicClock
	tokens *testutil.TokenSequence
	logger *slog.Logger
	refs   map[string]registry.ID
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes engine and harness logs to l. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh engine with a deterministic clock and token
// sequence, so two runs of the same scenario produce identical results.
//
// Execution flow:
//  1. Build the world from the scenario's config (or the default world)
//  2. Execute steps, checking each against its expect_error
//  3. Snapshot every layer
//  4. Evaluate assertions
//
// A step that fails unexpectedly is recorded as a failure and execution
// continues, so one run reports every problem. Run only returns an error
// when the world itself cannot be built.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, err
	}

	prefix := scenario.TokenPrefix
	if prefix == "" {
		prefix = scenario.Name
	}
	h := &Harness{
		clock:  testutil.NewDeterministicClock(),
		tokens: testutil.NewTokenSequence(prefix),
		logger: o.logger,
		refs:   make(map[string]registry.ID),
	}
	h.engine, err = engine.NewFromConfig(cfg,
		engine.WithClock(h.clock),
		engine.WithTokenGenerator(h.tokens),
		engine.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build world: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(i, step, result)
	}

	result.Size = h.engine.Size()
	result.Entities = len(h.engine.Entities())
	for _, name := range h.engine.Layers() {
		values, err := h.engine.Snapshot(name)
		if err != nil {
			return nil, fmt.Errorf("snapshot layer %q: %w", name, err)
		}
		result.Layers = append(result.Layers, NamedLayer{Name: name, Values: values})
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func scenarioConfig(s *Scenario) (*config.Config, error) {
	switch {
	case s.World != nil:
		return s.World, nil
	case s.Config != "":
		cfg, err := config.Load(s.Config)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		return cfg, nil
	}
	return config.Default(), nil
}

// executeStep runs one step and appends its trace event.
func (h *Harness) executeStep(i int, step Step, result *Result) {
	ev := TraceEvent{Step: i}
	var err error
	before := h.tokens.Count()

	switch {
	case step.Place != nil:
		ev.Op = "place"
		var id registry.ID
		id, err = h.place(step.Place)
		h.bind(step.As, id, err)
	case step.Toggle != nil:
		ev.Op = "toggle"
		var res engine.ToggleResult
		res, err = h.engine.Toggle(step.Toggle.Kind, step.Toggle.At.Point())
		if err == nil && res.Action == engine.Placed {
			h.bind(step.As, res.ID, nil)
		}
	case step.Remove != nil:
		ev.Op = "remove"
		id, ok := h.refs[step.Remove.Ref]
		if !ok {
			err = grid.NewError(grid.ErrCodeNotFound, "ref %q was never placed", step.Remove.Ref)
		} else {
			err = h.engine.Remove(id)
		}
	case step.Set != nil:
		ev.Op = "set"
		index := h.setIndex(step.Set)
		err = h.engine.SetValue(step.Set.Layer, index, step.Set.Value)
	}

	// Steps rejected before reaching the engine leave no report.
	var report engine.Report
	if h.tokens.Count() != before {
		report = h.engine.LastReport()
	}
	ev.Token = report.Token
	ev.Dirty = report.Dirty
	if n := len(report.Ops); n > 0 {
		last := report.Ops[n-1]
		ev.Seq = last.Seq
		ev.Kind = last.Of
		ev.Cells = last.Cells
		if last.Entity != registry.None {
			ev.Entity = last.Entity.String()
			anchor := last.Anchor
			ev.Anchor = &anchor
		}
	}
	if err != nil {
		ev.Error = string(errorCode(err))
	}
	result.Trace = append(result.Trace, ev)

	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i, ev.Op, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, got success", i, ev.Op, step.ExpectError))
	case step.ExpectError != "" && ev.Error != step.ExpectError:
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %v", i, ev.Op, step.ExpectError, err))
	}

	h.logger.Debug("step completed",
		"step", i,
		"op", ev.Op,
		"token", ev.Token,
		"error", ev.Error,
	)
}

func (h *Harness) place(p *PlaceStep) (registry.ID, error) {
	var mode stamp.Mode
	if p.Mode != "" {
		m, err := stamp.ParseMode(p.Mode)
		if err != nil {
			return registry.None, err
		}
		mode = m
	}
	return h.engine.PlaceEntity(engine.PlaceRequest{
		Kind:   p.Kind,
		Anchor: p.At.Point(),
		Radius: p.Radius,
		Layer:  p.Layer,
		Curve:  p.Curve,
		Mode:   mode,
	})
}

func (h *Harness) bind(ref string, id registry.ID, err error) {
	if ref != "" && err == nil {
		h.refs[ref] = id
	}
}

func (h *Harness) setIndex(s *SetStep) int {
	if s.Index != nil {
		return *s.Index
	}
	p := s.At.Point()
	if !h.engine.Size().Contains(p) {
		return -1
	}
	return h.engine.Size().Index(p)
}

// errorCode returns the grid error code of err, or "ERROR" for errors
// outside the core's taxonomy.
func errorCode(err error) grid.ErrorCode {
	var ge *grid.Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return "ERROR"
}

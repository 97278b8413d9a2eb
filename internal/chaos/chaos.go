// Package chaos runs experiments against a live server: check a steady
// state, inject a disturbance, observe, roll back, and validate.
package chaos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Experiment defines a chaos experiment.
type Experiment struct {
	Name        string
	Hypothesis  string
	SteadyState []Probe
	Method      []Action
	// Observe is sampled once after the method has run.
	Observe    []Probe
	Rollback   []Action
	Validation []Assertion
}

// Probe defines a measurable system property.
type Probe struct {
	Name      string
	Query     func(context.Context) (float64, error)
	Threshold Threshold
}

type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

// Action is one step of the method or the rollback.
type Action struct {
	Type    string
	Target  string
	Execute func(context.Context) error
}

// Assertion validates an observed value.
type Assertion struct {
	Probe     string
	Condition func(float64) bool
	Message   string
}

// Result captures one run.
type Result struct {
	Experiment       string             `json:"experiment"`
	StartTime        time.Time          `json:"start_time"`
	EndTime          time.Time          `json:"end_time"`
	Duration         time.Duration      `json:"duration"`
	HypothesisHeld   bool               `json:"hypothesis_held"`
	SteadyStateValid bool               `json:"steady_state_valid"`
	Violations       []Violation        `json:"violations"`
	Observations     map[string]float64 `json:"observations"`
	Failed           []string           `json:"failed_assertions"`
	ErrorEvents      []ErrorEvent       `json:"error_events"`
}

type Violation struct {
	Probe    string  `json:"probe"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
}

type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Component string    `json:"component"`
}

// ErrSteadyState is returned when the system is unhealthy before the run.
var ErrSteadyState = errors.New("steady state invalid - aborting experiment")

// Engine orchestrates chaos experiments.
type Engine struct {
	tracer      trace.Tracer
	logger      *slog.Logger
	experiments map[string]Experiment
	mu          sync.Mutex
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		tracer:      otel.Tracer("libradesk/chaos"),
		logger:      logger,
		experiments: make(map[string]Experiment),
	}
}

// Register adds an experiment, replacing any with the same name.
func (e *Engine) Register(exp Experiment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.experiments[exp.Name] = exp
}

// Lookup returns the experiment registered under name.
func (e *Engine) Lookup(name string) (Experiment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	exp, ok := e.experiments[name]
	return exp, ok
}

// Run executes a single experiment.
func (e *Engine) Run(ctx context.Context, exp Experiment) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.run_experiment",
		trace.WithAttributes(attribute.String("experiment.name", exp.Name)),
	)
	defer span.End()

	result := &Result{
		Experiment:   exp.Name,
		StartTime:    time.Now(),
		Observations: make(map[string]float64),
	}

	span.AddEvent("validating_steady_state")
	if violations := e.checkSteadyState(ctx, exp.SteadyState, result); len(violations) > 0 {
		result.Violations = violations
		return result, ErrSteadyState
	}
	result.SteadyStateValid = true

	span.AddEvent("injecting_chaos")
	e.execute(ctx, exp.Method, result)

	span.AddEvent("observing_system")
	for _, p := range exp.Observe {
		value, err := p.Query(ctx)
		if err != nil {
			result.addError(p.Name, err)
			continue
		}
		result.Observations[p.Name] = value
	}

	span.AddEvent("rolling_back")
	e.execute(ctx, exp.Rollback, result)

	span.AddEvent("validating_assertions")
	result.HypothesisHeld = validate(exp.Validation, result)
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	span.SetAttributes(
		attribute.Bool("hypothesis_held", result.HypothesisHeld),
		attribute.Int("failed_assertions", len(result.Failed)),
	)
	e.logger.InfoContext(ctx, "chaos experiment finished",
		slog.String("experiment", exp.Name),
		slog.Bool("hypothesis_held", result.HypothesisHeld),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func (e *Engine) checkSteadyState(ctx context.Context, probes []Probe, result *Result) []Violation {
	var violations []Violation
	for _, p := range probes {
		value, err := p.Query(ctx)
		if err != nil {
			result.addError(p.Name, err)
			violations = append(violations, Violation{Probe: p.Name, Expected: p.Threshold.Value, Actual: -1})
			continue
		}
		result.Observations[p.Name] = value
		if !p.Threshold.holds(value) {
			violations = append(violations, Violation{Probe: p.Name, Expected: p.Threshold.Value, Actual: value})
		}
	}
	return violations
}

func (e *Engine) execute(ctx context.Context, actions []Action, result *Result) {
	for _, a := range actions {
		if err := a.Execute(ctx); err != nil {
			e.logger.WarnContext(ctx, "chaos action failed",
				slog.String("type", a.Type),
				slog.String("target", a.Target),
				slog.String("error", err.Error()),
			)
			result.addError(a.Target, err)
		}
	}
}

func validate(assertions []Assertion, result *Result) bool {
	held := true
	for _, a := range assertions {
		value, ok := result.Observations[a.Probe]
		if !ok || !a.Condition(value) {
			result.Failed = append(result.Failed, a.Message)
			held = false
		}
	}
	return held && len(result.ErrorEvents) == 0
}

func (r *Result) addError(component string, err error) {
	r.ErrorEvents = append(r.ErrorEvents, ErrorEvent{
		Timestamp: time.Now(),
		Error:     err.Error(),
		Component: component,
	})
}

func (t Threshold) holds(value float64) bool {
	switch t.Operator {
	case ">":
		return value > t.Value
	case "<":
		return value < t.Value
	case ">=":
		return value >= t.Value
	case "<=":
		return value <= t.Value
	case "==":
		return value == t.Value
	default:
		return false
	}
}

// Print writes a human-readable summary of result.
func Print(w io.Writer, result *Result) {
	if result.HypothesisHeld {
		fmt.Fprintf(w, "Hypothesis held: %s\n", result.Experiment)
	} else {
		fmt.Fprintf(w, "Hypothesis violated: %s\n", result.Experiment)
	}
	for _, v := range result.Violations {
		fmt.Fprintf(w, "  steady state %s: expected %.2f, got %.2f\n", v.Probe, v.Expected, v.Actual)
	}
	for _, msg := range result.Failed {
		fmt.Fprintf(w, "  failed: %s\n", msg)
	}
	for _, ev := range result.ErrorEvents {
		fmt.Fprintf(w, "  error in %s: %s\n", ev.Component, ev.Error)
	}
	fmt.Fprintf(w, "  duration: %s\n", result.Duration)
}

package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/bizscout/internal/browser"
	"github.com/nao1215/bizscout/internal/log"
)

// Step is one setup interaction.
type Step interface {
	// Do performs the interaction on the session's current page.
	Do(ctx context.Context, b browser.Browser) error

	// Name returns the step's name for logging.
	Name() string
}

// StepError records a failed step.
type StepError struct {
	Step string
	Err  error
}

// Error implements error.
func (e StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

// Unwrap returns the step's error.
func (e StepError) Unwrap() error {
	return e.Err
}

// Report lists what happened during Execute.
type Report struct {
	// Performed holds the names of the steps that ran, failed or not.
	Performed []string

	// Failures holds the failed steps in execution order.
	Failures []StepError
}

// OK reports whether every step succeeded.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Pipeline runs steps in order.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running the remaining steps after a failure.
// The default stops at the first failing step.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:  make([]Step, 0),
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps against b. Cancellation is checked between steps.
//
// The returned error is ctx.Err() on cancellation, or the failing step's
// error when continue-on-error is off. The report is always returned.
func (p *Pipeline) Execute(ctx context.Context, b browser.Browser) (*Report, error) {
	report := &Report{}

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("setup cancelled", "step", step.Name(), "reason", err)
			return report, err
		}

		p.logger.Debug("executing step", "step", step.Name())
		report.Performed = append(report.Performed, step.Name())

		if err := step.Do(ctx, b); err != nil {
			p.logger.Warn("setup step failed", "step", step.Name(), "error", err)
			report.Failures = append(report.Failures, StepError{Step: step.Name(), Err: err})
			if !p.continueOnError {
				return report, report.Failures[len(report.Failures)-1]
			}
			continue
		}
		p.logger.Debug("step completed", "step", step.Name())
	}

	return report, nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

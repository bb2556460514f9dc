package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nao1215/bizscout/internal/browser"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, b browser.Browser) error
	callCount int
}

func (m *mockStep) Do(ctx context.Context, b browser.Browser) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, b)
	}
	return nil
}

func (m *mockStep) Name() string {
	return m.name
}

var errStep = errors.New("step broke")

func failing(name string) *mockStep {
	return &mockStep{name: name, doFunc: func(context.Context, browser.Browser) error { return errStep }}
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.continueOnError {
			t.Error("expected stop-on-error by default")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		if !New(WithContinueOnError(true)).continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "a"})
	p.AddSteps(&mockStep{name: "b"}, &mockStep{name: "c"})

	if p.StepCount() != 3 {
		t.Errorf("expected 3 steps, got %d", p.StepCount())
	}
	if got := p.StepNames(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("unexpected step order %v", got)
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, browser.Browser) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New()
		p.AddSteps(record("first"), record("second"))

		report, err := p.Execute(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !report.OK() {
			t.Errorf("expected no failures, got %v", report.Failures)
		}
		if !reflect.DeepEqual(order, []string{"first", "second"}) {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("stops on error by default", func(t *testing.T) {
		t.Parallel()

		after := &mockStep{name: "after"}
		p := New()
		p.AddSteps(failing("broken"), after)

		report, err := p.Execute(context.Background(), nil)
		if !errors.Is(err, errStep) {
			t.Fatalf("expected step error, got %v", err)
		}
		var stepErr StepError
		if !errors.As(err, &stepErr) || stepErr.Step != "broken" {
			t.Errorf("expected StepError for broken, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("step after failure must not run")
		}
		if len(report.Performed) != 1 {
			t.Errorf("expected 1 performed step, got %v", report.Performed)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		after := &mockStep{name: "after"}
		p := New(WithContinueOnError(true))
		p.AddSteps(failing("broken"), after)

		report, err := p.Execute(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if after.callCount != 1 {
			t.Error("step after failure must run")
		}
		if report.OK() || len(report.Failures) != 1 || report.Failures[0].Step != "broken" {
			t.Errorf("unexpected failures %+v", report.Failures)
		}
		if !reflect.DeepEqual(report.Performed, []string{"broken", "after"}) {
			t.Errorf("unexpected performed steps %v", report.Performed)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New(WithContinueOnError(true))
		p.AddStep(step)

		if _, err := p.Execute(ctx, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("no step should run after cancellation")
		}
	})
}

package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnSetupStart(ctx, "sine.go")
	p.OnSetupComplete(ctx, "sine.go", 4.79, 2.4, nil)
	p.OnRenderStart(ctx, "sine.pgf")
	p.OnRenderComplete(ctx, "sine.pgf", time.Second, nil)
	p.OnPostProcessStart(ctx, "sine.pgf", "sine.figpgf")
	p.OnPostProcessComplete(ctx, "sine.figpgf", time.Second, nil)

	tr := NoopTrackerHooks{}
	tr.OnOpen(ctx, "scatter.csv", false)
	tr.OnRecord(ctx, "r", "scatter.csv")
	tr.OnReport(ctx, 2)
}

type countingPipeline struct {
	NoopPipelineHooks
	setups int
}

func (c *countingPipeline) OnSetupStart(context.Context, string) { c.setups++ }

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Tracker().(NoopTrackerHooks); !ok {
		t.Error("Tracker() should return NoopTrackerHooks by default")
	}

	custom := &countingPipeline{}
	SetPipelineHooks(custom)
	Pipeline().OnSetupStart(context.Background(), "noise.go")
	if custom.setups != 1 {
		t.Errorf("custom hook called %d times, want 1", custom.setups)
	}

	// nil registration is ignored.
	SetPipelineHooks(nil)
	if Pipeline() != PipelineHooks(custom) {
		t.Error("nil registration should not replace hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore noop hooks")
	}
}

// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers can register
// hooks at startup to receive events about figure pipeline execution and
// tracked file accesses.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnPostProcessStart(ctx, in, out)
//	// ... rewrite the figure ...
//	observability.Pipeline().OnPostProcessComplete(ctx, out, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the figure build pipeline.
type PipelineHooks interface {
	// Setup events
	OnSetupStart(ctx context.Context, script string)
	OnSetupComplete(ctx context.Context, script string, width, height float64, err error)

	// Render events
	OnRenderStart(ctx context.Context, path string)
	OnRenderComplete(ctx context.Context, path string, duration time.Duration, err error)

	// Post-processing events
	OnPostProcessStart(ctx context.Context, in, out string)
	OnPostProcessComplete(ctx context.Context, out string, duration time.Duration, err error)
}

// TrackerHooks receives events from the file access tracker.
type TrackerHooks interface {
	// OnOpen records an intercepted file open.
	OnOpen(ctx context.Context, path string, write bool)

	// OnRecord records a path accepted into the tracked set.
	OnRecord(ctx context.Context, role, path string)

	// OnReport records emission of the dependency report.
	OnReport(ctx context.Context, entries int)
}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnSetupStart(context.Context, string)                                {}
func (NoopPipelineHooks) OnSetupComplete(context.Context, string, float64, float64, error)    {}
func (NoopPipelineHooks) OnRenderStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, string, time.Duration, error)      {}
func (NoopPipelineHooks) OnPostProcessStart(context.Context, string, string)                  {}
func (NoopPipelineHooks) OnPostProcessComplete(context.Context, string, time.Duration, error) {}

// NoopTrackerHooks is a no-op implementation of TrackerHooks.
type NoopTrackerHooks struct{}

func (NoopTrackerHooks) OnOpen(context.Context, string, bool)     {}
func (NoopTrackerHooks) OnRecord(context.Context, string, string) {}
func (NoopTrackerHooks) OnReport(context.Context, int)            {}

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	trackerHooks  TrackerHooks  = NoopTrackerHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetTrackerHooks registers custom tracker hooks.
// This should be called once at application startup before the tracker is installed.
func SetTrackerHooks(h TrackerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		trackerHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Tracker returns the registered tracker hooks.
func Tracker() TrackerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return trackerHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	trackerHooks = NoopTrackerHooks{}
}

// Package observability provides hooks for metrics and logging.
//
// Libraries emit events through small hook interfaces; the binary decides
// where they go. The defaults are no-ops, so packages stay usable without
// any backend. [Collector] is the Prometheus implementation used by the
// serve command.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    c := observability.NewCollector("clustermap")
//	    observability.SetMapHooks(c)
//	    observability.SetStoreHooks(c)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	g := layout.Compute(in)
//	observability.Map().OnLayout(ctx, len(g.Boxes), g.RowCount(), g.Diagnostics.Dropped(), time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Map Hooks
// =============================================================================

// MapHooks receives events from a map session.
type MapHooks interface {
	// OnLayout records one full layout pass.
	OnLayout(ctx context.Context, boxes, rows, dropped int, duration time.Duration)

	// OnSearch records one executed query.
	OnSearch(ctx context.Context, results int, duration time.Duration)

	// OnTeleport records a teleport attempt; ok is false for no-ops.
	OnTeleport(ctx context.Context, ok bool)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from state persistence.
type StoreHooks interface {
	// OnStoreRead records a read; hit is false for a missing key.
	OnStoreRead(ctx context.Context, backend string, hit bool, err error)

	// OnStoreWrite records a write of size bytes.
	OnStoreWrite(ctx context.Context, backend string, size int, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	// OnRequest records a served request.
	OnRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopMapHooks is a no-op implementation of MapHooks.
type NoopMapHooks struct{}

func (NoopMapHooks) OnLayout(context.Context, int, int, int, time.Duration) {}
func (NoopMapHooks) OnSearch(context.Context, int, time.Duration)          {}
func (NoopMapHooks) OnTeleport(context.Context, bool)                      {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreRead(context.Context, string, bool, error) {}
func (NoopStoreHooks) OnStoreWrite(context.Context, string, int, error) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	mapHooks   MapHooks   = NoopMapHooks{}
	storeHooks StoreHooks = NoopStoreHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetMapHooks registers custom map hooks.
// This should be called once at application startup before any session opens.
func SetMapHooks(h MapHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		mapHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Map returns the registered map hooks.
func Map() MapHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return mapHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	mapHooks = NoopMapHooks{}
	storeHooks = NoopStoreHooks{}
	httpHooks = NoopHTTPHooks{}
}

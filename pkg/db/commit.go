package db

import (
	"context"
	"sync"
)

type commitHooksKey struct{}

type commitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// DeferUntilCommit returns a context that collects OnCommit callbacks and a
// flush func that runs them. Call flush only after the outermost transaction
// committed. Nested calls share the outer collector and get a no-op flush.
func DeferUntilCommit(ctx context.Context) (context.Context, func()) {
	if _, ok := ctx.Value(commitHooksKey{}).(*commitHooks); ok {
		return ctx, func() {}
	}
	hooks := &commitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, hooks), hooks.run
}

// OnCommit queues fn on the collector carried by ctx. Without a collector fn
// runs immediately.
func OnCommit(ctx context.Context, fn func()) {
	hooks, ok := ctx.Value(commitHooksKey{}).(*commitHooks)
	if !ok {
		fn()
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}

func (h *commitHooks) run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

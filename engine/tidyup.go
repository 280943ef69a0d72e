package engine

import "context"

// Tidyup closes every open handle, calls every registered backend's Tidy
// function once (even backends that were never opened this round), and
// releases the arena back to the mark Open captured on first use.
//
// Call this at natural request boundaries (per message, per connection).
// Between Tidyup calls the open-handle map and the arena both grow
// monotonically; nothing here is safe to call concurrently with Open or
// Find on the same Engine.
func (e *Engine) Tidyup(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "Engine.Tidyup")
	defer span.End()

	for _, n := range e.nodes {
		if n.conn != nil {
			e.closeNodeQuiet(n)
		}
	}

	e.nodes = make(map[string]*node)
	e.top, e.bot = nil, nil
	e.openFileCount = 0
	e.metrics.openFiles.Set(0)

	e.reg.Tidy(ctx)

	if e.marked {
		e.ar.Reset(e.mark)
		e.marked = false
	}
}

// closeNodeQuiet closes a node's backend connection during Tidyup, where
// the node is about to be dropped from the map entirely: no LRU
// bookkeeping or eviction metric applies, since this isn't an eviction.
func (e *Engine) closeNodeQuiet(n *node) {
	d := e.reg.Descriptor(n.backendIndex)
	if d != nil {
		d.SafeClose(n.conn)
	}
	n.conn = nil
}

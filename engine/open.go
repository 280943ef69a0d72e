package engine

import (
	"context"
	"fmt"

	lookupcore "github.com/TomNewChao/exim-lookup"
	"github.com/TomNewChao/exim-lookup/internal/ctxlog"
)

// Open resolves (backendIndex, filename) to a Handle, opening the backing
// file or connection if it isn't already open, reopening it if it was
// force-closed by LRU eviction, and evicting the least-recently-used
// ABSFILE-kind handle first if the open-file budget is exhausted.
//
// filename must be untainted for any backend kind: a tainted filename
// fails the call outright, mirroring the source's unconditional check
// regardless of backend kind.
func (e *Engine) Open(ctx context.Context, filename lookupcore.Tainted, backendIndex int, modeMask uint32, owners, groups []int) (Handle, error) {
	ctx, span := tracer.Start(ctx, "Engine.Open")
	defer span.End()

	if filename.IsTainted() {
		err := &lookupcore.Error{Kind: lookupcore.ErrSafety, Op: "Open", Message: "tainted filename"}
		e.lastError = err.Error()
		e.logger.ErrorContext(ctx, "refusing to open tainted filename", "filename_len", len(filename.String()))
		return Handle{}, err
	}
	fname := filename.String()

	d := e.reg.Descriptor(backendIndex)
	if d == nil {
		err := &lookupcore.Error{Kind: lookupcore.ErrType, Op: "Open", Message: "invalid backend index"}
		e.lastError = err.Error()
		return Handle{}, err
	}

	if !e.marked {
		e.mark = e.ar.Mark()
		e.marked = true
	}

	key := compositeKey(backendIndex, fname)
	ctx = ctxlog.With(ctx, d.Name, fname)

	n, existing := e.nodes[key]
	if existing && n.conn != nil {
		return Handle{key: key}, nil
	}

	if d.Kind.CountsAgainstOpenFiles() && e.openFileCount >= e.maxOpenFiles {
		if victim := e.evictTail(); victim != nil {
			e.closeNode(ctx, victim)
		} else {
			e.logger.ErrorContext(ctx, "too many lookups open, but can't find one to close")
		}
	}

	conn, err := d.Open(ctx, fname)
	if err != nil {
		werr := &lookupcore.Error{Kind: lookupcore.ErrBackendOpen, Op: "Open", Message: fmt.Sprintf("%s: open failed", d.Name), Inner: err}
		e.lastError = werr.Error()
		e.logger.ErrorContext(ctx, "backend open failed", "error", err)
		return Handle{}, werr
	}

	if d.Check != nil {
		if err := d.Check(ctx, conn, fname, modeMask, owners, groups); err != nil {
			d.SafeClose(conn)
			werr := &lookupcore.Error{Kind: lookupcore.ErrBackendOpen, Op: "Open", Message: fmt.Sprintf("%s: check failed", d.Name), Inner: err}
			e.lastError = werr.Error()
			e.logger.ErrorContext(ctx, "backend check failed", "error", err)
			return Handle{}, werr
		}
	}

	if d.Kind.CountsAgainstOpenFiles() {
		e.openFileCount++
		e.metrics.openFiles.Set(float64(e.openFileCount))
	}

	if !existing {
		n = &node{key: key, results: make(map[string]cacheEntry)}
		e.nodes[key] = n
	}
	n.backendIndex = backendIndex
	n.filename = fname
	n.conn = conn

	return Handle{key: key}, nil
}

// closeNode force-closes a node's backend connection without removing it
// from the node map, leaving its result cache intact for a future reopen.
func (e *Engine) closeNode(ctx context.Context, n *node) {
	d := e.reg.Descriptor(n.backendIndex)
	if d != nil {
		d.SafeClose(n.conn)
	}
	n.conn = nil
	e.openFileCount--
	e.metrics.openFiles.Set(float64(e.openFileCount))
	e.metrics.evictions.Inc()
}

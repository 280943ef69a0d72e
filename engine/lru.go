package engine

// The LRU chain is a doubly linked list of *node threaded through each
// node's prev/next fields, with top the most-recently-used end and bot
// the least-recently-used end. Only ABSFILE-kind nodes with a non-nil
// conn ever appear on it: pure QUERY backends don't count against the
// open-file budget, and a force-closed node is unlinked before its conn
// is cleared.

// unlink removes n from wherever it sits in the chain. It is a no-op for
// a node that isn't on the chain (prev == nil, next == nil, and n != top).
func (e *Engine) unlink(n *node) {
	if n.prev == nil && n.next == nil && e.top != n {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		e.top = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		e.bot = n.prev
	}
	n.prev, n.next = nil, nil
}

// pushTop unlinks n if needed and makes it the new top (most recently
// used) entry.
func (e *Engine) pushTop(n *node) {
	e.unlink(n)
	n.next = e.top
	if e.top != nil {
		e.top.prev = n
	}
	e.top = n
	if e.bot == nil {
		e.bot = n
	}
}

// evictTail detaches and returns the current bot (least recently used)
// entry, or nil if the chain is empty.
func (e *Engine) evictTail() *node {
	n := e.bot
	if n == nil {
		return nil
	}
	e.unlink(n)
	return n
}

// promote puts n at the top of the chain if it isn't already there,
// including the case of a newly opened node that has never been linked.
func (e *Engine) promote(n *node) {
	if e.top == n {
		return
	}
	e.pushTop(n)
}

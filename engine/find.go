package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	lookupcore "github.com/TomNewChao/exim-lookup"
	"github.com/TomNewChao/exim-lookup/backend"
	"github.com/TomNewChao/exim-lookup/internal/ctxlog"
)

// Find is the dispatch engine's central entry point: it looks key up on
// the handle h, trying the backend's own partial/wildcard fallback chain
// described by pt when the verbatim key misses.
//
// filename is not a parameter here, unlike the specification's find: h
// already carries the filename Open resolved it with, and passing it
// again would let a caller desync the two. quotedForBackend tells the
// quoting-safety check that the caller already ran the backend's Quote
// function over key itself; leave it false to let the check evaluate key
// as given.
//
// Find clears LastError and Deferred on entry. An empty return with a nil
// error means "definitely not found, not deferred": callers should check
// Deferred to tell a genuine miss from a deferred one. A backend defer
// returns an error of kind lookupcore.ErrDefer; a tainted key rejected
// under DeferOnTaint also sets Deferred but returns kind
// lookupcore.ErrSafety.
func (e *Engine) Find(ctx context.Context, h Handle, key lookupcore.Tainted, pt backend.ParsedType, expand *ExpandSetup, rawOpts string, quotedForBackend bool) (string, error) {
	ctx, span := tracer.Start(ctx, "Engine.Find")
	defer span.End()

	e.lastError = ""
	e.deferred = false

	n, ok := e.nodes[h.key]
	if !ok || n.conn == nil {
		err := &lookupcore.Error{Kind: lookupcore.ErrBackendFind, Op: "Find", Message: "handle is not open; call Open again"}
		e.lastError = err.Error()
		return "", err
	}

	d := e.reg.Descriptor(n.backendIndex)
	if !d.Available() {
		err := &lookupcore.Error{Kind: lookupcore.ErrType, Op: "Find", Message: "backend not available"}
		e.lastError = err.Error()
		return "", err
	}

	ctx = ctxlog.With(ctx, d.Name, n.filename)

	retKey, cacheNoRd, forwardOpts := parseCoreOpts(rawOpts)

	if d.Kind.CountsAgainstOpenFiles() {
		e.promote(n)
	}

	if d.Kind == backend.QUERY && d.Quote != nil && key.IsTainted() && !quotedForBackend {
		e.logger.WarnContext(ctx, "tainted key passed unquoted to query backend", "backend", d.Name)
		if e.deferOnTaint {
			e.deferred = true
			err := &lookupcore.Error{Kind: lookupcore.ErrSafety, Op: "Find", Message: "tainted key rejected before quoting"}
			e.lastError = err.Error()
			return "", err
		}
	}

	K := key.String()
	cacheRd := !cacheNoRd

	data, status, err := e.probeOnce(ctx, n, K, cacheRd, forwardOpts)
	if err != nil {
		return "", err
	}

	var matched, viaWild bool
	var wild, fixed string

	switch status {
	case backend.Defer:
		e.deferred = true
		err := &lookupcore.Error{Kind: lookupcore.ErrDefer, Op: "Find", Message: "backend deferred"}
		e.lastError = err.Error()
		return "", err
	case backend.OK:
		matched = true
	case backend.FAIL:
		if pt.PartialMin >= 0 || pt.StarFlags != 0 {
			fbData, fbMatched, fbViaWild, fbWild, fbFixed, fbStatus, fbErr := e.fallbackProbe(ctx, n, K, pt, cacheRd, forwardOpts)
			if fbErr != nil {
				return "", fbErr
			}
			if fbStatus == backend.Defer {
				e.deferred = true
				err := &lookupcore.Error{Kind: lookupcore.ErrDefer, Op: "Find", Message: "backend deferred during fallback probing"}
				e.lastError = err.Error()
				return "", err
			}
			matched, viaWild, wild, fixed, data = fbMatched, fbViaWild, fbWild, fbFixed, fbData
		}
	}

	if !matched {
		return "", nil
	}

	if viaWild {
		expand.push(wild, fixed)
	} else if pt.PartialMin >= 0 {
		expand.push("", K)
	}

	if retKey {
		return K, nil
	}
	return data, nil
}

// probeOnce is the internal find primitive every probe in the fallback
// chain shares: check the result cache, and on a miss (or when reads are
// disabled), call the backend and update the cache per its answer.
func (e *Engine) probeOnce(ctx context.Context, n *node, key string, cacheReadAllowed bool, opts string) (string, backend.Result, error) {
	now := time.Now()
	if data, ok := n.lookup(key, opts, cacheReadAllowed, now); ok {
		e.metrics.hits.Inc()
		return data, backend.OK, nil
	}
	e.metrics.misses.Inc()

	d := e.reg.Descriptor(n.backendIndex)
	res, err := d.Find(ctx, n.conn, n.filename, key, opts)
	if err != nil {
		werr := &lookupcore.Error{Kind: lookupcore.ErrBackendFind, Op: "Find", Message: fmt.Sprintf("%s: find failed", d.Name), Inner: err}
		e.lastError = werr.Error()
		e.logger.ErrorContext(ctx, "backend find failed", "error", err)
		return "", backend.FAIL, werr
	}

	switch res.Status {
	case backend.OK:
		switch {
		case res.TTL == backend.CacheForever:
			n.store(key, res.Data, opts, 0, true, now)
		case res.TTL == 0:
			n.clear()
		default:
			n.store(key, res.Data, opts, res.TTL, false, now)
		}
		return res.Data, backend.OK, nil
	case backend.Defer:
		return "", backend.Defer, nil
	default:
		return "", backend.FAIL, nil
	}
}

// fallbackProbe runs the partial/wildcard fallback chain: an affix-only
// probe and successive leading-component stripping (both only when
// pt.PartialMin >= 0), then the "*@" and "*" probes per pt.StarFlags,
// stopping at the first hit or the first defer.
func (e *Engine) fallbackProbe(ctx context.Context, n *node, K string, pt backend.ParsedType, cacheRd bool, opts string) (data string, matched, viaWild bool, wild, fixed string, status backend.Result, err error) {
	affix := pt.Affix
	affixLen := len(affix)

	if pt.PartialMin >= 0 && affixLen > 0 {
		d, st, er := e.probeOnce(ctx, n, affix+K, cacheRd, opts)
		if er != nil {
			return "", false, false, "", "", backend.FAIL, er
		}
		if st == backend.Defer {
			return "", false, false, "", "", backend.Defer, nil
		}
		if st == backend.OK {
			return d, true, false, "", "", backend.OK, nil
		}
	}

	dotCount := strings.Count(K, ".")
	R := K
stepTwo:
	for pt.PartialMin >= 0 && dotCount >= pt.PartialMin {
		// Advance past the current leading component. Finding no further
		// "." is the same end-of-string condition as stripping straight
		// down to an empty remainder: both mean there is nothing left to
		// chop, and search.c (~lines 838-851) handles them identically
		// with the terminal bare-affix probe below.
		if idx := strings.IndexByte(R, '.'); idx >= 0 {
			R = R[idx+1:]
		} else {
			R = ""
		}
		wildPrefix := K[:len(K)-len(R)-1]

		if R == "" {
			if affixLen < 1 {
				break stepTwo
			}
			probeKey := affix
			if affixLen > 1 && strings.HasSuffix(affix, ".") {
				probeKey = affix[:affixLen-1]
			}
			d, st, er := e.probeOnce(ctx, n, probeKey, cacheRd, opts)
			if er != nil {
				return "", false, false, "", "", backend.FAIL, er
			}
			if st == backend.Defer {
				return "", false, false, "", "", backend.Defer, nil
			}
			if st == backend.OK {
				return d, true, true, wildPrefix, "", backend.OK, nil
			}
			break stepTwo
		}

		d, st, er := e.probeOnce(ctx, n, affix+R, cacheRd, opts)
		if er != nil {
			return "", false, false, "", "", backend.FAIL, er
		}
		if st == backend.Defer {
			return "", false, false, "", "", backend.Defer, nil
		}
		if st == backend.OK {
			return d, true, true, wildPrefix, R, backend.OK, nil
		}
		dotCount--
	}

	if pt.StarFlags&backend.SearchStarAt != 0 {
		if p := strings.LastIndexByte(K, '@'); p > 0 {
			// The character immediately before '@' is dropped and
			// replaced by a literal '*'; the probe string is just that
			// '*' plus everything from '@' onward, not the untouched
			// prefix before it.
			probeKey := "*" + K[p:]
			d, st, er := e.probeOnce(ctx, n, probeKey, cacheRd, opts)
			if er != nil {
				return "", false, false, "", "", backend.FAIL, er
			}
			if st == backend.Defer {
				return "", false, false, "", "", backend.Defer, nil
			}
			if st == backend.OK {
				return d, true, true, K[:p+1], "", backend.OK, nil
			}
		}
	}

	if pt.StarFlags&(backend.SearchStar|backend.SearchStarAt) != 0 {
		d, st, er := e.probeOnce(ctx, n, "*", cacheRd, opts)
		if er != nil {
			return "", false, false, "", "", backend.FAIL, er
		}
		if st == backend.Defer {
			return "", false, false, "", "", backend.Defer, nil
		}
		if st == backend.OK {
			return d, true, true, K, "", backend.OK, nil
		}
	}

	return "", false, false, "", "", backend.FAIL, nil
}

// parseCoreOpts splits the core-level options (ret=key, cache=no_rd) out
// of a raw comma-separated option string, returning what remains to
// forward to the backend.
func parseCoreOpts(raw string) (retKey, cacheNoRd bool, forwarded string) {
	if raw == "" {
		return
	}
	kept := make([]string, 0, strings.Count(raw, ",")+1)
	for _, tok := range strings.Split(raw, ",") {
		switch tok {
		case "ret=key":
			retKey = true
		case "cache=no_rd":
			cacheNoRd = true
		default:
			kept = append(kept, tok)
		}
	}
	forwarded = strings.Join(kept, ",")
	return
}

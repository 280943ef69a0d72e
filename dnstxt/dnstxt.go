// Package dnstxt implements a QUERY backend that resolves a key as a DNS
// TXT record, the network-directory idiom Exim's dnsdb lookup covers for
// "txt" record types. Outbound resolution is throttled with
// golang.org/x/time/rate, the teacher's only rate-limiter dependency
// (rhel/rhcc.updatingMapper, rhel/internal/common.Updater), repurposed
// here to cap outbound queries per handle instead of per mapping-file
// refresh.
package dnstxt

import (
	"context"
	"net"
	"strings"

	"golang.org/x/time/rate"

	lookupcore "github.com/TomNewChao/exim-lookup"
	"github.com/TomNewChao/exim-lookup/backend"
)

// defaultQPS bounds outbound TXT queries per handle. Every handle uses
// this rate (and a burst of the same size); it is not configurable.
const defaultQPS = 20

type conn struct {
	resolver *net.Resolver
	limiter  *rate.Limiter
}

// Descriptor returns the registration record for this backend.
func Descriptor() backend.Descriptor {
	return backend.Descriptor{
		Name: "dnstxt",
		Kind: backend.QUERY,
		Open: open,
		Find: find,
	}
}

// open ignores filename (QUERY backends have none to give); dnstxt needs
// no persistent connection beyond a stdlib resolver and its limiter, so
// every handle gets its own independent budget.
func open(_ context.Context, _ string) (any, error) {
	return &conn{
		resolver: net.DefaultResolver,
		limiter:  rate.NewLimiter(rate.Limit(defaultQPS), defaultQPS),
	}, nil
}

func find(ctx context.Context, c any, _, key, _ string) (backend.FindResult, error) {
	cn := c.(*conn)

	if err := cn.limiter.Wait(ctx); err != nil {
		return backend.FindResult{}, &lookupcore.Error{Kind: lookupcore.ErrBackendFind, Op: "dnstxt.Find", Message: "rate limiter wait canceled", Inner: err}
	}

	records, err := cn.resolver.LookupTXT(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return backend.FindResult{Status: backend.FAIL}, nil
		}
		if isTemporary(err) {
			return backend.FindResult{Status: backend.Defer}, nil
		}
		return backend.FindResult{}, &lookupcore.Error{Kind: lookupcore.ErrBackendFind, Op: "dnstxt.Find", Message: "TXT lookup failed", Inner: err}
	}
	if len(records) == 0 {
		return backend.FindResult{Status: backend.FAIL}, nil
	}

	// Exim's dnsdb joins multiple TXT records (and a TXT record's own
	// multiple strings, already concatenated by the resolver) with a
	// newline.
	return backend.FindResult{Status: backend.OK, Data: strings.Join(records, "\n"), TTL: 300}, nil
}

func isNotFound(err error) bool {
	e, ok := err.(*net.DNSError)
	return ok && e.IsNotFound
}

func isTemporary(err error) bool {
	e, ok := err.(*net.DNSError)
	return ok && e.IsTemporary
}

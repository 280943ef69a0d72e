package dnstxt

import (
	"context"
	"net"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/TomNewChao/exim-lookup/backend"
)

func TestIsNotFoundClassifiesNXDOMAIN(t *testing.T) {
	err := &net.DNSError{Err: "no such host", IsNotFound: true}
	if !isNotFound(err) {
		t.Fatal("isNotFound: want true for a NXDOMAIN-shaped DNSError")
	}
	if isNotFound(context.DeadlineExceeded) {
		t.Fatal("isNotFound: want false for a non-DNSError")
	}
}

func TestIsTemporaryClassifiesServfail(t *testing.T) {
	err := &net.DNSError{Err: "server misbehaving", IsTemporary: true}
	if !isTemporary(err) {
		t.Fatal("isTemporary: want true for a SERVFAIL-shaped DNSError")
	}
}

func TestFindRateLimiterCancellation(t *testing.T) {
	cn := &conn{
		resolver: net.DefaultResolver,
		limiter:  rate.NewLimiter(0, 0), // burst 0: Wait fails at once for any request
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	res, err := find(ctx, cn, "", "example.com", "")
	if err == nil {
		t.Fatalf("find: expected an error when the rate limiter cannot admit the request, got %+v", res)
	}
}

func TestDescriptorShape(t *testing.T) {
	d := Descriptor()
	if d.Kind != backend.QUERY {
		t.Fatalf("Kind = %v, want QUERY", d.Kind)
	}
	if !d.Available() {
		t.Fatal("descriptor should be Available (Find is set)")
	}
	if d.Quote != nil {
		t.Fatal("dnstxt has no query syntax to quote into; Quote should be nil")
	}
}

func TestOpenReturnsIndependentLimiterPerHandle(t *testing.T) {
	a, err := open(context.Background(), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b, err := open(context.Background(), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if a.(*conn).limiter == b.(*conn).limiter {
		t.Fatal("open: two handles should not share a rate limiter")
	}
}

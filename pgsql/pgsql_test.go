package pgsql

import (
	"context"
	"testing"

	"github.com/TomNewChao/exim-lookup/backend"
)

func TestQuoteDoublesEmbeddedQuotes(t *testing.T) {
	got := quote("O'Brien")
	want := "'O''Brien'"
	if got != want {
		t.Fatalf("quote(%q) = %q, want %q", "O'Brien", got, want)
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
	if d.Quote == nil {
		t.Fatal("Quote should be set: an unquoted tainted key must be rejectable")
	}
}

// TestOpenRejectsMalformedConnString exercises the one pgsql.Open path
// that needs no live server: pgxpool.ParseConfig failing on garbage
// input.
func TestOpenRejectsMalformedConnString(t *testing.T) {
	if _, err := open(context.Background(), "not a valid connstring \x00"); err == nil {
		t.Fatal("Open: expected an error for a malformed connection string")
	}
}

package backend

import (
	"context"
	"testing"
)

func okFind(ctx context.Context, conn any, filename, key, opts string) (FindResult, error) {
	return FindResult{Status: OK, Data: key}, nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.Register(Descriptor{Name: "dbm", Kind: ABSFILE, Find: okFind})
	r.Register(Descriptor{Name: "nis", Kind: QUERY, Find: okFind})
	r.Register(Descriptor{Name: "nisplus", Kind: QUERY, Find: okFind})
	return r
}

// Testable property 1: a registered name that is a proper prefix of
// another never matches the longer one.
func TestFindTypeSpecificity(t *testing.T) {
	r := newTestRegistry(t)

	idx, err := r.FindType("nis")
	if err != nil {
		t.Fatalf("FindType(nis): %v", err)
	}
	if got := r.Descriptor(idx).Name; got != "nis" {
		t.Fatalf("FindType(nis) resolved to %q, want nis", got)
	}

	idx, err = r.FindType("nisplus")
	if err != nil {
		t.Fatalf("FindType(nisplus): %v", err)
	}
	if got := r.Descriptor(idx).Name; got != "nisplus" {
		t.Fatalf("FindType(nisplus) resolved to %q, want nisplus", got)
	}
}

func TestFindTypeUnknown(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.FindType("nope"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestFindTypeUnavailable(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "ldap", Kind: QUERY}) // no Find
	if _, err := r.FindType("ldap"); err == nil {
		t.Fatal("expected error for unavailable backend")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "dbm", Kind: ABSFILE, Find: okFind})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	r.Register(Descriptor{Name: "DBM", Kind: ABSFILE, Find: okFind})
}

// Scenario S1: star/partial on a QUERY backend is rejected.
func TestParseFullTypeRejectsPartialOnQuery(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.ParseFullType("partial-nis*@,cache=no_rd"); err == nil {
		t.Fatal("expected format error for partial+star on a query backend")
	}
}

// Scenario S2.
func TestParseFullTypeAffixAndStar(t *testing.T) {
	r := newTestRegistry(t)
	pt, err := r.ParseFullType("partial3(+.)dbm*")
	if err != nil {
		t.Fatalf("ParseFullType: %v", err)
	}
	if pt.PartialMin != 3 {
		t.Errorf("PartialMin = %d, want 3", pt.PartialMin)
	}
	if pt.Affix != "+." {
		t.Errorf("Affix = %q, want %q", pt.Affix, "+.")
	}
	if pt.StarFlags != SearchStar {
		t.Errorf("StarFlags = %v, want SearchStar", pt.StarFlags)
	}
	if got := r.Descriptor(pt.Index).Name; got != "dbm" {
		t.Errorf("Index resolved to %q, want dbm", got)
	}
}

func TestParseFullTypeDefaultAffixAndPartialMin(t *testing.T) {
	r := newTestRegistry(t)
	pt, err := r.ParseFullType("partial-dbm")
	if err != nil {
		t.Fatalf("ParseFullType: %v", err)
	}
	if pt.PartialMin != 2 {
		t.Errorf("PartialMin = %d, want default 2", pt.PartialMin)
	}
	if pt.Affix != "*." {
		t.Errorf("Affix = %q, want default *.", pt.Affix)
	}
}

func TestParseFullTypeOptions(t *testing.T) {
	r := newTestRegistry(t)
	pt, err := r.ParseFullType("dbm,foo,bar=baz")
	if err != nil {
		t.Fatalf("ParseFullType: %v", err)
	}
	if pt.Opts != "foo,bar=baz" {
		t.Errorf("Opts = %q, want foo,bar=baz", pt.Opts)
	}
	if pt.PartialMin != -1 {
		t.Errorf("PartialMin = %d, want -1 (no partial matching)", pt.PartialMin)
	}
}

func TestParseFullTypeBadAffix(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.ParseFullType("partial(abcdbm"); err == nil {
		t.Fatal("expected format error for unterminated affix")
	}
	if _, err := r.ParseFullType("partial(a1)dbm"); err == nil {
		t.Fatal("expected format error for non-punctuation affix byte")
	}
}

func TestSplitArgs(t *testing.T) {
	a, err := SplitArgs(ABSFILE, "key", "/etc/passwd", "")
	if err != nil || a.Filename != "/etc/passwd" || a.Payload != "key" {
		t.Fatalf("ABSFILE split = %+v, err %v", a, err)
	}

	a, err = SplitArgs(QUERY, "", "select 1", "")
	if err != nil || a.Filename != "" || a.Payload != "select 1" {
		t.Fatalf("QUERY split = %+v, err %v", a, err)
	}

	a, err = SplitArgs(ABSFILEQUERY, "", "select 1", "file=/var/db.sqlite")
	if err != nil || a.Filename != "/var/db.sqlite" || a.Payload != "select 1" {
		t.Fatalf("ABSFILEQUERY split (option) = %+v, err %v", a, err)
	}

	a, err = SplitArgs(ABSFILEQUERY, "", "/var/db.sqlite select 1", "")
	if err != nil || a.Filename != "/var/db.sqlite" || a.Payload != "select 1" {
		t.Fatalf("ABSFILEQUERY split (legacy) = %+v, err %v", a, err)
	}

	if _, err := SplitArgs(ABSFILEQUERY, "", "select 1", ""); err == nil {
		t.Fatal("expected error when no file can be determined")
	}
}

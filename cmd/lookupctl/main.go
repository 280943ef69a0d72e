// Command lookupctl drives the dispatch engine by hand, without a mail
// transport agent around it: register the four domain backends, open a
// database, run one lookup, print what came back.
//
// It is demonstration scaffolding grounded on cmd/cctool's flag.FlagSet
// idiom (a single action, no subcommands), not part of the module's API
// surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	lookupcore "github.com/TomNewChao/exim-lookup"
	"github.com/TomNewChao/exim-lookup/backend"
	"github.com/TomNewChao/exim-lookup/dnstxt"
	"github.com/TomNewChao/exim-lookup/engine"
	"github.com/TomNewChao/exim-lookup/lsearch"
	"github.com/TomNewChao/exim-lookup/pgsql"
	"github.com/TomNewChao/exim-lookup/sqlitedb"
)

func newRegistry() *backend.Registry {
	reg := backend.NewRegistry()
	reg.Register(lsearch.Descriptor())
	reg.Register(sqlitedb.Descriptor())
	reg.Register(pgsql.Descriptor())
	reg.Register(dnstxt.Descriptor())
	return reg
}

func main() {
	var exit int
	defer func() {
		if exit != 0 {
			os.Exit(exit)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	fs := flag.NewFlagSet("lookupctl", flag.ExitOnError)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: %s [flags] <full-type> <filename-or-empty> <key>\n", os.Args[0])
		fs.PrintDefaults()
	}
	maxOpen := fs.Int("max-open", 5, "max simultaneously open ABSFILE-kind handles")
	deferOnTaint := fs.Bool("defer-on-taint", false, "defer instead of log-only on an unquoted tainted key")
	tainted := fs.Bool("tainted", false, "treat <key> as originating from untrusted input")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
	if fs.NArg() != 3 {
		fs.Usage()
		os.Exit(99)
	}
	fullType, filename, keyArg := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	reg := newRegistry()
	e, err := engine.New(engine.Options{
		Registry:     reg,
		MaxOpenFiles: *maxOpen,
		DeferOnTaint: *deferOnTaint,
		Logger:       slog.Default(),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer e.Tidyup(ctx)

	pt, err := reg.ParseFullType(fullType)
	if err != nil {
		log.Fatal(err)
	}

	h, err := e.Open(ctx, lookupcore.Trusted(filename), pt.Index, 0, nil, nil)
	if err != nil {
		log.Fatalf("open: %v", err)
	}

	key := lookupcore.FromOrigin(keyArg, *tainted)
	expand := engine.NewExpandSetup()
	data, err := e.Find(ctx, h, key, pt, expand, pt.Opts, false)
	if err != nil {
		if e.Deferred() {
			fmt.Fprintln(os.Stderr, "deferred:", e.LastError())
			exit = 75 // EX_TEMPFAIL
			return
		}
		log.Fatalf("find: %v", err)
	}

	for _, v := range expand.Vars() {
		fmt.Fprintf(os.Stderr, "expand: wild=%q fixed=%q\n", v.Wild, v.Fixed)
	}
	fmt.Printf("result: %q\n", data)
}

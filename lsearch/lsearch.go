// Package lsearch implements a flat-file ABSFILE backend: keys are matched
// linearly against a "key:value" text file, the same on-disk format
// Exim's own lsearch understands, with a transparent ".gz" compressed
// variant for large files.
//
// A line starting with whitespace is a continuation of the previous
// value, joined with a single space (the format's only structuring rule
// besides the leading "key:"). Keys compare case-insensitively, matching
// lsearch's own strcmpic comparison.
package lsearch

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	lookupcore "github.com/TomNewChao/exim-lookup"
	"github.com/TomNewChao/exim-lookup/backend"
)

// conn is what Open hands back and Find/Close/Check receive as their
// opaque any parameter.
type conn struct {
	f *os.File
}

// Descriptor returns the registration record for this backend, ready to
// pass to (*backend.Registry).Register.
func Descriptor() backend.Descriptor {
	return backend.Descriptor{
		Name:  "lsearch",
		Kind:  backend.ABSFILE,
		Open:  open,
		Check: check,
		Find:  find,
		Close: closeConn,
	}
}

func open(_ context.Context, filename string) (any, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	return &conn{f: f}, nil
}

// check enforces the host's ownership/mode policy by fstat-ing the
// already-open descriptor, never the path: stat-then-open would leave a
// window for the file to be swapped out from under the check.
func check(_ context.Context, c any, _ string, modeMask uint32, owners, groups []int) error {
	fi, err := c.(*conn).f.Stat()
	if err != nil {
		return err
	}
	mode := uint32(fi.Mode().Perm())
	if modeMask != 0 && mode&^modeMask != 0 {
		return &lookupcore.Error{Kind: lookupcore.ErrBackendOpen, Op: "lsearch.Check", Message: "file mode not permitted by mask"}
	}
	sys, ok := fi.Sys().(interface {
		Uid() uint32
		Gid() uint32
	})
	if !ok {
		return nil
	}
	if len(owners) > 0 && !matchesAny(int(sys.Uid()), owners) {
		return &lookupcore.Error{Kind: lookupcore.ErrBackendOpen, Op: "lsearch.Check", Message: "file owner not permitted"}
	}
	if len(groups) > 0 && !matchesAny(int(sys.Gid()), groups) {
		return &lookupcore.Error{Kind: lookupcore.ErrBackendOpen, Op: "lsearch.Check", Message: "file group not permitted"}
	}
	return nil
}

func matchesAny(v int, allowed []int) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func closeConn(c any) {
	_ = c.(*conn).f.Close()
}

func find(_ context.Context, c any, filename, key, _ string) (backend.FindResult, error) {
	cn := c.(*conn)
	if _, err := cn.f.Seek(0, io.SeekStart); err != nil {
		return backend.FindResult{}, err
	}

	var r io.Reader = cn.f
	if strings.HasSuffix(filename, ".gz") {
		gz, err := gzip.NewReader(cn.f)
		if err != nil {
			return backend.FindResult{}, err
		}
		defer gz.Close()
		r = gz
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var curKey string
	var curVal strings.Builder
	matched := false

	flush := func() (backend.FindResult, bool) {
		if matched {
			return backend.FindResult{Status: backend.OK, Data: curVal.String(), TTL: backend.CacheForever}, true
		}
		return backend.FindResult{}, false
	}

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if matched {
				curVal.WriteByte(' ')
				curVal.WriteString(strings.TrimSpace(line))
			}
			continue
		}
		if res, ok := flush(); ok {
			return res, nil
		}
		matched = false
		curVal.Reset()

		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		curKey = strings.TrimSpace(line[:idx])
		if strings.EqualFold(curKey, key) {
			matched = true
			curVal.WriteString(strings.TrimSpace(line[idx+1:]))
		}
	}
	if err := sc.Err(); err != nil {
		return backend.FindResult{}, err
	}
	if res, ok := flush(); ok {
		return res, nil
	}
	return backend.FindResult{Status: backend.FAIL}, nil
}

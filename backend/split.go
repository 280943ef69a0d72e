package backend

import (
	"strings"
	"unicode"

	lookupcore "github.com/TomNewChao/exim-lookup"
)

// Args is the filename/payload pair a backend's Open and Find calls
// actually receive, after SplitArgs has worked out where each one comes
// from for the backend's Kind.
type Args struct {
	Filename string
	Payload  string
}

// SplitArgs derives the filename and payload to give a backend from the
// raw search string, query string, and options the caller supplied.
//
//   - ABSFILE: filename is the query string itself, payload is the search
//     (key) string.
//   - QUERY: there is no filename; payload is the query string.
//   - ABSFILEQUERY: filename comes from a "file=PATH" option if present,
//     otherwise from a legacy leading "/"-prefixed, whitespace-terminated
//     token of the query string; payload is whatever of the query string
//     remains after that token is removed.
func SplitArgs(kind Kind, searchStr, queryStr, opts string) (Args, error) {
	switch kind {
	case ABSFILE:
		return Args{Filename: queryStr, Payload: searchStr}, nil
	case QUERY:
		return Args{Payload: queryStr}, nil
	case ABSFILEQUERY:
		if v, ok := optValue(opts, "file"); ok {
			return Args{Filename: v, Payload: queryStr}, nil
		}
		q := strings.TrimLeft(queryStr, " \t")
		if strings.HasPrefix(q, "/") {
			i := strings.IndexFunc(q, unicode.IsSpace)
			if i < 0 {
				i = len(q)
			}
			return Args{Filename: q[:i], Payload: strings.TrimLeft(q[i:], " \t")}, nil
		}
		return Args{}, &lookupcore.Error{
			Kind:    lookupcore.ErrType,
			Op:      "SplitArgs",
			Message: "absfilequery backend requires a file= option or a leading /path token",
		}
	default:
		return Args{}, &lookupcore.Error{Kind: lookupcore.ErrType, Op: "SplitArgs", Message: "unknown backend kind"}
	}
}

// optValue scans a comma-separated option list for "key=value".
func optValue(opts, key string) (string, bool) {
	for _, tok := range strings.Split(opts, ",") {
		if v, ok := strings.CutPrefix(tok, key+"="); ok {
			return v, true
		}
	}
	return "", false
}

package backend

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	lookupcore "github.com/TomNewChao/exim-lookup"
)

// StarFlags records which wildcard suffix, if any, followed the backend
// name in a type-name string.
type StarFlags uint8

const (
	// SearchStar means the type name ended in a bare "*": on an
	// otherwise-unmatched key, try the literal key "*".
	SearchStar StarFlags = 1 << iota
	// SearchStarAt means the type name ended in "*@": on an
	// otherwise-unmatched key containing '@' past its first byte, try
	// the key "*" followed by everything from the last '@' onward (for
	// "alice@example.com", the key "*@example.com").
	SearchStarAt
)

// ParsedType is the result of parsing a full type-name string.
type ParsedType struct {
	Index      int
	PartialMin int // -1 means no partial matching
	Affix      string
	StarFlags  StarFlags
	Opts       string
}

const defaultPartialMin = 2

// ParseFullType recognizes the type-name grammar described in the
// specification:
//
//	full-type = [ "partial" [ 1*DIGIT ] ( "-" / "(" 1*(punct-no-paren) ")" ) ]
//	            backend-name
//	            [ "*" [ "@" ] ]
//	            [ "," option *("," option) ]
func (r *Registry) ParseFullType(full string) (ParsedType, error) {
	s := full
	partialMin := -1
	affix := ""

	if strings.HasPrefix(s, "partial") {
		s = s[len("partial"):]
		i := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i > 0 {
			v, err := strconv.Atoi(s[:i])
			if err != nil {
				return ParsedType{}, formatErr(full)
			}
			partialMin = v
			s = s[i:]
		} else {
			partialMin = defaultPartialMin
		}

		switch {
		case strings.HasPrefix(s, "-"):
			affix = "*."
			s = s[1:]
		case strings.HasPrefix(s, "("):
			s = s[1:]
			end := -1
			for j := 0; j < len(s); j++ {
				c := rune(s[j])
				if c == ')' {
					end = j
					break
				}
				if c > unicode.MaxASCII || !(unicode.IsPunct(c) || unicode.IsSymbol(c)) {
					return ParsedType{}, formatErr(full)
				}
			}
			if end < 0 {
				return ParsedType{}, formatErr(full)
			}
			affix = s[:end]
			s = s[end+1:]
		default:
			return ParsedType{}, formatErr(full)
		}
	}

	// The option tail is always last, so split it off before looking for
	// the star suffix; affix punctuation (already consumed above) may
	// itself contain a comma, but nothing in the remainder does.
	var opts string
	if i := strings.IndexByte(s, ','); i >= 0 {
		opts = s[i+1:]
		s = s[:i]
	}

	// backend name, up to an optional "*"/"*@" suffix.
	name := s
	star := StarFlags(0)
	if i := strings.IndexByte(s, '*'); i >= 0 {
		name = s[:i]
		rest := s[i+1:]
		if strings.HasPrefix(rest, "@") {
			star = SearchStarAt
		} else {
			star = SearchStar
		}
	}

	idx, err := r.FindType(name)
	if err != nil {
		return ParsedType{}, err
	}
	d := r.Descriptor(idx)

	if (partialMin >= 0 || star != 0) && !d.Kind.SupportsPartial() {
		return ParsedType{}, &lookupcore.Error{
			Kind:    lookupcore.ErrType,
			Op:      "ParseFullType",
			Message: fmt.Sprintf(`"partial" and "*"/"*@" are not permitted for query-style backend %q`, d.Name),
		}
	}

	return ParsedType{
		Index:      idx,
		PartialMin: partialMin,
		Affix:      affix,
		StarFlags:  star,
		Opts:       opts,
	}, nil
}

func formatErr(full string) error {
	return &lookupcore.Error{
		Kind:    lookupcore.ErrType,
		Op:      "ParseFullType",
		Message: fmt.Sprintf("format error in lookup type %q", full),
	}
}

package script

import (
	"fmt"
	"strconv"
	"strings"
)

// metatags are search qualifiers of the form "name:value" that select posts
// rather than name a tag. Namespaced tag names such as "artist:foo" are not
// metatags and are kept verbatim.
var metatags = map[string]bool{
	"id":       true,
	"user":     true,
	"approver": true,
	"rating":   true,
	"score":    true,
	"status":   true,
	"order":    true,
	"limit":    true,
	"source":   true,
	"md5":      true,
	"date":     true,
	"fav":      true,
	"pool":     true,
	"parent":   true,
	"filetype": true,
}

// Token is one element of a mass update tag list.
type Token struct {
	Name     string `json:"name"`
	Negated  bool   `json:"negated,omitempty"`  // "-tag": must be absent / remove
	Optional bool   `json:"optional,omitempty"` // "~tag": any-of group
}

// String renders the token with its prefix.
func (t Token) String() string {
	switch {
	case t.Negated:
		return "-" + t.Name
	case t.Optional:
		return "~" + t.Name
	default:
		return t.Name
	}
}

// IsWildcard reports whether the name contains a "*" pattern.
func (t Token) IsWildcard() bool {
	return strings.Contains(t.Name, "*")
}

// Metatag splits a metatag token into its qualifier and value.
func (t Token) Metatag() (name, value string, ok bool) {
	name, value, found := strings.Cut(t.Name, ":")
	if !found || !metatags[name] {
		return "", "", false
	}
	return name, value, true
}

// IsMetatag reports whether the token is a search qualifier.
func (t Token) IsMetatag() bool {
	_, _, ok := t.Metatag()
	return ok
}

// IsPlain reports whether the token names a literal tag to require or add.
func (t Token) IsPlain() bool {
	return !t.Negated && !t.Optional && !t.IsWildcard() && !t.IsMetatag()
}

// IDSelector is the parsed value of an "id:" metatag: either a list of ids
// or an inclusive range.
type IDSelector struct {
	IDs      []int64
	Min, Max int64
}

// ParseIDSelector accepts "N", "N,M,..." and "N..M".
func ParseIDSelector(value string) (IDSelector, error) {
	if lo, hi, ok := strings.Cut(value, ".."); ok {
		minID, err := parseID(lo)
		if err != nil {
			return IDSelector{}, err
		}
		maxID, err := parseID(hi)
		if err != nil {
			return IDSelector{}, err
		}
		if minID > maxID {
			return IDSelector{}, fmt.Errorf("empty id range %q", value)
		}
		return IDSelector{Min: minID, Max: maxID}, nil
	}

	var sel IDSelector
	for _, part := range strings.Split(value, ",") {
		id, err := parseID(part)
		if err != nil {
			return IDSelector{}, err
		}
		sel.IDs = append(sel.IDs, id)
	}
	return sel, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post id %q", s)
	}
	return id, nil
}

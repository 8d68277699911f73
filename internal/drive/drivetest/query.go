package drivetest

import (
	"fmt"
	"strings"
)

// query is the subset of the Drive search language package drive emits:
// clauses joined by "and", each one of name='x', mimeType='x',
// 'x' in parents or trashed=false.
type query struct {
	name        *string
	mimeType    *string
	parent      *string
	trashedOnly bool
	notTrashed  bool
}

func parseQuery(q string) (query, error) {
	var out query
	rest := strings.TrimSpace(q)
	for rest != "" {
		var err error
		switch {
		case strings.HasPrefix(rest, "and "):
			rest = rest[len("and "):]
		case strings.HasPrefix(rest, "name="):
			var v string
			v, rest, err = readLiteral(rest[len("name="):])
			out.name = &v
		case strings.HasPrefix(rest, "mimeType="):
			var v string
			v, rest, err = readLiteral(rest[len("mimeType="):])
			out.mimeType = &v
		case strings.HasPrefix(rest, "trashed=false"):
			rest = rest[len("trashed=false"):]
			out.notTrashed = true
		case strings.HasPrefix(rest, "trashed=true"):
			rest = rest[len("trashed=true"):]
			out.trashedOnly = true
		case strings.HasPrefix(rest, "'"):
			var v string
			v, rest, err = readLiteral(rest)
			if err == nil {
				rest = strings.TrimSpace(rest)
				if !strings.HasPrefix(rest, "in parents") {
					return out, fmt.Errorf("unsupported clause near %q", rest)
				}
				rest = rest[len("in parents"):]
				out.parent = &v
			}
		default:
			return out, fmt.Errorf("unsupported clause near %q", rest)
		}
		if err != nil {
			return out, err
		}
		rest = strings.TrimSpace(rest)
	}
	return out, nil
}

// readLiteral reads a single-quoted literal with backslash escapes from the
// start of s and returns its value and the remainder.
func readLiteral(s string) (string, string, error) {
	if !strings.HasPrefix(s, "'") {
		return "", s, fmt.Errorf("expected quoted literal near %q", s)
	}
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", s, fmt.Errorf("dangling escape in %q", s)
			}
			i++
			b.WriteByte(s[i])
		case '\'':
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(s[i])
		}
	}
	return "", s, fmt.Errorf("unterminated literal in %q", s)
}

func (q query) matches(f *File) bool {
	if q.notTrashed && f.Trashed {
		return false
	}
	if q.trashedOnly && !f.Trashed {
		return false
	}
	if q.name != nil && f.Name != *q.name {
		return false
	}
	if q.mimeType != nil && f.MimeType != *q.mimeType {
		return false
	}
	if q.parent != nil {
		found := false
		for _, p := range f.Parents {
			if p == *q.parent {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

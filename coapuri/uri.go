// Package coapuri parses and resolves URI references per RFC 3986 and
// exposes path/query iteration in a form directly usable as CoAP option
// values (percent-decoded segments, no further splitting needed).
package coapuri

import (
	"strconv"
	"strings"
)

// Reference is a parsed URI reference: either absolute (Scheme set) or
// relative. It deliberately keeps components as strings rather than
// validating every RFC 3986 production; CoAP only needs enough structure
// to split host/port/path/query onto the right options.
type Reference struct {
	Scheme       string
	HasAuthority bool
	UserInfo     string
	Host         string
	Port         string // empty if not specified
	Path         string
	HasQuery     bool
	Query        string
	HasFragment  bool
	Fragment     string
}

// IsAbsolute reports whether the reference carries a scheme.
func (r Reference) IsAbsolute() bool {
	return r.Scheme != ""
}

// Parse parses a URI reference (absolute or relative) per RFC 3986 appendix B.
func Parse(s string) (Reference, error) {
	m := reRFC3986AppendixB.FindStringSubmatch(s)
	if m == nil {
		return Reference{}, ErrMalformed
	}

	ref := Reference{
		Scheme:      m[2],
		Path:        m[5],
		HasQuery:    m[6] != "",
		Query:       m[7],
		HasFragment: m[8] != "",
		Fragment:    m[9],
	}
	if ref.Scheme != "" && !reCheckScheme.MatchString(ref.Scheme) {
		return Reference{}, ErrInvalidScheme
	}

	if m[3] != "" {
		ref.HasAuthority = true
		am := reAuthority.FindStringSubmatch(m[4])
		if am == nil {
			return Reference{}, ErrMalformed
		}
		ref.UserInfo = am[2]
		ref.Host = strings.Trim(am[3], "[]")
		ref.Port = am[5]
	}

	return ref, nil
}

// PathSegments splits and percent-decodes the path into segments, dropping
// every empty segment (including the one an absolute path's leading slash
// would produce).
func (r Reference) PathSegments() []string {
	if r.Path == "" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(r.Path, "/"), "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, percentDecode(p))
	}
	return out
}

// QueryItems splits and percent-decodes the query into its "&"-separated items.
func (r Reference) QueryItems() []string {
	if !r.HasQuery || r.Query == "" {
		return nil
	}
	parts := strings.Split(r.Query, "&")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, percentDecode(p))
	}
	return out
}

// PortOrDefault returns the numeric port, falling back to def when unset.
func (r Reference) PortOrDefault(def uint16) uint16 {
	if r.Port == "" {
		return def
	}
	n, err := strconv.Atoi(r.Port)
	if err != nil {
		return def
	}
	return uint16(n)
}

func percentDecode(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Resolve resolves rel against base per RFC 3986 section 5.3 (merge paths,
// remove dot segments). base must be absolute; rel may be absolute or
// relative. If rel is itself absolute, the result is rel unchanged but with
// dot segments removed from its path.
func Resolve(base, rel Reference) (Reference, error) {
	if rel.IsAbsolute() {
		out := rel
		out.Path = removeDotSegments(out.Path)
		return out, nil
	}
	if !base.IsAbsolute() {
		return Reference{}, ErrCannotBeABase
	}
	if !base.HasAuthority && !strings.HasPrefix(base.Path, "/") {
		// base has a scheme but no authority and an opaque (non-hierarchical)
		// path, e.g. "urn:example:1234" - there is no path to merge against.
		return Reference{}, ErrCannotBeABase
	}

	out := Reference{Scheme: base.Scheme}

	switch {
	case rel.HasAuthority:
		out.HasAuthority = true
		out.UserInfo = rel.UserInfo
		out.Host = rel.Host
		out.Port = rel.Port
		out.Path = removeDotSegments(rel.Path)
		out.HasQuery = rel.HasQuery
		out.Query = rel.Query
	case rel.Path == "":
		out.HasAuthority = base.HasAuthority
		out.UserInfo = base.UserInfo
		out.Host = base.Host
		out.Port = base.Port
		out.Path = base.Path
		if rel.HasQuery {
			out.HasQuery = true
			out.Query = rel.Query
		} else {
			out.HasQuery = base.HasQuery
			out.Query = base.Query
		}
	default:
		out.HasAuthority = base.HasAuthority
		out.UserInfo = base.UserInfo
		out.Host = base.Host
		out.Port = base.Port
		if strings.HasPrefix(rel.Path, "/") {
			out.Path = removeDotSegments(rel.Path)
		} else {
			out.Path = removeDotSegments(mergePaths(base, rel.Path))
		}
		out.HasQuery = rel.HasQuery
		out.Query = rel.Query
	}

	out.HasFragment = rel.HasFragment
	out.Fragment = rel.Fragment
	return out, nil
}

func mergePaths(base Reference, relPath string) string {
	if base.HasAuthority && base.Path == "" {
		return "/" + relPath
	}
	idx := strings.LastIndex(base.Path, "/")
	if idx < 0 {
		return relPath
	}
	return base.Path[:idx+1] + relPath
}

// removeDotSegments implements RFC 3986 section 5.2.4.
func removeDotSegments(path string) string {
	var out []string
	rest := path
	for rest != "" {
		switch {
		case strings.HasPrefix(rest, "../"):
			rest = rest[3:]
		case strings.HasPrefix(rest, "./"):
			rest = rest[2:]
		case strings.HasPrefix(rest, "/./"):
			rest = "/" + rest[3:]
		case rest == "/.":
			rest = "/"
		case strings.HasPrefix(rest, "/../"):
			rest = "/" + rest[4:]
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case rest == "/..":
			rest = "/"
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case rest == "." || rest == "..":
			rest = ""
		default:
			idx := 0
			if strings.HasPrefix(rest, "/") {
				idx = 1
			}
			next := strings.Index(rest[idx:], "/")
			var seg string
			if next < 0 {
				seg = rest
				rest = ""
			} else {
				seg = rest[:idx+next]
				rest = rest[idx+next:]
			}
			out = append(out, seg)
		}
	}
	return strings.Join(out, "")
}

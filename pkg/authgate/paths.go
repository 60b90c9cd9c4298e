package authgate

import "strings"

// PathSet matches request paths against exact entries and "/prefix/**"
// wildcards.
type PathSet struct {
	exact    map[string]struct{}
	prefixes []string
}

func NewPathSet(patterns ...string) PathSet {
	ps := PathSet{exact: make(map[string]struct{})}
	for _, p := range patterns {
		if base, ok := strings.CutSuffix(p, "/**"); ok {
			ps.exact[base] = struct{}{}
			ps.prefixes = append(ps.prefixes, base+"/")
			continue
		}
		ps.exact[p] = struct{}{}
	}
	return ps
}

func (ps PathSet) Match(path string) bool {
	if _, ok := ps.exact[path]; ok {
		return true
	}
	for _, p := range ps.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

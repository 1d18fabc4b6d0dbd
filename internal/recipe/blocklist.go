package recipe

import "strings"

// DomainBlocklist rejects scrape targets by hostname. Patterns are either
// exact hosts ("tracker.example.com") or suffix wildcards ("*.example.com",
// ".example.com"); a suffix also matches the bare domain itself.
type DomainBlocklist struct {
	exact    map[string]struct{}
	suffixes []string
}

// NewDomainBlocklist parses configured patterns. Returns nil when no usable
// pattern remains; a nil blocklist never blocks, so callers can hold one
// unconditionally.
func NewDomainBlocklist(patterns []string) *DomainBlocklist {
	bl := &DomainBlocklist{exact: make(map[string]struct{})}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(value, "*."):
			bl.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			bl.addSuffix(strings.TrimPrefix(value, "."))
		default:
			bl.exact[value] = struct{}{}
		}
	}
	if len(bl.exact) == 0 && len(bl.suffixes) == 0 {
		return nil
	}
	return bl
}

func (b *DomainBlocklist) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range b.suffixes {
		if existing == suffix {
			return
		}
	}
	b.suffixes = append(b.suffixes, suffix)
}

// Blocked reports whether the host matches any pattern.
func (b *DomainBlocklist) Blocked(host string) bool {
	if b == nil {
		return false
	}
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return false
	}
	if _, ok := b.exact[host]; ok {
		return true
	}
	for _, suffix := range b.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

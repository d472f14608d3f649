package routing

import (
	"net"
	"sort"
	"strings"
)

// Site is one configured mapping from a local hostname to an upstream
// origin, plus its rewrite and header rules. Sites are immutable after
// load; the proxy never mutates them.
type Site struct {
	// Name is the display label shown on the landing page and in listings.
	Name string
	// LocalHostname is matched exactly against the inbound Host header
	// (port stripped). It is the unique key in a Table.
	LocalHostname string

	TargetHost     string
	TargetProtocol string // "http" or "https"
	TargetPort     int

	// RewriteContent gates body rewriting for text responses.
	RewriteContent bool

	ExplicitRewrites []ExplicitRewrite
	WildcardRewrites []WildcardRewrite

	HeadersToRemove []string
	HeadersToAdd    []HeaderValue

	// InjectedCookie is appended verbatim to every outbound Cookie header.
	InjectedCookie string

	// SourceFile records which conf file produced this site, for duplicate
	// hostname warnings at load time.
	SourceFile string

	// explicitByPrefix holds ExplicitRewrites sorted longest-prefix-first
	// (ties keep declaration order). Populated lazily so hand-built Sites
	// in tests work without a Table.
	explicitByPrefix []ExplicitRewrite
}

// ExplicitRewrite maps one upstream subdomain to one local path prefix.
type ExplicitRewrite struct {
	ExternalHost    string
	LocalPathPrefix string
}

// WildcardRewrite maps the unbounded family *.RootDomain to one local
// path prefix via subdomain-in-path encoding (prefix + "--" + label).
type WildcardRewrite struct {
	RootDomain      string
	LocalPathPrefix string
}

// HeaderValue is an ordered name/value pair. Emission order is observable
// to clients, so headers-to-add is a list rather than a map.
type HeaderValue struct {
	Name  string
	Value string
}

func (s *Site) explicitLongestFirst() []ExplicitRewrite {
	if s.explicitByPrefix == nil && len(s.ExplicitRewrites) > 0 {
		ordered := make([]ExplicitRewrite, len(s.ExplicitRewrites))
		copy(ordered, s.ExplicitRewrites)
		sort.SliceStable(ordered, func(i, j int) bool {
			return len(ordered[i].LocalPathPrefix) > len(ordered[j].LocalPathPrefix)
		})
		s.explicitByPrefix = ordered
	}
	return s.explicitByPrefix
}

// Table holds the loaded sites keyed by local hostname. It is built once
// at startup and read concurrently without locking afterward.
type Table struct {
	byHost map[string]*Site
	order  []*Site
}

// NewTable builds a lookup table from sites in declaration order. When two
// sites declare the same local hostname the last one wins; the caller is
// expected to have warned about the duplicate at load time.
func NewTable(sites []*Site) *Table {
	t := &Table{byHost: make(map[string]*Site, len(sites))}
	for _, s := range sites {
		s.explicitLongestFirst()
		if _, dup := t.byHost[s.LocalHostname]; !dup {
			t.order = append(t.order, s)
		} else {
			for i, existing := range t.order {
				if existing.LocalHostname == s.LocalHostname {
					t.order[i] = s
					break
				}
			}
		}
		t.byHost[s.LocalHostname] = s
	}
	return t
}

// Lookup resolves the inbound Host header to a site, or nil when no site
// matches. Matching is exact: no wildcards, no case folding.
func (t *Table) Lookup(hostHeader string) *Site {
	host := hostHeader
	if strings.Contains(host, ":") {
		if hostOnly, _, err := net.SplitHostPort(host); err == nil {
			host = hostOnly
		}
	}
	return t.byHost[host]
}

// Sites returns the sites in declaration order.
func (t *Table) Sites() []*Site {
	return t.order
}

func (t *Table) Len() int {
	return len(t.order)
}

package rewrite

import (
	"strings"

	"gw/internal/routing"
)

// CookieRewriter rescopes Set-Cookie domains so session cookies issued by
// the upstream remain valid against the local hostname. Built once per
// site; safe for concurrent use.
type CookieRewriter struct {
	localHostname string

	// rootDomains are the coarse cookie-scoping boundaries (last two
	// dot-separated labels) of every upstream host this site fronts, in
	// insertion order.
	rootDomains []string

	injectedCookie string
}

// NewCookieRewriter derives the root-domain set from the site's default
// target, every explicit rewrite host, and every wildcard root domain.
func NewCookieRewriter(site *routing.Site) *CookieRewriter {
	c := &CookieRewriter{
		localHostname:  site.LocalHostname,
		injectedCookie: site.InjectedCookie,
	}
	c.addRoot(site.TargetHost)
	for _, er := range site.ExplicitRewrites {
		c.addRoot(er.ExternalHost)
	}
	for _, wr := range site.WildcardRewrites {
		c.addRoot(wr.RootDomain)
	}
	return c
}

func (c *CookieRewriter) addRoot(host string) {
	root := RootDomain(host)
	if root == "" {
		return
	}
	for _, existing := range c.rootDomains {
		if existing == root {
			return
		}
	}
	c.rootDomains = append(c.rootDomains, root)
}

// RootDomain returns the last two dot-separated labels of a hostname, or
// the hostname itself when it has fewer than two labels.
func RootDomain(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// InjectedCookie returns the site's configured static cookie string, or
// empty when none is configured.
func (c *CookieRewriter) InjectedCookie() string {
	return c.injectedCookie
}

// RewriteSetCookies rewrites domain scoping on each raw Set-Cookie value.
//
// A cookie carrying a domain attribute that matches one of the site's root
// domains (equality or dot-boundary suffix, leading dot stripped) has that
// value replaced with the local hostname; a non-matching cookie is returned
// entirely unchanged. A cookie with no domain attribute gets one added,
// scoped to the local hostname. Every other attribute, including Secure and
// HttpOnly, keeps its original text and position: the gateway terminates
// TLS, so security attributes stay intact.
func (c *CookieRewriter) RewriteSetCookies(values []string) []string {
	out := make([]string, 0, len(values))
	for _, raw := range values {
		out = append(out, c.rewriteOne(raw))
	}
	return out
}

func (c *CookieRewriter) rewriteOne(raw string) string {
	segments := strings.Split(raw, ";")

	domainIdx := -1
	domainName := ""
	domainValue := ""
	for i := 1; i < len(segments); i++ {
		name, value, hasValue := strings.Cut(strings.TrimSpace(segments[i]), "=")
		// An attribute with no "=" is a valueless flag (Secure, HttpOnly,
		// or anything malformed); those never carry a domain.
		if !hasValue || !strings.EqualFold(name, "domain") {
			continue
		}
		domainIdx = i
		domainName = name
		domainValue = value
		break
	}

	if domainIdx < 0 {
		// Host-only cookie: scope it to the gateway hostname so the
		// browser keeps sending it on subsequent requests.
		return raw + "; domain=" + c.localHostname
	}

	if !c.matchesRoot(strings.TrimPrefix(domainValue, ".")) {
		return raw
	}

	// Splice only the domain segment; every other byte of the original
	// value, separators and spacing included, stays as sent.
	seg := segments[domainIdx]
	lead := seg[:len(seg)-len(strings.TrimLeft(seg, " \t"))]
	segments[domainIdx] = lead + domainName + "=" + c.localHostname
	return strings.Join(segments, ";")
}

func (c *CookieRewriter) matchesRoot(domain string) bool {
	for _, root := range c.rootDomains {
		if domain == root || strings.HasSuffix(domain, "."+root) {
			return true
		}
	}
	return false
}

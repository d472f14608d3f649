package rewrite

import (
	"fmt"
	"regexp"
	"strings"

	"gw/internal/routing"
)

// BodyRewriter rewrites upstream-origin references in text response bodies
// back to local-gateway references. One instance is built per site at
// startup and is safe for concurrent use.
type BodyRewriter struct {
	enabled bool

	// subs are literal substring substitutions, applied in registration
	// order.
	subs []substitution

	// locationSubs is the subset used for Location header rewriting:
	// only the scheme-qualified origin forms, applied regardless of the
	// RewriteContent gate.
	locationSubs []substitution

	wildcards []wildcardPattern
}

type substitution struct {
	old string
	new string
}

type wildcardPattern struct {
	re          *regexp.Regexp
	localScheme string
	// replaceTail is "//<local-host:port><prefix>--"; the captured
	// subdomain label is appended on each match.
	replaceTail string
}

// NewBodyRewriter precompiles all substitutions for a site. httpPort and
// httpsPort are the gateway's listener ports, used to build the local
// origin that replaces upstream origins.
func NewBodyRewriter(site *routing.Site, httpPort, httpsPort int) *BodyRewriter {
	scheme, hostPort := localFront(site, httpPort, httpsPort)
	origin := scheme + "://" + hostPort

	b := &BodyRewriter{enabled: site.RewriteContent}

	b.registerHost(site.TargetHost, origin, hostPort, "")
	for _, er := range site.ExplicitRewrites {
		b.registerHost(er.ExternalHost, origin, hostPort, er.LocalPathPrefix)
	}

	for _, wr := range site.WildcardRewrites {
		re := regexp.MustCompile(`(https?:)?//([^/]+?)\.` + regexp.QuoteMeta(wr.RootDomain))
		b.wildcards = append(b.wildcards, wildcardPattern{
			re:          re,
			localScheme: scheme,
			replaceTail: "//" + hostPort + wr.LocalPathPrefix + wildcardJoin,
		})
	}

	return b
}

const wildcardJoin = "--"

func (b *BodyRewriter) registerHost(host, origin, hostPort, prefix string) {
	b.subs = append(b.subs,
		substitution{"https://" + host, origin + prefix},
		substitution{"http://" + host, origin + prefix},
		substitution{"//" + host, "//" + hostPort + prefix},
	)
	b.locationSubs = append(b.locationSubs,
		substitution{"https://" + host, origin + prefix},
		substitution{"http://" + host, origin + prefix},
	)
}

// localFront returns the scheme and host[:port] under which a site is
// reachable on the gateway. HTTPS-fronted sites are served from the HTTPS
// listener; everything else from the HTTP listener. Scheme-default ports
// are elided.
func localFront(site *routing.Site, httpPort, httpsPort int) (scheme, hostPort string) {
	scheme = "http"
	port := httpPort
	if site.TargetProtocol == "https" {
		scheme = "https"
		port = httpsPort
	}
	hostPort = site.LocalHostname
	if (scheme == "http" && port != 80) || (scheme == "https" && port != 443) {
		hostPort = fmt.Sprintf("%s:%d", site.LocalHostname, port)
	}
	return scheme, hostPort
}

// Rewrite returns the body with upstream references replaced by gateway
// references. It is a no-op unless rewriting is enabled for the site, the
// content type is a recognized text type, and the body is non-empty. The
// body must already be fully materialized; there is no streaming rewrite.
func (b *BodyRewriter) Rewrite(body []byte, contentType string) []byte {
	if !b.enabled || len(body) == 0 || ClassifyContent(contentType) == ContentOpaque {
		return body
	}

	s := string(body)
	for _, sub := range b.subs {
		s = strings.ReplaceAll(s, sub.old, sub.new)
	}
	for _, w := range b.wildcards {
		s = w.re.ReplaceAllStringFunc(s, func(match string) string {
			m := w.re.FindStringSubmatch(match)
			scheme := m[1]
			if scheme == "" {
				scheme = w.localScheme + ":"
			}
			return scheme + w.replaceTail + m[2]
		})
	}
	return []byte(s)
}

// RewriteLocation rewrites redirect targets so they keep pointing at the
// gateway. Unlike Rewrite this is not gated on RewriteContent: redirects
// must never leak the upstream origin.
func (b *BodyRewriter) RewriteLocation(location string) string {
	for _, sub := range b.locationSubs {
		location = strings.ReplaceAll(location, sub.old, sub.new)
	}
	return location
}

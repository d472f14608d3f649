package routing

import "strings"

// Target is the forwarding destination computed for one request. It is
// never persisted; every request resolves fresh against the site.
type Target struct {
	Host     string
	Path     string
	Protocol string
	Port     int
}

// wildcardSeparator joins a local path prefix to the encoded subdomain
// label: /g--sub.domain/rest decodes to host sub.domain.<root>, path /rest.
// Labels are copied verbatim, so a label that itself contains "--" does
// not round-trip.
const wildcardSeparator = "--"

// ResolveUpstream maps a request path to the upstream target for a site.
//
// Explicit rewrites are checked longest-prefix-first so that overlapping
// prefixes resolve to the more specific host. Wildcard rewrites are then
// checked in declaration order. Anything else forwards to the site's
// default target with the path untouched.
func ResolveUpstream(s *Site, requestPath string) Target {
	for _, er := range s.explicitLongestFirst() {
		if requestPath != er.LocalPathPrefix && !strings.HasPrefix(requestPath, er.LocalPathPrefix+"/") {
			continue
		}
		stripped := strings.TrimPrefix(requestPath, er.LocalPathPrefix)
		if stripped == "" {
			stripped = "/"
		}
		return Target{
			Host:     er.ExternalHost,
			Path:     stripped,
			Protocol: s.TargetProtocol,
			Port:     s.TargetPort,
		}
	}

	for _, wr := range s.WildcardRewrites {
		marker := wr.LocalPathPrefix + wildcardSeparator
		if !strings.HasPrefix(requestPath, marker) {
			continue
		}
		rest := requestPath[len(marker):]
		label := rest
		path := "/"
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			label = rest[:i]
			path = rest[i:]
		}
		if label == "" {
			continue
		}
		return Target{
			Host:     label + "." + wr.RootDomain,
			Path:     path,
			Protocol: s.TargetProtocol,
			Port:     s.TargetPort,
		}
	}

	return Target{
		Host:     s.TargetHost,
		Path:     requestPath,
		Protocol: s.TargetProtocol,
		Port:     s.TargetPort,
	}
}

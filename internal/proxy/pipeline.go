package proxy

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"gw/internal/rewrite"
	"gw/internal/routing"
)

// defaultUserAgent is substituted when a client sends no User-Agent at
// all; some upstreams reject such requests outright.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// hopByHopHeaders are meaningful only to the immediate connection and are
// never forwarded in either direction.
var hopByHopHeaders = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailers":            {},
	"transfer-encoding":   {},
	"upgrade":             {},
}

func isHopByHop(name string) bool {
	_, ok := hopByHopHeaders[strings.ToLower(name)]
	return ok
}

// Pipeline orchestrates one request/response exchange per call. All state
// is built once at startup and read-only afterward, so a single Pipeline
// serves concurrent requests without locking.
type Pipeline struct {
	table     *routing.Table
	bodies    map[string]*rewrite.BodyRewriter
	cookies   map[string]*rewrite.CookieRewriter
	landing   *landingPage
	httpPort  int
	httpsPort int
	userAgent string

	// Client performs the upstream calls. Exposed so tests can install a
	// fake transport. No timeout and no retry: a failed upstream attempt
	// ends that one exchange with a 502.
	Client *http.Client
}

// New precompiles the per-site rewriters and landing page.
func New(table *routing.Table, httpPort, httpsPort int, userAgent string) *Pipeline {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	p := &Pipeline{
		table:     table,
		bodies:    make(map[string]*rewrite.BodyRewriter, table.Len()),
		cookies:   make(map[string]*rewrite.CookieRewriter, table.Len()),
		landing:   newLandingPage(table.Sites(), httpPort, httpsPort),
		httpPort:  httpPort,
		httpsPort: httpsPort,
		userAgent: userAgent,
		Client: &http.Client{
			// Redirects belong to the browser: pass 3xx through so the
			// Location rewrite below keeps them on the gateway.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, site := range table.Sites() {
		p.bodies[site.LocalHostname] = rewrite.NewBodyRewriter(site, httpPort, httpsPort)
		p.cookies[site.LocalHostname] = rewrite.NewCookieRewriter(site)
	}
	return p
}

// Handler returns the request handler for one listener. secure marks the
// HTTPS listener; HTTPS-fronted sites reached over the plain listener are
// redirected rather than served.
func (p *Pipeline) Handler(secure bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.serve(w, r, secure)
	})
}

func (p *Pipeline) serve(w http.ResponseWriter, r *http.Request, secure bool) {
	if r.Method == http.MethodOptions {
		writeCORSPreflight(w)
		return
	}

	site := p.table.Lookup(r.Host)
	if site == nil {
		p.landing.render(w)
		return
	}

	if !secure && site.TargetProtocol == "https" {
		p.redirectToHTTPS(w, r, site)
		return
	}

	// Resolve against the escaped path so percent-encoded reserved
	// characters survive into the rebuilt upstream URL.
	target := routing.ResolveUpstream(site, r.URL.EscapedPath())

	out, err := p.buildOutbound(r, site, target)
	if err != nil {
		p.writeUpstreamError(w, site, err)
		return
	}

	resp, err := p.Client.Do(out)
	if err != nil {
		p.writeUpstreamError(w, site, err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.writeUpstreamError(w, site, err)
		return
	}
	body = p.bodies[site.LocalHostname].Rewrite(body, resp.Header.Get("Content-Type"))

	p.writeResponse(w, resp, site, body)
}

// buildOutbound assembles the upstream request: inbound headers minus the
// hop-by-hop set, Host pinned to the resolved upstream, Accept-Encoding
// dropped so the body comes back as plain text the rewriter can work on,
// and the site's injected cookie appended. The inbound body streams
// through verbatim.
func (p *Pipeline) buildOutbound(r *http.Request, site *routing.Site, target routing.Target) (*http.Request, error) {
	u := target.Protocol + "://" + hostPort(target) + target.Path
	out, err := http.NewRequestWithContext(r.Context(), r.Method, u, r.Body)
	if err != nil {
		return nil, err
	}
	out.URL.RawQuery = r.URL.RawQuery
	out.Host = target.Host
	out.ContentLength = r.ContentLength

	for name, values := range r.Header {
		if isHopByHop(name) {
			continue
		}
		for _, v := range values {
			out.Header.Add(name, v)
		}
	}
	out.Header.Del("Accept-Encoding")
	if out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", p.userAgent)
	}

	if injected := p.cookies[site.LocalHostname].InjectedCookie(); injected != "" {
		// Collapse every inbound Cookie line first so none are lost when
		// the single joined line replaces them.
		cookies := append(out.Header.Values("Cookie"), injected)
		out.Header.Set("Cookie", strings.Join(cookies, "; "))
	}
	return out, nil
}

func (p *Pipeline) writeResponse(w http.ResponseWriter, resp *http.Response, site *routing.Site, body []byte) {
	h := w.Header()
	for name, values := range resp.Header {
		if isHopByHop(name) || strings.EqualFold(name, "Set-Cookie") || strings.EqualFold(name, "Content-Length") {
			continue
		}
		for _, v := range values {
			h.Add(name, v)
		}
	}

	for _, name := range site.HeadersToRemove {
		h.Del(name)
	}

	if raw := resp.Header.Values("Set-Cookie"); len(raw) > 0 {
		rewritten := p.cookies[site.LocalHostname].RewriteSetCookies(raw)
		for _, c := range rewritten {
			h.Add("Set-Cookie", c)
		}
	}

	for _, hv := range site.HeadersToAdd {
		h.Set(hv.Name, hv.Value)
	}

	if loc := h.Get("Location"); loc != "" {
		h.Set("Location", p.bodies[site.LocalHostname].RewriteLocation(loc))
	}

	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		log.Printf("writing response for %s: %v", site.Name, err)
	}
}

func (p *Pipeline) redirectToHTTPS(w http.ResponseWriter, r *http.Request, site *routing.Site) {
	hostPort := site.LocalHostname
	if p.httpsPort != 443 {
		hostPort = fmt.Sprintf("%s:%d", site.LocalHostname, p.httpsPort)
	}
	http.Redirect(w, r, "https://"+hostPort+r.URL.RequestURI(), http.StatusMovedPermanently)
}

func (p *Pipeline) writeUpstreamError(w http.ResponseWriter, site *routing.Site, err error) {
	log.Printf("upstream error for %s: %v", site.Name, err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	fmt.Fprintf(w, "upstream request failed for %s: %v\n", site.Name, err)
}

// writeCORSPreflight answers every OPTIONS request immediately, without a
// route lookup or upstream contact.
func writeCORSPreflight(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "*")
	h.Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusNoContent)
}

// hostPort renders a target's dial address, eliding scheme-default ports.
func hostPort(t routing.Target) string {
	if (t.Protocol == "http" && t.Port == 80) || (t.Protocol == "https" && t.Port == 443) {
		return t.Host
	}
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

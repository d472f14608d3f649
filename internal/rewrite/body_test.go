package rewrite

import (
	"bytes"
	"testing"

	"gw/internal/routing"
)

func rewriteSite() *routing.Site {
	return &routing.Site{
		Name:           "example",
		LocalHostname:  "gw.local",
		TargetHost:     "target.com",
		TargetProtocol: "http",
		TargetPort:     80,
		RewriteContent: true,
		ExplicitRewrites: []routing.ExplicitRewrite{
			{ExternalHost: "api.target.com", LocalPathPrefix: "/api"},
		},
		WildcardRewrites: []routing.WildcardRewrite{
			{RootDomain: "clients.target.com", LocalPathPrefix: "/g"},
		},
	}
}

func TestBodyRewrite_OpaqueContentTypeIsByteIdentical(t *testing.T) {
	t.Parallel()

	b := NewBodyRewriter(rewriteSite(), 8080, 8443)
	body := []byte(`binary-ish https://target.com/asset`)

	got := b.Rewrite(body, "image/png")
	if !bytes.Equal(got, body) {
		t.Fatalf("expected image/png body untouched, got %q", got)
	}
}

func TestBodyRewrite_HTMLReplacesDefaultOrigin(t *testing.T) {
	t.Parallel()

	b := NewBodyRewriter(rewriteSite(), 8080, 8443)

	got := string(b.Rewrite([]byte(`<a href="https://target.com/page">x</a> and http://target.com/q`), "text/html; charset=utf-8"))
	want := `<a href="http://gw.local:8080/page">x</a> and http://gw.local:8080/q`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBodyRewrite_ExplicitHostGainsPathPrefix(t *testing.T) {
	t.Parallel()

	b := NewBodyRewriter(rewriteSite(), 8080, 8443)

	got := string(b.Rewrite([]byte(`fetch("https://api.target.com/users/1")`), "application/json"))
	want := `fetch("http://gw.local:8080/api/users/1")`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBodyRewrite_ProtocolRelativeReferences(t *testing.T) {
	t.Parallel()

	b := NewBodyRewriter(rewriteSite(), 8080, 8443)

	got := string(b.Rewrite([]byte(`src="//api.target.com/app.js"`), "text/html"))
	want := `src="//gw.local:8080/api/app.js"`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBodyRewrite_WildcardPreservesScheme(t *testing.T) {
	t.Parallel()

	b := NewBodyRewriter(rewriteSite(), 8080, 8443)

	got := string(b.Rewrite([]byte(`"https://lens-pa.clients.target.com/v1"`), "text/javascript"))
	want := `"https://gw.local:8080/g--lens-pa/v1"`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBodyRewrite_WildcardWithoutSchemeUsesLocalProtocol(t *testing.T) {
	t.Parallel()

	b := NewBodyRewriter(rewriteSite(), 8080, 8443)

	got := string(b.Rewrite([]byte(`"//a.b.clients.target.com/x"`), "text/html"))
	want := `"http://gw.local:8080/g--a.b/x"`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBodyRewrite_DisabledSiteIsUntouched(t *testing.T) {
	t.Parallel()

	s := rewriteSite()
	s.RewriteContent = false
	b := NewBodyRewriter(s, 8080, 8443)

	body := []byte(`https://target.com`)
	if got := b.Rewrite(body, "text/html"); !bytes.Equal(got, body) {
		t.Fatalf("expected disabled rewriter to pass body through, got %q", got)
	}
}

func TestBodyRewrite_HTTPSFrontedSiteElidesDefaultPort(t *testing.T) {
	t.Parallel()

	s := rewriteSite()
	s.TargetProtocol = "https"
	b := NewBodyRewriter(s, 80, 443)

	got := string(b.Rewrite([]byte(`https://target.com/a //target.com/b`), "text/html"))
	want := `https://gw.local/a //gw.local/b`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRewriteLocation_AppliesEvenWhenContentRewriteDisabled(t *testing.T) {
	t.Parallel()

	s := rewriteSite()
	s.RewriteContent = false
	b := NewBodyRewriter(s, 8080, 8443)

	got := b.RewriteLocation("https://api.target.com/login")
	want := "http://gw.local:8080/api/login"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	got = b.RewriteLocation("http://target.com/next")
	want = "http://gw.local:8080/next"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestClassifyContent(t *testing.T) {
	t.Parallel()

	if ClassifyContent("text/html; charset=utf-8") != ContentHTML {
		t.Fatalf("expected text/html to classify as HTML")
	}
	if ClassifyContent("application/javascript") != ContentJavaScript {
		t.Fatalf("expected application/javascript to classify as JavaScript")
	}
	if ClassifyContent("application/octet-stream") != ContentOpaque {
		t.Fatalf("expected unknown content type to classify as opaque")
	}
	if ClassifyContent("") != ContentOpaque {
		t.Fatalf("expected empty content type to classify as opaque")
	}
}

package certs

import (
	"crypto/tls"
	"crypto/x509"
	"testing"
)

func TestLoadOrIssueRoot_CreatesThenReloadsSamePair(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	ca, err := LoadOrIssueRoot(dir)
	if err != nil {
		t.Fatalf("issue root: %v", err)
	}
	if !ca.cert.IsCA {
		t.Fatalf("expected a CA certificate")
	}

	again, err := LoadOrIssueRoot(dir)
	if err != nil {
		t.Fatalf("reload root: %v", err)
	}
	if !again.cert.Equal(ca.cert) {
		t.Fatalf("expected reload to return the persisted root, got a different certificate")
	}
}

func TestIssueLeaf_VerifiesAgainstRoot(t *testing.T) {
	t.Parallel()

	ca, err := LoadOrIssueRoot(t.TempDir())
	if err != nil {
		t.Fatalf("issue root: %v", err)
	}

	leaf, err := ca.IssueLeaf("example.localgateway.com")
	if err != nil {
		t.Fatalf("issue leaf: %v", err)
	}

	roots := x509.NewCertPool()
	roots.AddCert(ca.cert)
	_, err = leaf.Leaf.Verify(x509.VerifyOptions{
		Roots:     roots,
		DNSName:   "example.localgateway.com",
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	if err != nil {
		t.Fatalf("leaf does not verify against its root: %v", err)
	}
}

func TestStore_SNILookupAndFallback(t *testing.T) {
	t.Parallel()

	ca, err := LoadOrIssueRoot(t.TempDir())
	if err != nil {
		t.Fatalf("issue root: %v", err)
	}
	first, err := ca.IssueLeaf("first.local")
	if err != nil {
		t.Fatalf("issue leaf: %v", err)
	}
	second, err := ca.IssueLeaf("second.local")
	if err != nil {
		t.Fatalf("issue leaf: %v", err)
	}

	store := NewStore()
	store.Add("first.local", first)
	store.Add("second.local", second)

	got, err := store.GetCertificate(&tls.ClientHelloInfo{ServerName: "second.local"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Leaf.Subject.CommonName != "second.local" {
		t.Fatalf("expected second.local certificate, got %q", got.Leaf.Subject.CommonName)
	}

	// SNI names are case-insensitive.
	got, err = store.GetCertificate(&tls.ClientHelloInfo{ServerName: "First.Local"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Leaf.Subject.CommonName != "first.local" {
		t.Fatalf("expected first.local certificate, got %q", got.Leaf.Subject.CommonName)
	}

	// Unknown names fall back to the first certificate loaded so the
	// handshake still completes.
	got, err = store.GetCertificate(&tls.ClientHelloInfo{ServerName: "unknown.local"})
	if err != nil {
		t.Fatalf("fallback lookup: %v", err)
	}
	if got.Leaf.Subject.CommonName != "first.local" {
		t.Fatalf("expected fallback to first-loaded pair, got %q", got.Leaf.Subject.CommonName)
	}
}

func TestStore_EmptyStoreErrors(t *testing.T) {
	t.Parallel()

	_, err := NewStore().GetCertificate(&tls.ClientHelloInfo{ServerName: "x"})
	if err == nil {
		t.Fatalf("expected an error from an empty store")
	}
}

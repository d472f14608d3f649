package certs

import (
	"crypto/tls"
	"errors"
	"strings"
)

var errNoCertificates = errors.New("certificate store is empty")

// Store maps hostnames to certificate/key pairs for SNI dispatch. It is
// populated before the HTTPS listener starts and read-only afterward.
type Store struct {
	byName   map[string]*tls.Certificate
	fallback *tls.Certificate
}

func NewStore() *Store {
	return &Store{byName: make(map[string]*tls.Certificate)}
}

// Add registers a certificate for a hostname. The first certificate added
// becomes the fallback presented when a handshake names an unknown host,
// so the handshake completes (with a name mismatch) instead of failing.
func (s *Store) Add(hostname string, cert tls.Certificate) {
	c := cert
	if s.fallback == nil {
		s.fallback = &c
	}
	s.byName[strings.ToLower(hostname)] = &c
}

func (s *Store) Len() int {
	return len(s.byName)
}

// GetCertificate implements tls.Config.GetCertificate.
func (s *Store) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if cert, ok := s.byName[strings.ToLower(hello.ServerName)]; ok {
		return cert, nil
	}
	if s.fallback != nil {
		return s.fallback, nil
	}
	return nil, errNoCertificates
}

// TLSConfig returns a server TLS configuration backed by the store.
func (s *Store) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: s.GetCertificate,
	}
}

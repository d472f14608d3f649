package config

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gw/internal/routing"
)

// Site conf files are an INI-like format, one file per site:
//
//	[proxy]
//	name = Example
//	local = example.localgateway.com
//	target = example.com
//	protocol = https
//	port = 443
//	rewrite_content = true
//	cookie = CONSENT=YES+1
//
//	[rewrites]
//	api.example.com = /api
//	*.clients6.google.com = /g
//
//	[headers.remove]
//	content-security-policy
//
//	[headers.add]
//	x-served-by = gw
//
// A rewrites line whose host starts with "*." becomes a wildcard rewrite
// for that root domain; any other host is an explicit rewrite. Lines
// starting with # or ; are comments.

// LoadSites parses every *.conf file under dir in lexical order. A file
// that fails to parse is logged and skipped; the remaining files still
// load. The caller decides whether zero sites is fatal.
func LoadSites(dir string) ([]*routing.Site, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading sites dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".conf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	seen := map[string]string{} // local hostname -> source file
	var sites []*routing.Site
	for _, name := range names {
		path := filepath.Join(dir, name)
		site, err := ParseSiteFile(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}
		if prev, dup := seen[site.LocalHostname]; dup {
			// Last-loaded wins, in lexical file order.
			log.Printf("duplicate local hostname %s: %s overrides %s", site.LocalHostname, name, prev)
		}
		seen[site.LocalHostname] = name
		sites = append(sites, site)
	}
	return sites, nil
}

// ParseSiteFile parses one site conf file.
func ParseSiteFile(path string) (*routing.Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	defaultName := strings.TrimSuffix(filepath.Base(path), ".conf")
	site, err := parseSite(f, defaultName)
	if err != nil {
		return nil, err
	}
	site.SourceFile = path
	return site, nil
}

func parseSite(r io.Reader, defaultName string) (*routing.Site, error) {
	site := &routing.Site{
		Name:           defaultName,
		TargetProtocol: "http",
	}

	section := ""
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			switch section {
			case "proxy", "rewrites", "headers.remove", "headers.add":
			default:
				return nil, fmt.Errorf("line %d: unknown section [%s]", lineNo, section)
			}
			continue
		}

		key, value, hasValue := cutKeyValue(line)
		switch section {
		case "proxy":
			if !hasValue {
				return nil, fmt.Errorf("line %d: expected key = value", lineNo)
			}
			if err := applyProxyKey(site, key, value); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		case "rewrites":
			if !hasValue {
				return nil, fmt.Errorf("line %d: expected host = /prefix", lineNo)
			}
			if !strings.HasPrefix(value, "/") {
				return nil, fmt.Errorf("line %d: rewrite prefix %q must start with /", lineNo, value)
			}
			if root, ok := strings.CutPrefix(key, "*."); ok {
				site.WildcardRewrites = append(site.WildcardRewrites, routing.WildcardRewrite{
					RootDomain:      root,
					LocalPathPrefix: value,
				})
			} else {
				site.ExplicitRewrites = append(site.ExplicitRewrites, routing.ExplicitRewrite{
					ExternalHost:    key,
					LocalPathPrefix: value,
				})
			}
		case "headers.remove":
			site.HeadersToRemove = append(site.HeadersToRemove, key)
		case "headers.add":
			if !hasValue {
				return nil, fmt.Errorf("line %d: expected name = value", lineNo)
			}
			site.HeadersToAdd = append(site.HeadersToAdd, routing.HeaderValue{Name: key, Value: value})
		default:
			return nil, fmt.Errorf("line %d: %q outside any section", lineNo, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if site.LocalHostname == "" {
		return nil, fmt.Errorf("missing required key %q in [proxy]", "local")
	}
	if site.TargetHost == "" {
		return nil, fmt.Errorf("missing required key %q in [proxy]", "target")
	}
	if site.TargetPort == 0 {
		if site.TargetProtocol == "https" {
			site.TargetPort = 443
		} else {
			site.TargetPort = 80
		}
	}
	return site, nil
}

func cutKeyValue(line string) (key, value string, hasValue bool) {
	key, value, hasValue = strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	return key, value, hasValue
}

func applyProxyKey(site *routing.Site, key, value string) error {
	switch key {
	case "name":
		site.Name = value
	case "local":
		site.LocalHostname = value
	case "target":
		site.TargetHost = value
	case "protocol":
		if value != "http" && value != "https" {
			return fmt.Errorf("protocol must be http or https, got %q", value)
		}
		site.TargetProtocol = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid port %q", value)
		}
		site.TargetPort = port
	case "rewrite_content":
		site.RewriteContent = isTruthy(value)
	case "cookie":
		site.InjectedCookie = value
	default:
		return fmt.Errorf("unknown key %q in [proxy]", key)
	}
	return nil
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

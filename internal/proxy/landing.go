package proxy

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"gw/internal/routing"
)

// landingPage renders the "no route matched" page: a human-readable
// listing of every configured site. Rendered per request from a snapshot
// taken at startup; rendering must never panic, so a template failure
// degrades to a plaintext listing.
type landingPage struct {
	sites []landingSite
	body  []byte
}

type landingSite struct {
	Name     string
	URL      string
	Hostname string
	Target   string
}

func newLandingPage(sites []*routing.Site, httpPort, httpsPort int) *landingPage {
	lp := &landingPage{}
	for _, s := range sites {
		scheme, port := "http", httpPort
		if s.TargetProtocol == "https" {
			scheme, port = "https", httpsPort
		}
		hostPort := s.LocalHostname
		if (scheme == "http" && port != 80) || (scheme == "https" && port != 443) {
			hostPort = fmt.Sprintf("%s:%d", s.LocalHostname, port)
		}
		lp.sites = append(lp.sites, landingSite{
			Name:     s.Name,
			URL:      fmt.Sprintf("%s://%s/", scheme, hostPort),
			Hostname: s.LocalHostname,
			Target:   fmt.Sprintf("%s://%s", s.TargetProtocol, s.TargetHost),
		})
	}

	var buf bytes.Buffer
	if err := landingTemplate.Execute(&buf, lp.sites); err != nil {
		log.Printf("landing page template failed, falling back to plaintext: %v", err)
		buf.Reset()
		buf.WriteString("no route matched this hostname; configured sites:\n")
		for _, s := range lp.sites {
			fmt.Fprintf(&buf, "  %s  %s -> %s\n", s.Name, s.URL, s.Target)
		}
	}
	lp.body = buf.Bytes()
	return lp
}

func (lp *landingPage) render(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(lp.body)
}

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>gw gateway</title>
    <style>
      :root {
        --bg: #f6f4ef;
        --panel: #ffffff;
        --ink: #1d1f24;
        --muted: #5d6470;
        --accent: #0f766e;
        --border: #d8d3c6;
      }
      * { box-sizing: border-box; }
      body {
        margin: 0;
        font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, sans-serif;
        color: var(--ink);
        background:
          radial-gradient(circle at 90% 10%, #d6efe9 0%, transparent 40%),
          var(--bg);
      }
      .wrap {
        max-width: 860px;
        margin: 32px auto;
        padding: 0 18px;
      }
      .panel {
        background: var(--panel);
        border: 1px solid var(--border);
        border-radius: 14px;
        padding: 22px;
        box-shadow: 0 8px 24px rgba(0,0,0,0.08);
      }
      h1 {
        margin: 0 0 10px;
        font-size: 1.45rem;
        line-height: 1.2;
      }
      .meta { color: var(--muted); margin: 4px 0 18px; }
      table { width: 100%; border-collapse: collapse; }
      th, td {
        text-align: left;
        padding: 8px 10px;
        border-bottom: 1px solid var(--border);
      }
      th { color: var(--muted); font-weight: 600; }
      a { color: var(--accent); }
      code {
        font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, monospace;
        background: #f2f5f8;
        border: 1px solid #dde3ea;
        border-radius: 6px;
        padding: 2px 6px;
      }
    </style>
  </head>
  <body>
    <main class="wrap">
      <section class="panel">
        <h1>No site is configured for this hostname</h1>
        <p class="meta">These sites are served by this gateway:</p>
        <table>
          <tr><th>Site</th><th>Address</th><th>Upstream</th></tr>
          {{range .}}
            <tr>
              <td>{{.Name}}</td>
              <td><a href="{{.URL}}">{{.URL}}</a></td>
              <td><code>{{.Target}}</code></td>
            </tr>
          {{end}}
        </table>
      </section>
    </main>
  </body>
</html>`))

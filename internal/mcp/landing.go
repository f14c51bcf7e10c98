package mcp

import (
	"html/template"
	"net/http"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Cancer Literature Assistant</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: #f8fafc; color: #0f172a; margin: 0; padding: 3rem 1rem; }
  main { max-width: 640px; margin: 0 auto; }
  h1 { font-size: 1.6rem; margin-bottom: 0.25rem; }
  .subtitle { color: #475569; margin-top: 0; }
  h2 { font-size: 0.8rem; text-transform: uppercase; letter-spacing: 0.08em; color: #64748b; margin-top: 2rem; }
  code, pre { font-family: Menlo, monospace; font-size: 0.9rem; }
  pre { background: #0f172a; color: #e2e8f0; padding: 1rem; border-radius: 6px; overflow-x: auto; }
  li { margin: 0.3rem 0; }
</style>
</head>
<body>
<main>
  <h1>Cancer Literature Assistant</h1>
  <p class="subtitle">Question answering over {{.Chunks}} chunks of sampled PubMed abstracts on breast and lung cancer.</p>

  <h2>Tools</h2>
  <ul>
    <li><code>ask_question</code> answers from the top {{.TopK}} retrieved chunks</li>
    <li><code>search_abstracts</code> returns matching chunks with scores</li>
    <li><code>get_index_status</code> reports the index and its store</li>
  </ul>

  <h2>Endpoints</h2>
  <ul>
    <li><a href="/mcp">/mcp</a> MCP Streamable HTTP</li>
    <li><a href="/health">/health</a> index health check</li>
  </ul>

  <h2>Connect</h2>
  <pre>{"mcpServers": {"cancerlit": {"type": "http", "url": "{{.URL}}"}}}</pre>
</main>
</body>
</html>`))

// LandingInfo fills the landing page.
type LandingInfo struct {
	Chunks int
	TopK   int
	URL    string
}

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler(info LandingInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		landingTemplate.Execute(w, info)
	}
}

// Package docs serves the OpenAPI description of the HTTP API and a
// browsable reference page for it.
package docs

import (
	_ "embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	PagePath = "/api/docs"
	SpecPath = "/api/docs/openapi.yaml"

	referenceCDN    = "https://cdn.jsdelivr.net"
	referenceScript = referenceCDN + "/npm/@scalar/api-reference"
)

//go:embed openapi.yaml
var specYAML []byte

// pageCSP loosens the API's default-src 'none' policy just enough for the
// reference UI: its script and styles come from the CDN and it fetches the
// document from this origin.
var pageCSP = strings.Join([]string{
	"default-src 'none'",
	"script-src 'self' " + referenceCDN + " 'unsafe-inline'",
	"style-src 'self' " + referenceCDN + " 'unsafe-inline'",
	"font-src " + referenceCDN + " data:",
	"img-src 'self' data:",
	"connect-src 'self'",
	"frame-ancestors 'none'",
}, "; ")

var pageHTML = fmt.Sprintf(`<!DOCTYPE html>
<html lang="en"><head>
  <title>NewTube API Reference</title>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
</head><body>
  <script id="api-reference" data-url=%q></script>
  <script src=%q></script>
</body></html>`, SpecPath, referenceScript)

// Mount registers the reference page and the document on r.
func Mount(r chi.Router) {
	r.Get(PagePath, HandleDocs)
	r.Get(SpecPath, HandleSpec)
}

func HandleSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(specYAML)
}

func HandleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Security-Policy", pageCSP)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(pageHTML))
}

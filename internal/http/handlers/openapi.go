package handlers

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
)

//go:embed openapi.json
var openAPIDocument []byte

// openAPIPath is where the router mounts OpenAPIJSON.
const openAPIPath = "/v1/openapi.json"

const docsTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>%[1]s</title>
<style>body { margin: 0; } redoc { display: block; min-height: 100vh; }</style>
</head>
<body>
<redoc spec-url="%[2]s" expand-responses="200,202,402" required-props-first hide-hostname></redoc>
<script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
</body>
</html>`

var docsPage = renderDocsPage(openAPIDocument)

// renderDocsPage titles the Redoc page after the document's info block.
func renderDocsPage(doc []byte) []byte {
	var meta struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
	}
	title := "Cartoonify API"
	if err := json.Unmarshal(doc, &meta); err == nil && meta.Info.Title != "" {
		title = meta.Info.Title
		if meta.Info.Version != "" {
			title += " " + meta.Info.Version
		}
	}
	return []byte(fmt.Sprintf(docsTemplate, html.EscapeString(title), openAPIPath))
}

func (a *App) OpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(openAPIDocument)
}

func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(docsPage)
}

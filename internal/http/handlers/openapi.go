package handlers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
)

//go:embed openapi.json
var openAPIDocument []byte

// docsPage renders the Redoc viewer for the embedded document. Title and
// version come from the document's info block so the page never drifts.
var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>{{.Title}} {{.Version}}</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body { margin: 0; }
      redoc { display: block; height: 100vh; }
    </style>
  </head>
  <body>
    <redoc spec-url="{{.DocumentPath}}"></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`))

type docsInfo struct {
	Title        string
	Version      string
	DocumentPath string
}

func renderDocsPage(document []byte, documentPath string) ([]byte, error) {
	var doc struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
	}
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err := docsPage.Execute(&buf, docsInfo{
		Title:        doc.Info.Title,
		Version:      doc.Info.Version,
		DocumentPath: documentPath,
	})
	return buf.Bytes(), err
}

func (a *App) OpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}

func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	page, err := renderDocsPage(openAPIDocument, "/openapi.json")
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to render API docs")
		a.error(w, http.StatusInternalServerError, "docs unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

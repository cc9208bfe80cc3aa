// Package swagger serves the API document and a Swagger UI page for it.
package swagger

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

const (
	uiPath   = "/docs"
	yamlPath = "/docs/openapi.yml"
	jsonPath = "/docs/openapi.json"

	swaggerUIVersion = "5.29.3"
)

var pageTmpl = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui-bundle.js" crossorigin></script>
<script>
  window.onload = () => {
    window.ui = SwaggerUIBundle({
      url: '{{.DocURL}}',
      dom_id: '#swagger-ui',
      deepLinking: true,
    });
  };
</script>
</body>
</html>
`))

// Register mounts the Swagger UI on /docs, the raw document on
// /docs/openapi.yml and its JSON rendering on /docs/openapi.json.
func Register(r chi.Router, raw []byte, doc *openapi3.T) error {
	jsonDoc, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal openapi document: %w", err)
	}

	title := "API"
	if doc.Info != nil && doc.Info.Title != "" {
		title = doc.Info.Title
	}

	var page bytes.Buffer
	if err := pageTmpl.Execute(&page, map[string]string{
		"Title":   title,
		"Version": swaggerUIVersion,
		"DocURL":  yamlPath,
	}); err != nil {
		return fmt.Errorf("render swagger page: %w", err)
	}

	r.Get(uiPath, serveBytes("text/html; charset=utf-8", page.Bytes()))
	r.Get(yamlPath, serveBytes("application/yaml", raw))
	r.Get(jsonPath, serveBytes("application/json", jsonDoc))

	return nil
}

func serveBytes(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck
		w.Write(body)
	}
}

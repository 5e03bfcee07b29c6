// Package docs serves the embedded OpenAPI document behind the Swagger UI.
package docs

import (
	_ "embed"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openAPI []byte

const docPath = "/swagger/doc.json"

// DocHandler отдаёт сам документ.
func DocHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openAPI)
}

// UIHandler serves the Swagger UI pointed at the embedded document.
func UIHandler() http.HandlerFunc {
	return httpSwagger.Handler(httpSwagger.URL(docPath))
}

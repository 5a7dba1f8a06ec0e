package callback

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed pages/*.html
var pageFS embed.FS

var pages = template.Must(template.ParseFS(pageFS, "pages/*.html"))

const (
	successPage = "success.html"
	failurePage = "failure.html"
)

type pageData struct {
	Message string
}

// renderPage writes one of the embedded HTML pages with the given status code.
func renderPage(ctx context.Context, w http.ResponseWriter, status int, page, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, page, pageData{Message: message}); err != nil {
		slog.ErrorContext(ctx, "failed to render callback page", "page", page, "error", err)
	}
}

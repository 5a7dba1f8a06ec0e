package callback

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v3"
)

// Recovery recovers from panics in HTTP handlers, returns HTTP 500 to the client and
// reports the panic value to onPanic.
func Recovery(next http.Handler, onPanic func(ctx context.Context, v any)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				if onPanic != nil {
					onPanic(r.Context(), v)
				}
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Logging logs callback requests with method, path, status, and duration.
// The authorization code is redacted from the logged URL.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	requestLogger := httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS.Concise(true),

		// Explicitly prevent logging headers/body to avoid leaking sensitive data
		LogRequestHeaders:  []string{"User-Agent"},
		LogResponseHeaders: []string{},
		LogRequestBody:     nil,
		LogResponseBody:    nil,

		RecoverPanics: false, // use dedicated middleware
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logged := redactQuery(r, "code")
			requestLogger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				next.ServeHTTP(w, r)
			})).ServeHTTP(w, logged)
		})
	}
}

// redactQuery returns a shallow clone of r with the named query parameters masked.
func redactQuery(r *http.Request, keys ...string) *http.Request {
	query := r.URL.Query()
	changed := false
	for _, key := range keys {
		if query.Has(key) {
			query.Set(key, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return r
	}

	clone := r.Clone(r.Context())
	clone.URL.RawQuery = query.Encode()
	clone.RequestURI = clone.URL.RequestURI()
	return clone
}

// applyMiddlewares applies middlewares to a handler in the order they appear.
// The first middleware in the slice is the outermost (executes first).
func applyMiddlewares(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

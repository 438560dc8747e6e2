package middleware

import (
	"net/http"

	"github.com/bisicus/segreteriacanti-api/internal/loader"
)

// DataLoaderMiddleware attaches fresh loaders to the request context
func DataLoaderMiddleware(src loader.Sources) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := loader.WithLoaders(r.Context(), loader.New(src))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Chain wraps h so that the first middleware is the outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/omega-realm/scruffy/internal/logging"
)

// Recover turns a handler panic into an error envelope so one request never
// takes the process down.
func Recover(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					log.Error(r.Context(), "handler panic",
						"path", r.URL.Path,
						"panic", v,
						"stack", string(debug.Stack()),
					)
					writeError(w, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

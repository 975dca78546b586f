package httpapi

import "net/http"

// cors allows the configured single web origin to call the API with
// credentials, and short-circuits preflight OPTIONS requests. No router
// library is otherwise exercised by this narrow, fixed surface, so the
// middleware is hand-rolled rather than pulled in from a framework.
func cors(webOrigin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", webOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

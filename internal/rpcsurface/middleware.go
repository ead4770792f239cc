package rpcsurface

import "net/http"

// securityHeadersMiddleware strips version-revealing response headers
// before any handler writes to the wire — the surface should not leak
// its Go runtime or framework identity to a caller.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapper := &headerRemovalWriter{ResponseWriter: w}
		next.ServeHTTP(wrapper, r)
		wrapper.writeSecurityHeaders()
	})
}

type headerRemovalWriter struct {
	http.ResponseWriter
	written bool
}

func (w *headerRemovalWriter) WriteHeader(statusCode int) {
	w.writeSecurityHeaders()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *headerRemovalWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.writeSecurityHeaders()
	}
	return w.ResponseWriter.Write(b)
}

func (w *headerRemovalWriter) writeSecurityHeaders() {
	if w.written {
		return
	}
	w.written = true
	h := w.ResponseWriter.Header()
	h.Del("X-Powered-By")
	h.Set("Server", "agentcompanyd")
}

// Flush implements http.Flusher so the wrapper stays transparent to
// streaming handlers.
func (w *headerRemovalWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

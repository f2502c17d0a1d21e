package linkshortener

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

type Server struct {
	index  Index
	logger *zap.Logger
}

// NewServer returns a new Server using index i and logger l.
// If l is nil, nothing will be logged.
func NewServer(i Index, l *zap.Logger) *Server {
	if l == nil {
		l = zap.NewNop()
	}

	return &Server{
		index:  i,
		logger: l,
	}
}

// SetupRoutes registers the shorten, resolve, list and metrics handlers on the router.
func (s *Server) SetupRoutes(r chi.Router) {
	r.Get("/", s.list)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/http://*", s.shorten)
	r.Get("/https://*", s.shorten)
	r.Get("/{key}", func(w http.ResponseWriter, r *http.Request) {
		// we proxy the call to s.resolve through this "middleware" to resolve the key URL parameter
		s.resolve(w, r, chi.URLParam(r, "key"))
	})
}

// writeShortLink writes a short link as an absolute URL to the client.
func writeShortLink(w http.ResponseWriter, r *http.Request, key string) {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	fmt.Fprintf(w, "%s://%s/%s\n", scheme, r.Host, key)
}

// writeError writes a printf-formatted response using the specified status code to the client.
func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, format+"\n", args...)
}

// shorten handles requests with an absolute URL as request path. shorten adds the URL to the index,
// then responds to the client with an absolute short URL which the client can use instead in the future.
// The URL is taken as-is: there is no validation or normalization.
func (s *Server) shorten(w http.ResponseWriter, r *http.Request) {
	longURL := r.URL.RequestURI() // r.URL.RequestURI() is e.g. /http://example.com/
	longURL = longURL[1:]         // cut off leading slash

	key, err := s.index.Shorten(longURL)
	if err != nil {
		s.logger.Error("could not shorten URL", zap.String("url", longURL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error adding URL to index: %v", err)
		return
	}

	s.logger.Info("shortened", zap.String("url", longURL), zap.String("key", key))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	writeShortLink(w, r, key)
}

// resolve looks for a URL mapped to key in the index. If successful, the request is redirected to that URL.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request, key string) {
	longURL, err := s.index.Expand(key)
	if err != nil {
		if xerrors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown link key %s", key)
			return
		}
		writeError(w, http.StatusInternalServerError, "error resolving key: %v", err)
		return
	}

	s.logger.Debug("resolved", zap.String("key", key), zap.String("url", longURL))

	http.Redirect(w, r, longURL, http.StatusFound)
}

// list writes all mappings as "key -> URL" lines.
func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, e := range s.index.Entries() {
		fmt.Fprintf(w, "%s -> %s\n", e.Key, e.LongURL)
	}
}

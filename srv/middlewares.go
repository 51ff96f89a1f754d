package srv

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/c3p0-box/translations/locale"
)

// Middleware represents an HTTP middleware function that takes an http.Handler
// and returns a new http.Handler wrapping it.
type Middleware func(next http.Handler) http.Handler

// MiddlewareChain combines multiple middleware functions into a single middleware.
// The first middleware in the list is the outermost wrapper.
//
//	chain := MiddlewareChain(Logging, Recover)
//	handler := chain(mux) // Logging(Recover(mux))
func MiddlewareChain(m ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(m) - 1; i >= 0; i-- {
			next = m[i](next)
		}
		return next
	}
}

// MiddlewareWriter wraps an http.ResponseWriter and captures the status code.
type MiddlewareWriter struct {
	http.ResponseWriter
	StatusCode  int
	wroteHeader bool
}

// WriteHeader captures the status code and calls the underlying ResponseWriter's WriteHeader.
// The status code defaults to http.StatusOK.
func (w *MiddlewareWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.StatusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *MiddlewareWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Logging logs every request with its status, method, path, response
// language, user agent and remote address.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := &MiddlewareWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(mw, r)

		attrs := []any{
			slog.String("name", "srv.Logging"),
			slog.Int("status", mw.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("user-agent", r.UserAgent()),
			slog.String("remote-addr", r.RemoteAddr),
		}
		if lang := mw.Header().Get("Content-Language"); lang != "" {
			attrs = append(attrs, slog.String("locale", lang))
		}
		slog.With(attrs...).Info("request completed")
	})
}

// Recover recovers from panics during request processing, logs them and
// answers 500 Internal Server Error when nothing was written yet.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := &MiddlewareWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				slog.With(
					slog.String("name", "srv.Recover"),
					slog.String("path", r.URL.Path),
					slog.String("error", fmt.Sprint(err)),
				).Error("recovered from panic")
				if !mw.wroteHeader {
					http.Error(mw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}
		}()
		next.ServeHTTP(mw, r)
	})
}

// Locale negotiates the request locale from the Accept-Language header among
// supported, falling back to fallback, and stores it in the request context
// with locale.WithLocale. The chosen locale is echoed in Content-Language.
func Locale(fallback locale.Locale, supported ...locale.Locale) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := locale.Negotiate(r.Header.Get("Accept-Language"), fallback, supported...)
			if !l.IsZero() {
				w.Header().Set("Content-Language", l.Tag().String())
			}
			w.Header().Add("Vary", "Accept-Language")
			next.ServeHTTP(w, r.WithContext(locale.WithLocale(r.Context(), l)))
		})
	}
}

// CORSConfig defines the configuration for CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists the origins that may access the resource. '*' and '?'
	// wildcards are supported. Default []string{"*"}.
	AllowOrigins []string
	// AllowMethods lists the methods allowed in preflight responses.
	// Default []string{"GET", "HEAD"}.
	AllowMethods []string
	// AllowHeaders lists the request headers allowed in preflight responses.
	// The requested headers are echoed when empty.
	AllowHeaders []string
	// MaxAge is the preflight cache duration in seconds; 0 omits the header.
	MaxAge int
}

// DefaultCORSConfig allows read-only access from any origin.
var DefaultCORSConfig = CORSConfig{
	AllowOrigins: []string{"*"},
	AllowMethods: []string{http.MethodGet, http.MethodHead},
}

// CORS returns a Cross-Origin Resource Sharing middleware. The preview
// endpoints are read-only, so credentials are never allowed.
func CORS(config CORSConfig) Middleware {
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = DefaultCORSConfig.AllowOrigins
	}
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = DefaultCORSConfig.AllowMethods
	}

	anyOrigin := false
	var patterns []*regexp.Regexp
	for _, origin := range config.AllowOrigins {
		if origin == "*" {
			anyOrigin = true
			continue
		}
		p := regexp.QuoteMeta(origin)
		p = strings.ReplaceAll(p, `\*`, ".*")
		p = strings.ReplaceAll(p, `\?`, ".")
		if re, err := regexp.Compile("^" + p + "$"); err == nil {
			patterns = append(patterns, re)
		}
	}

	allowMethods := strings.Join(config.AllowMethods, ", ")
	allowHeaders := strings.Join(config.AllowHeaders, ", ")
	maxAge := ""
	if config.MaxAge > 0 {
		maxAge = strconv.Itoa(config.MaxAge)
	}

	allowed := func(origin string) string {
		if anyOrigin {
			return "*"
		}
		for _, re := range patterns {
			if re.MatchString(origin) {
				return origin
			}
		}
		return ""
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")
			origin := r.Header.Get("Origin")
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			allowOrigin := ""
			if origin != "" {
				allowOrigin = allowed(origin)
			}
			if allowOrigin == "" {
				if preflight {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			if !preflight {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Methods", allowMethods)
			if allowHeaders != "" {
				w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			} else if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				w.Header().Set("Access-Control-Allow-Headers", requested)
			}
			if maxAge != "" {
				w.Header().Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

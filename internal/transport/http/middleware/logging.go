package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const redacted = "REDACTED"

// sensitiveQueryParams never reach the request log in clear text.
var sensitiveQueryParams = []string{"access_token"}

// RequestLogger is chi's request logger with credentials scrubbed from the
// logged URI.
func RequestLogger(logger chimw.LoggerInterface) func(http.Handler) http.Handler {
	return chimw.RequestLogger(&redactingFormatter{
		next: &chimw.DefaultLogFormatter{Logger: logger, NoColor: true},
	})
}

type redactingFormatter struct {
	next chimw.LogFormatter
}

func (f *redactingFormatter) NewLogEntry(r *http.Request) chimw.LogEntry {
	return f.next.NewLogEntry(redactRequest(r))
}

// redactRequest returns a shallow copy of r for logging; the request served
// downstream keeps its original URL.
func redactRequest(r *http.Request) *http.Request {
	query := r.URL.Query()
	found := false
	for _, key := range sensitiveQueryParams {
		if query.Has(key) {
			query.Set(key, redacted)
			found = true
		}
	}
	if !found {
		return r
	}

	u := *r.URL
	u.RawQuery = query.Encode()
	logged := r.WithContext(r.Context())
	logged.URL = &u
	logged.RequestURI = u.RequestURI()
	return logged
}

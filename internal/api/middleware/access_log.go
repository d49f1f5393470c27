package middleware

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// accessLogEntry is one JSON line per request. Query strings are never
// logged since they carry user questions.
type accessLogEntry struct {
	Timestamp      string  `json:"ts"`
	Method         string  `json:"method"`
	Path           string  `json:"path"`
	Route          string  `json:"route,omitempty"`
	Status         int     `json:"status"`
	Bytes          int     `json:"bytes"`
	DurationMS     float64 `json:"duration_ms"`
	RequestID      string  `json:"request_id,omitempty"`
	ConversationID string  `json:"conversation_id,omitempty"`
	RemoteAddr     string  `json:"remote_addr,omitempty"`
	UserAgent      string  `json:"user_agent,omitempty"`
}

// responseRecorder captures status and size for the access log and Sentry.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *responseRecorder) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// AccessLog writes a JSON line for every request once the handler returns.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		entry := accessLogEntry{
			Timestamp:      start.UTC().Format(time.RFC3339Nano),
			Method:         r.Method,
			Path:           r.URL.Path,
			Status:         rec.statusOrOK(),
			Bytes:          rec.bytes,
			DurationMS:     float64(time.Since(start).Microseconds()) / 1000.0,
			RequestID:      GetRequestID(r.Context()),
			ConversationID: rec.Header().Get(ConversationIDHeader),
			RemoteAddr:     clientIP(r),
			UserAgent:      r.UserAgent(),
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			entry.Route = rctx.RoutePattern()
		}

		payload, err := json.Marshal(entry)
		if err != nil {
			log.Printf("access log: %v", err)
			return
		}
		log.Println(string(payload))
	})
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

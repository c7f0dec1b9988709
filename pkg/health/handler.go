package health

import (
	"encoding/json"
	"net/http"
	"strings"
)

// LivenessHandler always responds OK while the process can serve HTTP.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusOK, &Response{Status: StatusHealthy})
	}
}

// ReadinessHandler runs checks on every request and responds 503 if a
// required check fails. Failing Optional checks still answer 200.
func ReadinessHandler(checks Checks, opts ...Option) http.HandlerFunc {
	p := newProber(checks, opts...)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := p.run(r.Context())

		status := http.StatusOK
		if resp.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		respond(w, r, status, resp)
	}
}

func respond(w http.ResponseWriter, r *http.Request, status int, resp *Response) {
	w.Header().Set("Cache-Control", "no-store")

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	switch {
	case status != http.StatusOK:
		_, _ = w.Write([]byte("Service Unavailable"))
	case resp.Status == StatusDegraded:
		_, _ = w.Write([]byte("OK (degraded)"))
	default:
		_, _ = w.Write([]byte("OK"))
	}
}

// wantsJSON checks the format query parameter first, then Accept.
func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

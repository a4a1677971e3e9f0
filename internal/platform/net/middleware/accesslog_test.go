package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectors/internal/platform/net/middleware"
)

func TestAccessLogZerolog_PassesResponseThrough(t *testing.T) {
	cases := []struct {
		name   string
		opt    middleware.AccessLogOptions
		path   string
		h      http.HandlerFunc
		status int
		body   string
	}{
		{
			name: "explicit status",
			path: "/status",
			h: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = io.WriteString(w, "ok")
			},
			status: http.StatusCreated, body: "ok",
		},
		{
			name: "implicit 200 with several writes",
			path: "/status",
			h: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("cycle "))
				_, _ = w.Write([]byte("done"))
			},
			status: http.StatusOK, body: "cycle done",
		},
		{
			name: "slow",
			opt:  middleware.AccessLogOptions{Slow: time.Nanosecond},
			path: "/status",
			h: func(w http.ResponseWriter, _ *http.Request) {
				time.Sleep(50 * time.Microsecond)
				_, _ = io.WriteString(w, "slow")
			},
			status: http.StatusOK, body: "slow",
		},
		{
			name: "quiet probe failing",
			opt:  middleware.AccessLogOptions{Quiet: []string{"/healthz"}},
			path: "/healthz",
			h: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "no write at all",
			path:   "/readyz",
			h:      func(http.ResponseWriter, *http.Request) {},
			status: http.StatusOK,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			middleware.AccessLogZerolog(c.opt)(c.h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, c.path, nil))
			if rr.Code != c.status || rr.Body.String() != c.body {
				t.Fatalf("got %d %q, want %d %q", rr.Code, rr.Body.String(), c.status, c.body)
			}
		})
	}
}

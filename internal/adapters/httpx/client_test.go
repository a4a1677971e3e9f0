package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	perr "connectors/internal/platform/errors"
)

func newTestClient(t *testing.T, srv *httptest.Server, o Options) (*Client, *[]time.Duration) {
	t.Helper()
	o.BaseURL = srv.URL
	c := New(o)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestGetJSON_SendsAuthAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth = %q", got)
		}
		if got := r.Header.Get("x-xdr-auth-id"); got != "7" {
			t.Errorf("extra header = %q", got)
		}
		if got := r.URL.Query().Get("offset"); got != "100" {
			t.Errorf("offset = %q", got)
		}
		_, _ = io.WriteString(w, `{"total": 3, "items": [{"id": 1}]}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, Options{Token: "tok", Headers: map[string]string{"x-xdr-auth-id": "7"}})
	var out struct {
		Total int              `json:"total"`
		Items []map[string]any `json:"items"`
	}
	if err := c.GetJSON(context.Background(), "/alerts", url.Values{"offset": {"100"}}, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Total != 3 || len(out.Items) != 1 {
		t.Fatalf("out = %+v", out)
	}
}

func TestDo_RetriesWithRetryAfterThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = io.WriteString(w, `{}`)
		}
	}))
	defer srv.Close()

	c, slept := newTestClient(t, srv, Options{RetryBase: 100 * time.Millisecond})
	if err := c.GetJSON(context.Background(), "/x", nil, &map[string]any{}); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	want := []time.Duration{2 * time.Second, 200 * time.Millisecond}
	if len(*slept) != 2 || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Fatalf("slept = %v, want %v", *slept, want)
	}
}

func TestDo_ExhaustedRetriesAreTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, slept := newTestClient(t, srv, Options{MaxRetries: 2})
	_, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	if !perr.IsTransient(err) {
		t.Fatalf("err = %v, want transient", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.HTTPStatus() != http.StatusServiceUnavailable {
		t.Fatalf("want StatusError 503, got %v", err)
	}
	if len(*slept) != 2 {
		t.Fatalf("retries = %d", len(*slept))
	}
}

func TestDo_ClientErrorIsTransientWithoutRetry(t *testing.T) {
	cases := []struct {
		status int
		code   perr.ErrorCode
	}{
		{http.StatusBadRequest, perr.ErrorCodeInvalidArgument},
		{http.StatusUnauthorized, perr.ErrorCodeUnauthorized},
		{http.StatusForbidden, perr.ErrorCodeUnauthorized},
		{http.StatusNotFound, perr.ErrorCodeNotFound},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, "bad key")
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv, Options{})
			var out map[string]any
			err := c.GetJSON(context.Background(), "/x", nil, &out)
			if perr.Classify(err) != perr.ClassTransient || perr.CodeOf(err) != tc.code {
				t.Fatalf("err = %v class %v", err, perr.Classify(err))
			}
			if calls.Load() != 1 {
				t.Fatalf("calls = %d", calls.Load())
			}
		})
	}
}

func TestDo_UndecodableBodyIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, Options{})
	var out map[string]any
	err := c.GetJSON(context.Background(), "/x", nil, &out)
	if perr.Classify(err) != perr.ClassFatal || perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("err = %v", err)
	}
}

func TestPostJSON_EncodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodPost || string(b) != `{"a":1}` || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("method %s body %s", r.Method, b)
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, Options{})
	var out struct{ OK bool }
	if err := c.PostJSON(context.Background(), "/batch", map[string]int{"a": 1}, &out); err != nil || !out.OK {
		t.Fatalf("PostJSON = %v %+v", err, out)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	c := New(Options{RetryBase: time.Second, RetryCap: 5 * time.Second})
	if got := c.backoff(0); got != time.Second {
		t.Fatalf("backoff(0) = %v", got)
	}
	if got := c.backoff(10); got != 5*time.Second {
		t.Fatalf("backoff(10) = %v", got)
	}
	if got := c.backoff(64); got != 5*time.Second {
		t.Fatalf("backoff(64) = %v", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := parseRetryAfter("3", now); got != 3*time.Second {
		t.Fatalf("seconds = %v", got)
	}
	if got := parseRetryAfter(now.Add(10*time.Second).Format(http.TimeFormat), now); got != 10*time.Second {
		t.Fatalf("date = %v", got)
	}
	if got := parseRetryAfter("soon", now); got != 0 {
		t.Fatalf("junk = %v", got)
	}
}

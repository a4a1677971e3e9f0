package http

import (
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func header(name string) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
			w.Header().Set(name, "1")
			next.ServeHTTP(w, req)
		})
	}
}

func TestAdaptChi_RootGroupRouteAndMux(t *testing.T) {
	t.Parallel()

	m := chi.NewRouter()
	r := AdaptChi(m)
	r.Use(header("X-Root"))

	r.Get("/root", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { _, _ = w.Write([]byte("root")) })
	r.Head("/root", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusNoContent) })

	r.Group(func(gr Router) {
		gr.Use(header("X-Group"))
		if gr.Mux() != m {
			t.Fatalf("group Mux() should serve the root mux")
		}
		gr.Get("/g/ping", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { _, _ = w.Write([]byte("g")) })
	})

	r.Route("/api", func(sr Router) {
		sr.Use(header("X-Sub"))
		sr.Get("/v", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { _, _ = w.Write([]byte("v")) })
		sr.Options("/v", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusAccepted) })
	})

	r.Handle("/raw", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusTeapot)
	}))

	cases := []struct {
		method, path string
		code         int
		body         string
		headers      []string
	}{
		{"GET", "/root", 200, "root", []string{"X-Root"}},
		{"HEAD", "/root", 204, "", []string{"X-Root"}},
		{"GET", "/g/ping", 200, "g", []string{"X-Root", "X-Group"}},
		{"GET", "/api/v", 200, "v", []string{"X-Root", "X-Sub"}},
		{"OPTIONS", "/api/v", 202, "", []string{"X-Sub"}},
		{"GET", "/raw", 418, "", nil},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(c.method, c.path, nil))
		if rec.Code != c.code {
			t.Fatalf("%s %s code = %d, want %d", c.method, c.path, rec.Code, c.code)
		}
		if c.body != "" && rec.Body.String() != c.body {
			t.Fatalf("%s %s body = %q", c.method, c.path, rec.Body.String())
		}
		for _, h := range c.headers {
			if rec.Header().Get(h) != "1" {
				t.Fatalf("%s %s missing header %s", c.method, c.path, h)
			}
		}
	}

	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest("POST", "/root", nil))
	if rec.Code != stdhttp.StatusMethodNotAllowed {
		t.Fatalf("POST should not be routed, got %d", rec.Code)
	}
}

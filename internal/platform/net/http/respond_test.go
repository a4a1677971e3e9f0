package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	perr "connectors/internal/platform/errors"
	pnet "connectors/internal/platform/net"
	phttp "connectors/internal/platform/net/http"

	"github.com/goccy/go-json"
)

func reqWithReqID(method, path, rid string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	return req.WithContext(pnet.WithRequestID(req.Context(), rid))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.JSON(rec, http.StatusTeapot, map[string]any{"k": "v"})
	if rec.Code != http.StatusTeapot {
		t.Fatalf("JSON status: expected 418, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content-type = %q", ct)
	}
}

func TestRespondOK(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.RespondOK(rec, reqWithReqID("GET", "/status", "rid-1"), map[string]string{"state": "idle"})
	if rec.Code != http.StatusOK {
		t.Fatalf("RespondOK code: %d", rec.Code)
	}
	env := decode(t, rec)
	if env.StatusCode != 200 || env.Status != "OK" || env.RequestID != "rid-1" {
		t.Fatalf("bad envelope: %+v", env)
	}
	m, ok := env.Data.(map[string]any)
	if !ok || m["state"] != "idle" {
		t.Fatalf("data = %#v", env.Data)
	}
}

func TestRespondStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.RespondStatus(rec, reqWithReqID("GET", "/healthz", ""), http.StatusServiceUnavailable, "stopped")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d", rec.Code)
	}
	if env := decode(t, rec); env.Data != "stopped" || env.RequestID != "" {
		t.Fatalf("bad envelope: %+v", env)
	}
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		code  int
		field string
	}{
		{"unavailable", perr.Unavailablef("store down"), http.StatusServiceUnavailable, ""},
		{"not found", perr.New(perr.ErrorCodeNotFound, "no such stream"), http.StatusNotFound, ""},
		{"validation", perr.WithField(perr.New(perr.ErrorCodeValidation, "bad"), "CONNECTOR_FREQUENCY"), http.StatusBadRequest, "CONNECTOR_FREQUENCY"},
		{"foreign", http.ErrHandlerTimeout, http.StatusInternalServerError, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			phttp.RespondError(rec, reqWithReqID("GET", "/status", "rid-e"), c.err)
			if rec.Code != c.code {
				t.Fatalf("code = %d, want %d", rec.Code, c.code)
			}
			env := decode(t, rec)
			if env.StatusCode != c.code || env.Error == "" || env.Field != c.field || env.RequestID != "rid-e" {
				t.Fatalf("bad envelope: %+v", env)
			}
			if env.Code != perr.CodeOf(c.err) {
				t.Fatalf("code = %v, want %v", env.Code, perr.CodeOf(c.err))
			}
		})
	}
}

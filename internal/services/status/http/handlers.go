// Package http provides the status endpoints
package http

import (
	stdhttp "net/http"

	phttp "connectors/internal/platform/net/http"
	"connectors/internal/services/status/service"
)

type handlers struct {
	svc *service.Svc
}

// Register mounts /healthz, /readyz and /status
func Register(r phttp.Router, svc *service.Svc) {
	h := &handlers{svc: svc}
	r.Get("/healthz", h.health)
	r.Head("/healthz", h.health)
	r.Get("/readyz", h.ready)
	r.Get("/status", h.status)
}

func (h *handlers) health(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	body := h.svc.Health()
	status := stdhttp.StatusOK
	if !body.OK {
		status = stdhttp.StatusServiceUnavailable
	}
	phttp.RespondStatus(w, r, status, body)
}

func (h *handlers) ready(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	body := h.svc.Ready(r.Context())
	status := stdhttp.StatusOK
	if body.Status != "ok" {
		status = stdhttp.StatusServiceUnavailable
	}
	phttp.RespondStatus(w, r, status, body)
}

func (h *handlers) status(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	rep, err := h.svc.Report(r.Context())
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondOK(w, r, rep)
}

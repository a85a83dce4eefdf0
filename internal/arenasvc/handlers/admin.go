package handlers

import (
	"net/http"

	"github.com/avvvet/arenax-services/internal/arenasvc/service"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Admin.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "stats", st)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Admin.Reset(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "All data reset successfully", report)
}

// Reconcile closes open attempts left behind by interrupted settlements.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Settlement.Reconcile(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "reconciled", map[string]int{"closed": n})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if !h.decode(w, r, &req) {
		return
	}

	// Verifier runs on this route without Authenticator, so a bad or absent token just means anonymous
	token, _, err := jwtauth.FromContext(r.Context())
	authenticated := err == nil && token != nil

	session, err := h.svc.Auth.Register(r.Context(), req, authenticated)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "admin registered", session)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.svc.Auth.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "logged in", session)
}

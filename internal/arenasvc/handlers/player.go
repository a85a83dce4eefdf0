package handlers

import (
	"net/http"

	"github.com/avvvet/arenax-services/internal/arenasvc/service"
	"github.com/go-chi/chi"
)

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.svc.Ledger.ListPlayers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "players", players)
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Ledger.GetPlayer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "player", p)
}

func (h *Handler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Department string `json:"department"`
		Contact    string `json:"contact"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.svc.Ledger.CreatePlayer(r.Context(), req.Name, req.Department, req.Contact)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "player created", p)
}

func (h *Handler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	var req service.PlayerUpdate
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.svc.Ledger.UpdatePlayer(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "player updated", p)
}

func (h *Handler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ledger.DeletePlayer(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Player deleted successfully", nil)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.svc.Ledger.Leaderboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "leaderboard", board)
}

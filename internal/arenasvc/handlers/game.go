package handlers

import (
	"net/http"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/avvvet/arenax-services/internal/arenasvc/service"
	"github.com/go-chi/chi"
)

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.svc.Catalog.ListGames(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "games", games)
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.Catalog.ListTemplates(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "templates", templates)
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Catalog.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "game", g)
}

func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Catalog.GetInstance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "game instance", g)
}

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req service.TemplateInput
	if !h.decode(w, r, &req) {
		return
	}

	g, err := h.svc.Catalog.CreateTemplate(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "game created", g)
}

func (h *Handler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		service.TemplateUpdate
		Force bool `json:"force"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	g, err := h.svc.Catalog.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), req.TemplateUpdate, req.Force)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "game updated", g)
}

func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Game deleted successfully", nil)
}

func (h *Handler) InitializeGames(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Catalog.Seed(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Games initialized successfully", report)
}

func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameID    string   `json:"gameId"`
		PlayerIDs []string `json:"playerIds"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	g, err := h.svc.Attempts.StartAttempt(r.Context(), req.GameID, req.PlayerIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "game started", g)
}

func (h *Handler) RecordResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameInstanceID string                `json:"gameInstanceId"`
		Results        []models.PlayerResult `json:"results"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	g, players, err := h.svc.Settlement.RecordResults(r.Context(), req.GameInstanceID, req.Results)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "results recorded", map[string]interface{}{
		"game":    g,
		"players": players,
	})
}

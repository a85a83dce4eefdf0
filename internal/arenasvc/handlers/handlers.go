package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/avvvet/arenax-services/internal/arenasvc/metrics"
	"github.com/avvvet/arenax-services/internal/arenasvc/service"
	sockethandlers "github.com/avvvet/arenax-services/internal/socketsvc/handlers"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Services groups what the HTTP layer calls into.
type Services struct {
	Ledger     *service.LedgerService
	Catalog    *service.CatalogService
	Attempts   *service.AttemptEngine
	Settlement *service.SettlementProcessor
	Admin      *service.AdminService
	Auth       *service.AuthService
}

type Handler struct {
	svc       Services
	tokenAuth *jwtauth.JWTAuth
	socket    *sockethandlers.Handler
	metrics   *metrics.Metrics
	service   string
}

func NewHandler(svc Services, tokenAuth *jwtauth.JWTAuth, socket *sockethandlers.Handler, m *metrics.Metrics, serviceName string) *Handler {
	return &Handler{
		svc:       svc,
		tokenAuth: tokenAuth,
		socket:    socket,
		metrics:   m,
		service:   serviceName,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, code int, message string, data interface{}) {
	h.CreateResponse(w, Response{Message: message, Code: code, Data: data})
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrEligibility),
		errors.Is(err, service.ErrState):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrAuth):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Errorf("%s %s: %s", r.Method, r.URL.Path, err)
		msg = "internal server error"
	}
	h.CreateResponse(w, Response{Message: msg, Code: code, Error: http.StatusText(code)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.CreateResponse(w, Response{
			Message: "invalid request body",
			Code:    http.StatusBadRequest,
			Error:   err.Error(),
		})
		return false
	}
	return true
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, h.service+" service is running", nil)
}

package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"gatepass-backend/internal/security"
	"gatepass-backend/internal/service"
)

// Server wires the HTTP surface: operator login, pass issuance, the
// checkpoint scan endpoint, and the roster views.
type Server struct {
	issuerSvc    service.IssuerService
	validatorSvc service.ValidatorService
	rosterSvc    service.RosterService
	tokenManager security.TokenManager
	operators    *security.OperatorRegistry
	rosterWS     http.Handler
}

type Dependencies struct {
	Issuer       service.IssuerService
	Validator    service.ValidatorService
	Roster       service.RosterService
	TokenManager security.TokenManager
	Operators    *security.OperatorRegistry
	RosterWS     http.Handler
}

func NewServer(deps Dependencies) *Server {
	return &Server{
		issuerSvc:    deps.Issuer,
		validatorSvc: deps.Validator,
		rosterSvc:    deps.Roster,
		tokenManager: deps.TokenManager,
		operators:    deps.Operators,
		rosterWS:     deps.RosterWS,
	}
}

// Router builds the API routes. Login and liveness are public; everything
// else requires an operator token.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/visits", s.handleCreateVisit).Methods(http.MethodPost)
	authed.HandleFunc("/visits", s.handleListVisits).Methods(http.MethodGet)
	authed.HandleFunc("/visits/{id}", s.handleGetVisit).Methods(http.MethodGet)
	authed.HandleFunc("/visits/{id}/qr.png", s.handleVisitQR).Methods(http.MethodGet)
	authed.HandleFunc("/checkpoint/scan", s.handleScan).Methods(http.MethodPost)

	if s.rosterWS != nil {
		// The websocket handler authenticates via query token itself since
		// browsers cannot set headers on websocket upgrades.
		api.Handle("/roster/ws", s.rosterWS).Methods(http.MethodGet)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

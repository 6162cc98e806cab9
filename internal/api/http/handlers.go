package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/pass"
	"gatepass-backend/internal/repository"
	"gatepass-backend/internal/security"
	"gatepass-backend/internal/service"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	op, err := s.operators.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown operator or wrong password")
		return
	}

	token, err := s.tokenManager.GenerateAccessToken(op.Username, op.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Role: op.Role})
}

func (s *Server) handleCreateVisit(w http.ResponseWriter, r *http.Request) {
	var req service.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	visit, err := s.issuerSvc.Issue(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, visit)
}

func (s *Server) handleListVisits(w http.ResponseWriter, r *http.Request) {
	filter := repository.VisitFilter{}
	if date := r.URL.Query().Get("date"); date != "" {
		if _, err := time.Parse(domain.VisitDateLayout, date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		filter.VisitDate = date
	}

	visits, err := s.rosterSvc.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": visits})
}

func (s *Server) handleGetVisit(w http.ResponseWriter, r *http.Request) {
	visit, ok := s.fetchVisit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, visit)
}

func (s *Server) handleVisitQR(w http.ResponseWriter, r *http.Request) {
	visit, ok := s.fetchVisit(w, r)
	if !ok {
		return
	}

	payload, err := pass.Encode(visit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode pass")
		return
	}
	png, err := pass.Render(payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="visitor-qr-`+visit.ID+`.png"`)
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

type scanRequest struct {
	Payload string `json:"payload"`
	// Today overrides the server's current UTC date; used by checkpoints in
	// other time zones.
	Today string `json:"today,omitempty"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	today := req.Today
	if today == "" {
		today = time.Now().UTC().Format(domain.VisitDateLayout)
	} else if _, err := time.Parse(domain.VisitDateLayout, today); err != nil {
		writeError(w, http.StatusBadRequest, "today must be YYYY-MM-DD")
		return
	}

	result, err := s.validatorSvc.Scan(r.Context(), []byte(req.Payload), today)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// fetchVisit resolves the {id} path variable, writing the error response
// itself when the visit cannot be served.
func (s *Server) fetchVisit(w http.ResponseWriter, r *http.Request) (*domain.VisitPass, bool) {
	visit, err := s.rosterSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return visit, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses: caller
// mistakes are 4xx, store unavailability is 502 so clients present it as
// transient rather than a definitive reject.
func writeDomainError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, vErr.Error())
		return
	}
	var eErr *domain.EncodingError
	if errors.As(err, &eErr) {
		writeError(w, http.StatusInternalServerError, eErr.Error())
		return
	}
	var sErr *domain.StoreError
	if errors.As(err, &sErr) {
		writeError(w, http.StatusBadGateway, "record store temporarily unavailable, retry")
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "visit not found")
		return
	}
	if errors.Is(err, security.ErrBadCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

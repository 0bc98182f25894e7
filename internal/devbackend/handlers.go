package devbackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/budgetwise/budgetwise/internal/api/middleware"
	"github.com/budgetwise/budgetwise/pkg/httpext"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RegisterRoutes mounts the identity backend contract under /auth.
func (s *Service) RegisterRoutes(router *mux.Router) {
	auth := router.PathPrefix("/auth").Subrouter()
	limited := middleware.RateLimit("auth")

	auth.Handle("/login", limited(http.HandlerFunc(s.handleLogin))).Methods(http.MethodPost)
	auth.Handle("/register", limited(http.HandlerFunc(s.handleRegister))).Methods(http.MethodPost)
	auth.Handle("/refresh", limited(http.HandlerFunc(s.handleRefresh))).Methods(http.MethodPost)
	auth.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	pair, err := s.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpext.JsonError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	httpext.WriteJSON(w, http.StatusOK, pair)
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		httpext.JsonError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	pair, err := s.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpext.JsonError(w, err.Error(), http.StatusConflict)
			return
		}
		log.Error().Err(err).Msg("Registration failed")
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httpext.WriteJSON(w, http.StatusOK, pair)
}

func (s *Service) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpext.JsonError(w, "refreshToken is required", http.StatusBadRequest)
		return
	}

	pair, err := s.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRefreshToken), errors.Is(err, ErrRefreshTokenRevoked):
			httpext.JsonError(w, err.Error(), http.StatusUnauthorized)
		default:
			log.Error().Err(err).Msg("Refresh failed")
			httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	httpext.WriteJSON(w, http.StatusOK, pair)
}

func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := s.Me(r.Context(), token)
	if err != nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	httpext.WriteJSON(w, http.StatusOK, user)
}

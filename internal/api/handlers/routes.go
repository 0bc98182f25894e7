package handlers

import (
	"net/http"

	"github.com/budgetwise/budgetwise/internal/api/handlers/session"
	"github.com/budgetwise/budgetwise/internal/api/middleware"
	"github.com/budgetwise/budgetwise/internal/services"
	"github.com/gorilla/mux"
)

// RegisterRoutes wires the session endpoints, plus the embedded dev identity
// backend when no upstream is configured.
func RegisterRoutes(router *mux.Router, svcs *services.Services) {
	sessionHandler := session.NewHandler(svcs.GetRefresher())

	readLimit := middleware.RateLimit("session_read")
	writeLimit := middleware.RateLimit("session_write")

	router.Handle("/session", readLimit(http.HandlerFunc(sessionHandler.HandleGet))).Methods(http.MethodGet)
	router.Handle("/session/set", writeLimit(http.HandlerFunc(sessionHandler.HandleSet))).Methods(http.MethodPost)
	router.Handle("/session/clear", writeLimit(http.HandlerFunc(sessionHandler.HandleClear))).Methods(http.MethodPost)
	router.Handle("/session/refresh", writeLimit(http.HandlerFunc(sessionHandler.HandleRefresh))).Methods(http.MethodPost)

	if backend := svcs.GetDevBackend(); backend != nil {
		backend.RegisterRoutes(router)
	}
}

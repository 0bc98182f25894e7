package services

import (
	"context"
	"net/http"

	"github.com/budgetwise/budgetwise/internal/api/handlers/session"
	"github.com/budgetwise/budgetwise/internal/config"
	"github.com/budgetwise/budgetwise/internal/devbackend"
	"github.com/budgetwise/budgetwise/internal/identity"
	"github.com/budgetwise/budgetwise/internal/infrastructure/redis"
	"github.com/budgetwise/budgetwise/internal/services/revocation"
	"github.com/rs/zerolog/log"
)

type Services struct {
	redisService      *redis.Service
	revocationService *revocation.Service
	identityClient    *identity.Client
	devBackend        *devbackend.Service
	refresher         session.Refresher
}

// InitializeServices wires every service the server needs. With BACKEND_URL
// set the session refresh path talks to the upstream identity backend over
// HTTP; without it the embedded dev backend serves the same contract
// in-process and is mounted under /auth.
func InitializeServices() (*Services, error) {
	log.Info().Msg("Initializing core services")

	// Optional: revocation falls back to memory without it
	redisService := redis.NewService()

	revocationService := revocation.NewService(redisService)

	svcs := &Services{
		redisService:      redisService,
		revocationService: revocationService,
	}

	if backendURL := config.GetBackendURL(); backendURL != "" {
		svcs.identityClient = identity.NewClient(backendURL)
		svcs.refresher = svcs.identityClient
		log.Info().Str("backend", backendURL).Msg("Using upstream identity backend")
	} else {
		svcs.devBackend = devbackend.NewService(revocationService)
		svcs.refresher = &localRefresher{backend: svcs.devBackend}
		log.Info().Msg("Using embedded dev identity backend")
	}

	log.Info().Msg("All services initialized successfully")
	return svcs, nil
}

// GetRefresher returns the refresh-token exchanger for the session endpoints
func (s *Services) GetRefresher() session.Refresher {
	return s.refresher
}

// GetDevBackend returns the embedded dev backend, or nil when an upstream is configured
func (s *Services) GetDevBackend() *devbackend.Service {
	return s.devBackend
}

// GetRevocationService returns the refresh-token revocation store
func (s *Services) GetRevocationService() *revocation.Service {
	return s.revocationService
}

// GetRedisService returns the Redis service, or nil when not configured
func (s *Services) GetRedisService() *redis.Service {
	return s.redisService
}

// Close releases held connections
func (s *Services) Close() {
	if s.redisService != nil {
		if err := s.redisService.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}
}

// localRefresher adapts the in-process dev backend to the wire-level error
// contract the session handler expects from the identity client.
type localRefresher struct {
	backend *devbackend.Service
}

func (l *localRefresher) Refresh(ctx context.Context, refreshToken string) (*identity.TokenPair, error) {
	pair, err := l.backend.Refresh(ctx, refreshToken)
	if err != nil {
		switch err {
		case devbackend.ErrInvalidRefreshToken, devbackend.ErrRefreshTokenRevoked:
			return nil, &identity.Error{StatusCode: http.StatusUnauthorized, Message: err.Error()}
		default:
			return nil, err
		}
	}
	return pair, nil
}

// Package devbackend is an in-process implementation of the identity backend
// contract, used for local development and tests when BACKEND_URL is unset.
// Accounts live in memory; refresh tokens are rotated on every use and
// superseded tokens are recorded in the revocation store.
package devbackend

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/budgetwise/budgetwise/internal/config"
	"github.com/budgetwise/budgetwise/internal/credstore"
	"github.com/budgetwise/budgetwise/internal/identity"
	"github.com/budgetwise/budgetwise/internal/services/revocation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
	ErrInvalidAccessToken  = errors.New("invalid access token")
)

const refreshLifetime = 30 * 24 * time.Hour

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type userRecord struct {
	snapshot     credstore.UserSnapshot
	passwordHash []byte
}

type refreshEntry struct {
	userID    int64
	expiresAt time.Time
}

type Service struct {
	mu         sync.Mutex
	byEmail    map[string]*userRecord
	byID       map[int64]*userRecord
	refresh    map[string]refreshEntry // keyed by sha256 hash of the token
	nextID     int64
	revocation *revocation.Service
	secret     []byte
	accessTTL  time.Duration
	now        func() time.Time
}

// ServiceOption modifies a Service, primarily for testing.
type ServiceOption func(*Service)

// WithNowTime sets the clock function
func WithNowTime(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithAccessTTL overrides the access token lifetime
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.accessTTL = ttl
	}
}

func NewService(revocationService *revocation.Service, options ...ServiceOption) *Service {
	s := &Service{
		byEmail:    make(map[string]*userRecord),
		byID:       make(map[int64]*userRecord),
		refresh:    make(map[string]refreshEntry),
		nextID:     1,
		revocation: revocationService,
		secret:     []byte(config.GetEnvOrDefault("DEV_JWT_SECRET", "development-jwt-secret")),
		accessTTL:  time.Hour,
		now:        time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// Register creates an account and issues its first token pair.
func (s *Service) Register(ctx context.Context, email, password, name string) (*identity.TokenPair, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, exists := s.byEmail[email]; exists {
		s.mu.Unlock()
		return nil, ErrEmailTaken
	}

	now := s.now().UTC()
	rec := &userRecord{
		snapshot: credstore.UserSnapshot{
			ID:        s.nextID,
			Email:     email,
			Name:      name,
			CreatedAt: &now,
			UpdatedAt: &now,
		},
		passwordHash: hash,
	}
	s.nextID++
	s.byEmail[email] = rec
	s.byID[rec.snapshot.ID] = rec
	s.mu.Unlock()

	return s.issue(ctx, rec)
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*identity.TokenPair, error) {
	s.mu.Lock()
	rec, exists := s.byEmail[email]
	s.mu.Unlock()

	if !exists {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, rec)
}

// Refresh rotates a refresh token: the presented token is retired and a new
// pair is minted. A token that was already rotated out is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*identity.TokenPair, error) {
	hash := hashToken(refreshToken)

	if revoked, err := s.revocation.IsRevoked(ctx, hash); err == nil && revoked {
		return nil, ErrRefreshTokenRevoked
	}

	s.mu.Lock()
	entry, exists := s.refresh[hash]
	if !exists || s.now().After(entry.expiresAt) {
		delete(s.refresh, hash)
		s.mu.Unlock()
		return nil, ErrInvalidRefreshToken
	}
	delete(s.refresh, hash)
	rec := s.byID[entry.userID]
	s.mu.Unlock()

	if rec == nil {
		return nil, ErrInvalidRefreshToken
	}

	if err := s.revocation.Revoke(ctx, hash, refreshLifetime); err != nil {
		return nil, err
	}

	return s.issue(ctx, rec)
}

// Me resolves an access token to its user snapshot.
func (s *Service) Me(ctx context.Context, accessToken string) (*credstore.UserSnapshot, error) {
	token, err := jwt.ParseWithClaims(accessToken, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidAccessToken
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok {
		return nil, ErrInvalidAccessToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}

	s.mu.Lock()
	rec := s.byID[userID]
	s.mu.Unlock()

	if rec == nil {
		return nil, ErrInvalidAccessToken
	}
	snapshot := rec.snapshot
	return &snapshot, nil
}

func (s *Service) issue(ctx context.Context, rec *userRecord) (*identity.TokenPair, error) {
	now := s.now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(rec.snapshot.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Email: rec.snapshot.Email,
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.refresh[hashToken(refreshToken)] = refreshEntry{
		userID:    rec.snapshot.ID,
		expiresAt: now.Add(refreshLifetime),
	}
	snapshot := rec.snapshot
	s.mu.Unlock()

	return &identity.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		User:         &snapshot,
	}, nil
}

func generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/retailops/backoffice/internal/storage"
	"github.com/retailops/backoffice/pkg/types"
)

// Actor is an authenticated operator as seen by the rest of the system
type Actor struct {
	ID   int64
	Name string
	Role types.Role
}

// Capability names one guarded operation class
type Capability string

const (
	CapCreateSale    Capability = "create_sale"
	CapCancelSale    Capability = "cancel_sale"
	CapManageCatalog Capability = "manage_catalog"
	CapAdjustStock   Capability = "adjust_stock"
	CapViewReports   Capability = "view_reports"
	CapViewSales     Capability = "view_sales"
)

// roleCapabilities is the single source of truth for what each role may do.
// Cancellation stays admin-only.
var roleCapabilities = map[types.Role]map[Capability]bool{
	types.RoleAdmin: {
		CapCreateSale:    true,
		CapCancelSale:    true,
		CapManageCatalog: true,
		CapAdjustStock:   true,
		CapViewReports:   true,
		CapViewSales:     true,
	},
	types.RoleClerk: {
		CapCreateSale: true,
		CapViewSales:  true,
	},
}

// Gate answers capability checks for actors
type Gate struct{}

// NewGate creates a capability gate
func NewGate() *Gate {
	return &Gate{}
}

// Allows reports whether the role carries the capability
func (g *Gate) Allows(role types.Role, cap Capability) bool {
	return roleCapabilities[role][cap]
}

// Require returns ErrPermissionDenied when the actor's role lacks the
// capability
func (g *Gate) Require(actor Actor, cap Capability) error {
	if !g.Allows(actor.Role, cap) {
		return fmt.Errorf("%w: %s requires %s", types.ErrPermissionDenied, actor.Name, cap)
	}
	return nil
}

// Service authenticates operators and tracks their sessions in memory
type Service struct {
	store storage.Storage
	gate  *Gate
	log   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]Actor
}

// NewService creates an auth service over the given user store
func NewService(store storage.Storage, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		gate:     NewGate(),
		log:      log,
		sessions: make(map[string]Actor),
	}
}

// Gate returns the service's capability gate
func (s *Service) Gate() *Gate {
	return s.gate
}

// HashPassword produces the bcrypt digest stored on a user record
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates a user with a freshly hashed password
func (s *Service) Register(ctx context.Context, username, name, email, password string, role types.Role) (*types.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &types.User{
		Username:     username,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies the credentials and opens a session. The returned
// token is opaque; hand it to Resolve to get the actor back.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Actor, string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return Actor{}, "", types.ErrInvalidCredentials
	}
	if err != nil {
		return Actor{}, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.Active {
		return Actor{}, "", types.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Actor{}, "", types.ErrInvalidCredentials
	}

	actor := Actor{ID: user.ID, Name: user.Name, Role: user.Role}
	token := uuid.NewString()

	s.mu.Lock()
	s.sessions[token] = actor
	s.mu.Unlock()

	s.log.Info("session opened",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return actor, token, nil
}

// Resolve returns the actor for a session token
func (s *Service) Resolve(token string) (Actor, error) {
	s.mu.RLock()
	actor, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Actor{}, types.ErrInvalidCredentials
	}
	return actor, nil
}

// Revoke closes a session. Revoking an unknown token is a no-op.
func (s *Service) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// ActorByID loads an actor straight from the user store, for callers that
// carry a user id instead of a session token
func (s *Service) ActorByID(ctx context.Context, userID int64) (Actor, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return Actor{}, types.ErrInvalidCredentials
	}
	if err != nil {
		return Actor{}, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Active {
		return Actor{}, types.ErrInvalidCredentials
	}
	return Actor{ID: user.ID, Name: user.Name, Role: user.Role}, nil
}

package auth

import "github.com/uniroom/backend/internal/models"

// ServiceInterface defines the contract for authentication operations.
// This enables mocking for unit tests without requiring a real database.
type ServiceInterface interface {
	Register(req RegisterRequest) (*AuthResponse, error)
	Login(req LoginRequest) (*AuthResponse, error)

	// ValidateToken is the identity gate: bearer token in, user identity out
	ValidateToken(tokenString string) (*models.User, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)

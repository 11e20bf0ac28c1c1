package auth

import (
	"sync"

	"github.com/uniroom/backend/internal/models"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockService is a mock implementation of ServiceInterface for testing.
type MockService struct {
	mu sync.Mutex

	// Call tracking
	Calls []MockCall

	// Configurable function overrides
	RegisterFunc      func(req RegisterRequest) (*AuthResponse, error)
	LoginFunc         func(req LoginRequest) (*AuthResponse, error)
	ValidateTokenFunc func(tokenString string) (*models.User, error)

	// Default error to return when no override is configured
	DefaultError error

	// Pre-configured users for testing, keyed by token string
	UsersByToken map[string]*models.User
}

// NewMockService creates a new mock auth service with sensible defaults
func NewMockService() *MockService {
	return &MockService{
		Calls:        make([]MockCall, 0),
		UsersByToken: make(map[string]*models.User),
	}
}

var _ ServiceInterface = (*MockService)(nil)

// recordCall records a method call for later assertion
func (m *MockService) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// CallsForMethod returns recorded calls for a specific method
func (m *MockService) CallsForMethod(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []MockCall
	for _, call := range m.Calls {
		if call.Method == method {
			result = append(result, call)
		}
	}
	return result
}

// Reset clears all recorded calls
func (m *MockService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = m.Calls[:0]
}

// Register implements ServiceInterface
func (m *MockService) Register(req RegisterRequest) (*AuthResponse, error) {
	m.recordCall("Register", req)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	user := models.User{Email: req.Email, Username: req.Username, DisplayName: req.DisplayName}
	return &AuthResponse{Token: "mock-token", User: user}, nil
}

// Login implements ServiceInterface
func (m *MockService) Login(req LoginRequest) (*AuthResponse, error) {
	m.recordCall("Login", req)
	if m.LoginFunc != nil {
		return m.LoginFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return &AuthResponse{Token: "mock-token", User: models.User{Email: req.Email}}, nil
}

// ValidateToken implements ServiceInterface
func (m *MockService) ValidateToken(tokenString string) (*models.User, error) {
	m.recordCall("ValidateToken", tokenString)
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}
	if user, ok := m.UsersByToken[tokenString]; ok {
		return user, nil
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return nil, ErrInvalidCredentials
}

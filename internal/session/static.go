package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSession indica que no hay sesión autenticada.
var ErrNoSession = errors.New("session: not signed in")

// Static es una Session respaldada por valores fijos, mutable de forma
// segura. La usa el daemon (token/usuario desde el entorno) y los tests.
type Static struct {
	mu     sync.RWMutex
	userID string
	token  string
}

// NewStatic crea una Static. Con userID vacío arranca deslogueada.
func NewStatic(userID, token string) *Static {
	return &Static{userID: userID, token: token}
}

func (s *Static) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID == "" || s.token == "" {
		return "", ErrNoSession
	}
	return s.token, nil
}

func (s *Static) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Static) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID != ""
}

// SignIn instala usuario y token (simula un login).
func (s *Static) SignIn(userID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.token = token
}

// SignOut borra la sesión.
func (s *Static) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	s.token = ""
}

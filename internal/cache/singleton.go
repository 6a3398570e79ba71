package cache

import "sync"

var (
	defaultMu sync.Mutex
	defaultM  *Manager
)

// Default retorna el Manager singleton. Si nadie llamó SetDefault,
// arranca memoria-solo (sin store).
func Default() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultM == nil {
		defaultM = New(nil)
	}
	return defaultM
}

// SetDefault instala el Manager singleton. Llamar una vez en bootstrap.
func SetDefault(m *Manager) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultM = m
}

// ResetDefault descarta el singleton. Hook para tests.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultM = nil
}

// Package cache implementa el role cache manager: un map en memoria de
// user-id → {rol, timestamp, ttl} espejado en un store persistente para
// que recargar la sesión no fuerce un re-fetch.
//
// La capa en memoria es autoritativa durante la vida del proceso; el
// store es best-effort. Cualquier falla del store se loguea y se degrada
// a memoria-solo, nunca se propaga al caller.
package cache

import (
	"encoding/json"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/aulaone/rolesync/internal/metrics"
	"github.com/aulaone/rolesync/internal/observability/logger"
	"github.com/aulaone/rolesync/internal/role"
	"github.com/aulaone/rolesync/internal/store"
)

// storeKey es la única key usada en el store persistente: un JSON con el
// map completo userID → Entry. Se mergea en cada escritura para no pisar
// entries de otros usuarios.
const storeKey = "rolesync.role_cache"

// Entry es una entrada del cache. Válida mientras now <= Timestamp+TTL;
// expirada se trata como ausente y se purga en el próximo acceso.
type Entry struct {
	Role      role.Role `json:"role"`
	Timestamp int64     `json:"timestamp"` // unix millis
	TTLMillis int64     `json:"ttl_ms"`
}

// fresh reporta si la entry sigue viva a la hora dada.
func (e Entry) fresh(now time.Time) bool {
	return now.UnixMilli() <= e.Timestamp+e.TTLMillis
}

// remaining retorna el TTL restante a la hora dada.
func (e Entry) remaining(now time.Time) time.Duration {
	return time.Duration(e.Timestamp+e.TTLMillis-now.UnixMilli()) * time.Millisecond
}

// Manager es el role cache. Crear con New, o usar el singleton Default.
type Manager struct {
	mem *gocache.Cache
	st  store.Store
	log *zap.Logger

	// now es inyectable para simular el paso del tiempo en tests.
	now func() time.Time

	// mu serializa los read-modify-write del store (merge del map).
	mu sync.Mutex
}

// Option configura un Manager.
type Option func(*Manager)

// WithClock inyecta un reloj. Solo para tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New crea un Manager sobre el store dado. st puede ser nil: el cache
// opera memoria-solo (store deshabilitado por política o sin permisos).
func New(st store.Store, opts ...Option) *Manager {
	m := &Manager{
		mem: gocache.New(gocache.NoExpiration, time.Minute),
		st:  st,
		log: logger.Named("cache"),
		now: time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetRole escribe {role, now, ttl} en memoria y lo espeja al store,
// mergeando con las entries ya persistidas de otros usuarios.
func (m *Manager) SetRole(userID string, r role.Role, ttl time.Duration) {
	m.SetRoleAt(userID, r, ttl, m.now())
}

// SetRoleAt escribe la entry con un timestamp explícito. Lo usa el
// orchestrator cuando el timestamp viene de otra sesión (updateRoleCache).
func (m *Manager) SetRoleAt(userID string, r role.Role, ttl time.Duration, at time.Time) {
	if userID == "" {
		return
	}
	e := Entry{
		Role:      r,
		Timestamp: at.UnixMilli(),
		TTLMillis: ttl.Milliseconds(),
	}
	m.mem.Set(userID, e, ttl)
	m.mirrorSet(userID, e)
}

// GetRole busca primero en memoria y si no está intenta hidratar del
// store. En ambos caminos, una entry vencida cuenta como miss y se purga
// de las dos capas.
func (m *Manager) GetRole(userID string) (role.Role, bool) {
	if userID == "" {
		return "", false
	}
	now := m.now()

	if v, ok := m.mem.Get(userID); ok {
		e, ok := v.(Entry)
		if ok && e.fresh(now) {
			metrics.CacheHits.Inc()
			return e.Role, true
		}
		// Expirada: purgar de ambas capas
		m.mem.Delete(userID)
		m.mirrorRemove(userID)
		metrics.CacheMisses.Inc()
		return "", false
	}

	// Hidratar del store
	if e, ok := m.hydrate(userID); ok {
		if e.fresh(now) {
			m.mem.Set(userID, e, e.remaining(now))
			metrics.CacheHits.Inc()
			return e.Role, true
		}
		m.mirrorRemove(userID)
	}

	metrics.CacheMisses.Inc()
	return "", false
}

// ClearRole elimina la entry del usuario de ambas capas.
func (m *Manager) ClearRole(userID string) {
	if userID == "" {
		return
	}
	m.mem.Delete(userID)
	m.mirrorRemove(userID)
}

// ClearAll limpia la memoria y elimina la key del store por completo.
// Idempotente: llamarla dos veces seguidas es seguro.
func (m *Manager) ClearAll() {
	m.mem.Flush()
	if m.st == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.st.Remove(storeKey); err != nil {
		m.log.Warn("store remove failed, in-memory cleared anyway", logger.Err(err))
	}
}

// ---- espejo persistente (best-effort) ----

// loadMirror lee el map persistido. Cualquier error (store caído, JSON
// corrupto) retorna map vacío: el espejo nunca bloquea la operación.
func (m *Manager) loadMirror() map[string]Entry {
	raw, err := m.st.Get(storeKey)
	if err != nil {
		if !store.IsNotFound(err) {
			m.log.Warn("store read failed, degrading to memory-only", logger.Err(err))
		}
		return map[string]Entry{}
	}
	var data map[string]Entry
	if err := json.Unmarshal([]byte(raw), &data); err != nil || data == nil {
		m.log.Warn("persisted role cache is corrupt, ignoring", logger.Err(err))
		return map[string]Entry{}
	}
	return data
}

func (m *Manager) saveMirror(data map[string]Entry) {
	b, err := json.Marshal(data)
	if err != nil {
		m.log.Warn("role cache marshal failed", logger.Err(err))
		return
	}
	if err := m.st.Set(storeKey, string(b)); err != nil {
		m.log.Warn("store write failed, entry kept in memory only", logger.Err(err))
	}
}

func (m *Manager) mirrorSet(userID string, e Entry) {
	if m.st == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data := m.loadMirror()
	data[userID] = e
	m.saveMirror(data)
}

func (m *Manager) mirrorRemove(userID string) {
	if m.st == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data := m.loadMirror()
	if _, ok := data[userID]; !ok {
		return
	}
	delete(data, userID)
	m.saveMirror(data)
}

func (m *Manager) hydrate(userID string) (Entry, bool) {
	if m.st == nil {
		return Entry{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data := m.loadMirror()
	e, ok := data[userID]
	return e, ok
}

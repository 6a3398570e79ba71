package syncbus

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aulaone/rolesync/internal/metrics"
	"github.com/aulaone/rolesync/internal/observability/logger"
	"github.com/aulaone/rolesync/internal/role"
)

// DefaultChannel es el canal pub/sub por defecto.
const DefaultChannel = "rolesync.role"

// Tipos de mensaje de sincronización.
const (
	TypeRoleUpdated = "role-updated"
	TypeRoleCleared = "role-cleared"
)

// Message es el mensaje efímero que viaja entre sesiones. Solo existe en
// el wire; nunca se persiste.
type Message struct {
	Type        string     `json:"type"`
	Role        *role.Role `json:"role,omitempty"`
	Timestamp   int64      `json:"timestamp"` // unix millis
	SourceTabID string     `json:"source_tab_id"`
}

// Listener recibe el rol nuevo (nil = cleared) de otra sesión.
type Listener func(r *role.Role)

// Manager es el sync manager de una sesión: publica cambios de rol y
// reparte los mensajes entrantes de otras sesiones a sus listeners.
// No guarda estado persistente; solo la lista de listeners activos.
type Manager struct {
	bus     Bus
	channel string
	tabID   string
	log     *zap.Logger

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
	unsub     func()
	inited    bool
}

// NewManager crea un Manager sobre el bus dado. bus puede ser nil:
// todo es no-op y la consistencia queda single-session (sin crash).
//
// El tab id identifica esta sesión en los mensajes: uuid + semilla de
// timestamp, generado una vez por instancia.
func NewManager(bus Bus, channel string) *Manager {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Manager{
		bus:       bus,
		channel:   channel,
		tabID:     fmt.Sprintf("%s-%d", uuid.NewString(), time.Now().UnixMilli()),
		log:       logger.Named("syncbus"),
		listeners: make(map[int]Listener),
	}
}

// TabID retorna el identificador de esta sesión.
func (m *Manager) TabID() string { return m.tabID }

// Init abre la suscripción al canal. Idempotente: llamadas repetidas no
// hacen nada. Sin bus disponible es no-op.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inited || m.bus == nil {
		return nil
	}

	unsub, err := m.bus.Subscribe(m.channel, m.handleMessage)
	if err != nil {
		// Sync no disponible: degradar a single-session, nunca crashear
		m.log.Warn("subscribe failed, cross-session sync disabled",
			logger.Channel(m.channel), logger.Err(err))
		return nil
	}
	m.unsub = unsub
	m.inited = true
	m.log.Debug("sync channel open", logger.Channel(m.channel), logger.TabID(m.tabID))
	return nil
}

// BroadcastRoleUpdate publica el rol nuevo (nil = cleared) al canal.
func (m *Manager) BroadcastRoleUpdate(r *role.Role) {
	if m.bus == nil {
		return
	}
	msg := Message{
		Type:        TypeRoleUpdated,
		Role:        r,
		Timestamp:   time.Now().UnixMilli(),
		SourceTabID: m.tabID,
	}
	if r == nil {
		msg.Type = TypeRoleCleared
	}

	b, err := json.Marshal(msg)
	if err != nil {
		m.log.Warn("sync message marshal failed", logger.Err(err))
		return
	}
	if err := m.bus.Publish(m.channel, b); err != nil {
		m.log.Warn("sync publish failed", logger.Channel(m.channel), logger.Err(err))
		return
	}
	metrics.SyncMessagesSent.Inc()
}

// Subscribe registra un listener y retorna la función que desuscribe
// exactamente ese listener.
func (m *Manager) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Destroy cierra la suscripción y limpia todos los listeners.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
	m.listeners = make(map[int]Listener)
	m.inited = false
}

// handleMessage procesa un mensaje entrante: malformado → log y drop;
// propio (mismo tab id) → drop; válido → fan-out a listeners.
func (m *Manager) handleMessage(payload []byte) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		m.log.Warn("malformed sync message dropped", logger.Err(err))
		return
	}
	if msg.SourceTabID == m.tabID {
		// Self-echo: esta sesión no reacciona a sus propios broadcasts
		return
	}
	switch msg.Type {
	case TypeRoleUpdated, TypeRoleCleared:
	default:
		m.log.Warn("sync message with unknown type dropped", logger.String("type", msg.Type))
		return
	}

	metrics.SyncMessagesReceived.Inc()

	m.mu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(msg.Role)
	}
}

package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/aulaone/rolesync/internal/cache"
	"github.com/aulaone/rolesync/internal/debounce"
	"github.com/aulaone/rolesync/internal/metrics"
	"github.com/aulaone/rolesync/internal/observability/logger"
	"github.com/aulaone/rolesync/internal/retry"
	"github.com/aulaone/rolesync/internal/role"
	"github.com/aulaone/rolesync/internal/session"
	"github.com/aulaone/rolesync/internal/syncbus"
	"github.com/aulaone/rolesync/internal/token"
)

// Config ajusta el orchestrator. El zero value toma defaults sanos.
type Config struct {
	// MaxAttempts son los REINTENTOS del fetch de token (total = +1).
	MaxAttempts int
	// BaseDelay es la base del backoff exponencial entre reintentos.
	BaseDelay time.Duration
	// RoleTTL es el TTL de una entry de rol resuelta con éxito.
	RoleTTL time.Duration
	// FallbackTTL es el TTL corto del rol default asignado tras fallas,
	// para que el próximo intento llegue pronto.
	FallbackTTL time.Duration
	// DebounceWait es la ventana que colapsa ráfagas de auth-changes.
	DebounceWait time.Duration
}

func (c *Config) defaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 250 * time.Millisecond
	}
	if c.RoleTTL <= 0 {
		c.RoleTTL = 5 * time.Minute
	}
	if c.FallbackTTL <= 0 {
		c.FallbackTTL = 30 * time.Second
	}
	if c.DebounceWait <= 0 {
		c.DebounceWait = 300 * time.Millisecond
	}
}

// Orchestrator compone session, cache, sync, retry y debounce detrás de
// la máquina de estados del rol. Es el único dueño del RoleState.
type Orchestrator struct {
	sess  session.Session
	cache *cache.Manager
	sync  *syncbus.Manager
	cfg   Config
	log   *zap.Logger

	deb *debounce.Debouncer
	sf  singleflight.Group

	mu          sync.Mutex
	state       RoleState
	subs        map[int]func(RoleState)
	nextSub     int
	unsubRemote func()
}

// New construye el orchestrator, abre el sync manager y se suscribe a
// los mensajes de otras sesiones. No dispara ningún fetch todavía:
// llamar Start() (o NotifyAuthChanged()) después de construir.
func New(sess session.Session, c *cache.Manager, sm *syncbus.Manager, cfg Config) *Orchestrator {
	cfg.defaults()
	o := &Orchestrator{
		sess:  sess,
		cache: c,
		sync:  sm,
		cfg:   cfg,
		log:   logger.Named("orchestrator"),
		deb:   debounce.New(cfg.DebounceWait),
		subs:  make(map[int]func(RoleState)),
	}

	_ = sm.Init()
	o.unsubRemote = sm.Subscribe(func(r *role.Role) {
		o.guarded("remote-update", func() {
			// Mensajes cross-session llegan ya validados: aplicar directo
			o.dispatch(RemoteUpdate{Role: r, At: time.Now()})
		})
	})

	return o
}

// Snapshot retorna el RoleState actual.
func (o *Orchestrator) Snapshot() RoleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe registra un consumidor de cambios de estado y retorna su
// función de desuscripción.
func (o *Orchestrator) Subscribe(fn func(RoleState)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// Start dispara la secuencia de fetch inicial (equivalente a "mount").
func (o *Orchestrator) Start() { o.NotifyAuthChanged() }

// NotifyAuthChanged reacciona a un cambio de sesión (sign-in/sign-out).
// Va por el debouncer: una ráfaga de cambios produce un solo fetch, el
// último.
func (o *Orchestrator) NotifyAuthChanged() {
	o.deb.Trigger(func() {
		_ = o.resolve(context.Background())
	})
}

// RefreshRole purga el cache del usuario actual y re-corre la secuencia
// de fetch, sin debounce. El error también queda reflejado en el estado.
func (o *Orchestrator) RefreshRole(ctx context.Context) error {
	if uid := o.sess.UserID(); uid != "" {
		o.cache.ClearRole(uid)
	}
	return o.resolve(ctx)
}

// SetRole escribe el rol explícitamente: write-through al cache,
// broadcast y transición a ready. Sin usuario conocido es no-op.
func (o *Orchestrator) SetRole(r role.Role) {
	uid := o.sess.UserID()
	if uid == "" || !r.Valid() {
		return
	}
	o.guarded("set-role", func() {
		o.cache.SetRole(uid, r, o.cfg.RoleTTL)
		o.sync.BroadcastRoleUpdate(&r)
		o.dispatch(FetchSuccess{Role: r, At: time.Now()})
	})
}

// ClearRole evicta el cache del usuario, publica el clear a las otras
// sesiones y transiciona a cleared.
func (o *Orchestrator) ClearRole() {
	o.guarded("clear-role", func() {
		if uid := o.sess.UserID(); uid != "" {
			o.cache.ClearRole(uid)
		}
		o.sync.BroadcastRoleUpdate(nil)
		o.dispatch(RoleCleared{})
	})
}

// UpdateRoleCache actualiza la entry cacheada con un timestamp explícito
// (p.ej. recibido de otra sesión) y refleja el rol en el estado. No
// re-publica. Sin usuario conocido es no-op.
func (o *Orchestrator) UpdateRoleCache(r role.Role, at time.Time) {
	uid := o.sess.UserID()
	if uid == "" || !r.Valid() {
		return
	}
	o.guarded("update-role-cache", func() {
		o.cache.SetRoleAt(uid, r, o.cfg.RoleTTL, at)
		o.dispatch(FetchSuccess{Role: r, At: at})
	})
}

// Close apaga el orchestrator: cancela el debounce pendiente, corta la
// suscripción remota y destruye el sync manager.
func (o *Orchestrator) Close() {
	o.deb.Stop()
	if o.unsubRemote != nil {
		o.unsubRemote()
	}
	o.sync.Destroy()
}

// resolve corre la secuencia de fetch completa bajo el guard.
func (o *Orchestrator) resolve(ctx context.Context) error {
	var outErr error
	o.guarded("resolve", func() { outErr = o.doResolve(ctx) })
	return outErr
}

func (o *Orchestrator) doResolve(ctx context.Context) error {
	if !o.sess.SignedIn() {
		o.dispatch(RoleCleared{})
		return nil
	}
	uid := o.sess.UserID()

	// Cache primero
	if r, ok := o.cache.GetRole(uid); ok {
		metrics.RoleFetchTotal.WithLabelValues("cache_hit").Inc()
		o.dispatch(FetchSuccess{Role: r, At: time.Now()})
		return nil
	}

	o.dispatch(FetchStart{})
	start := time.Now()

	// singleflight colapsa fetches concurrentes del mismo usuario; el
	// debounce ya serializó los disparos dentro de una sesión.
	v, err, _ := o.sf.Do(uid, func() (any, error) {
		raw, err := retry.Do(ctx, func(ctx context.Context) (string, error) {
			metrics.RetryAttempts.Inc()
			return o.sess.Token(ctx)
		}, o.cfg.MaxAttempts, o.cfg.BaseDelay)
		if err != nil {
			return nil, err
		}
		claims, err := token.Parse(raw)
		if err != nil {
			return nil, err
		}
		return role.FromClaim(claims.RoleClaim), nil
	})
	metrics.RoleFetchDuration.Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		// Degradar al rol default con TTL corto: la aplicación nunca
		// queda colgada en loading ni sin rol.
		o.cache.SetRole(uid, role.Default, o.cfg.FallbackTTL)
		metrics.RoleFetchTotal.WithLabelValues("fallback").Inc()
		o.log.Warn("role fetch failed, falling back to default role",
			logger.UserID(uid),
			logger.RoleField(role.Default.String()),
			logger.TTL(o.cfg.FallbackTTL),
			logger.Err(err),
		)
		o.dispatch(FetchError{Message: deriveMessage(err), Fallback: role.Default, At: time.Now()})
		return err
	}

	r := v.(role.Role)
	o.cache.SetRole(uid, r, o.cfg.RoleTTL)
	o.sync.BroadcastRoleUpdate(&r)
	metrics.RoleFetchTotal.WithLabelValues("fetched").Inc()
	o.log.Debug("role resolved",
		logger.UserID(uid),
		logger.RoleField(r.String()),
	)
	o.dispatch(FetchSuccess{Role: r, At: time.Now()})
	return nil
}

// dispatch aplica la acción con el reducer y notifica a los subscribers.
// La notificación corre supervisada: un consumer que panickea degrada el
// estado en vez de tumbar el proceso.
func (o *Orchestrator) dispatch(a Action) {
	o.mu.Lock()
	o.state = Reduce(o.state, a)
	st := o.state
	subs := o.snapshotSubsLocked()
	o.mu.Unlock()

	o.guarded("notify", func() {
		for _, fn := range subs {
			fn(st)
		}
	})
}

// snapshotSubsLocked copia los subscribers actuales. Caller sostiene mu.
func (o *Orchestrator) snapshotSubsLocked() []func(RoleState) {
	out := make([]func(RoleState), 0, len(o.subs))
	for _, fn := range o.subs {
		out = append(out, fn)
	}
	return out
}

// deriveMessage traduce el error del fetch a un mensaje corto visible.
func deriveMessage(err error) string {
	switch {
	case errors.Is(err, token.ErrInvalidToken):
		return "session token invalid"
	case errors.Is(err, session.ErrNoSession):
		return "session unavailable"
	default:
		return "could not resolve role"
	}
}

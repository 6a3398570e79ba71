package state

import (
	"time"

	"github.com/aulaone/rolesync/internal/observability/logger"
	"github.com/aulaone/rolesync/internal/role"
)

// DegradedMessage es el texto visible cuando el guard sustituye estado.
const DegradedMessage = "role state unavailable, operating with reduced privileges"

// Degraded retorna el RoleState estático de fallback: rol de menor
// privilegio + mensaje explicativo. El resto de la aplicación sigue
// funcionando con privilegio reducido en vez de caerse.
func Degraded() RoleState {
	r := role.Default
	now := time.Now()
	return RoleState{Role: &r, Err: DegradedMessage, LastUpdated: &now}
}

// guarded ejecuta fn supervisada: un panic en el ciclo de vida del
// orchestrator (incluyendo subscribers de consumidores) se recupera y se
// sustituye el estado por Degraded(), sin propagar el crash.
func (o *Orchestrator) guarded(op string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			o.log.Error("orchestrator panic recovered, substituting degraded state",
				logger.Op(op),
				logger.Any("panic", rec),
			)
			o.mu.Lock()
			o.state = Degraded()
			subs := o.snapshotSubsLocked()
			st := o.state
			o.mu.Unlock()
			// Notificar el estado degradado; un subscriber que vuelva a
			// panickear acá ya no puede tumbar al orchestrator.
			for _, fn := range subs {
				func() {
					defer func() { _ = recover() }()
					fn(st)
				}()
			}
		}
	}()
	fn()
}

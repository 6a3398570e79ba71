package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics del role-state core. Paquete standalone para evitar
// ciclos de import entre cache/syncbus/state y el HTTP surface.

var (
	RoleFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rolesync_role_fetch_total",
		Help: "Resoluciones de rol por resultado (cache_hit | fetched | fallback)",
	}, []string{"result"})

	RoleFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rolesync_role_fetch_duration_ms",
		Help:    "Duración del fetch de rol en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rolesync_cache_hits_total",
		Help: "Hits del role cache (memoria o store)",
	})

	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rolesync_cache_misses_total",
		Help: "Misses del role cache (ausente o expirado)",
	})

	SyncMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rolesync_sync_messages_sent_total",
		Help: "Mensajes de sincronización publicados al canal",
	})

	SyncMessagesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rolesync_sync_messages_received_total",
		Help: "Mensajes de sincronización recibidos de otras sesiones (self-echo excluido)",
	})

	RetryAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rolesync_retry_attempts_total",
		Help: "Reintentos de fetch de token",
	})
)

// Register registra las métricas en el registry dado (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		RoleFetchTotal,
		RoleFetchDuration,
		CacheHits,
		CacheMisses,
		SyncMessagesSent,
		SyncMessagesReceived,
		RetryAttempts,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// Package retry provee un wrapper genérico de reintentos con backoff
// exponencial para operaciones async que pueden fallar transitoriamente.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/aulaone/rolesync/internal/observability/logger"
)

// Do ejecuta op hasta que tenga éxito o se agoten los reintentos.
//
// maxAttempts es la cantidad de REINTENTOS: op se invoca como máximo
// maxAttempts+1 veces. Entre fallas espera baseDelay * 2^attemptIndex
// (sin jitter). El último error se propaga siempre, nunca se traga.
//
// La espera respeta ctx: cancelación aborta el backoff y retorna el
// último error de op junto con ctx.Err().
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), maxAttempts int, baseDelay time.Duration) (T, error) {
	var zero T
	if maxAttempts < 0 {
		maxAttempts = 0
	}

	log := logger.Named("retry")
	var lastErr error

	for attempt := 0; attempt <= maxAttempts; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		delay := baseDelay << uint(attempt)
		log.Debug("operation failed, backing off",
			logger.Attempt(attempt+1),
			logger.Duration(delay),
			logger.Err(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("retry: canceled after attempt %d: %w (last error: %v)", attempt+1, ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("retry: %d attempts exhausted: %w", maxAttempts+1, lastErr)
}

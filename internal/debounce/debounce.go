// Package debounce colapsa ráfagas de invocaciones en una sola llamada
// trailing: nada corre hasta que pasa una ventana de silencio.
package debounce

import (
	"sync"
	"time"
)

// Debouncer agenda la última función recibida para ejecutarse después de
// wait de silencio. Cada Trigger cancela el timer pendiente y agenda de
// nuevo con el closure más reciente, así una ráfaga de N triggers produce
// exactamente una ejecución con los argumentos del último.
type Debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

// New crea un Debouncer con la ventana dada.
func New(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Trigger agenda fn para dentro de d.wait, cancelando cualquier fn
// pendiente. fn corre en su propia goroutine cuando vence el timer.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = fn
	d.timer = time.AfterFunc(d.wait, func() {
		d.mu.Lock()
		fn := d.pending
		d.pending = nil
		d.timer = nil
		d.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

// Stop cancela la ejecución pendiente, si la hay.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Flush ejecuta ahora la función pendiente (si hay) y cancela el timer.
// Útil en teardown para no perder el último trigger.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

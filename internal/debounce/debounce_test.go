package debounce_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulaone/rolesync/internal/debounce"
)

// collector junta ejecuciones de forma thread-safe.
type collector struct {
	mu   sync.Mutex
	args []int
	at   []time.Time
}

func (c *collector) add(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.args = append(c.args, v)
	c.at = append(c.at, time.Now())
}

func (c *collector) snapshot() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.args...)
}

func TestTrigger_BurstCollapsesToOneTrailingCall(t *testing.T) {
	d := debounce.New(100 * time.Millisecond)
	var c collector
	start := time.Now()

	// Triggers en t=0, t=50, t=100 con ventana de 100ms
	d.Trigger(func() { c.add(1) })
	time.Sleep(50 * time.Millisecond)
	d.Trigger(func() { c.add(2) })
	time.Sleep(50 * time.Millisecond)
	lastAt := time.Now()
	d.Trigger(func() { c.add(3) })

	require.Eventually(t, func() bool {
		return len(c.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	// Solo corre la última, y no antes de la ventana de silencio
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []int{3}, c.snapshot())

	c.mu.Lock()
	firedAt := c.at[0]
	c.mu.Unlock()
	assert.GreaterOrEqual(t, firedAt.Sub(lastAt), 90*time.Millisecond)
	assert.GreaterOrEqual(t, firedAt.Sub(start), 190*time.Millisecond)
}

func TestTrigger_SeparatedCallsBothRun(t *testing.T) {
	d := debounce.New(20 * time.Millisecond)
	var c collector

	d.Trigger(func() { c.add(1) })
	time.Sleep(60 * time.Millisecond)
	d.Trigger(func() { c.add(2) })
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, []int{1, 2}, c.snapshot())
}

func TestStop_CancelsPending(t *testing.T) {
	d := debounce.New(30 * time.Millisecond)
	var c collector

	d.Trigger(func() { c.add(1) })
	d.Stop()
	time.Sleep(80 * time.Millisecond)

	assert.Empty(t, c.snapshot())
}

func TestFlush_RunsPendingNow(t *testing.T) {
	d := debounce.New(time.Hour)
	var c collector

	d.Trigger(func() { c.add(7) })
	d.Flush()

	assert.Equal(t, []int{7}, c.snapshot())

	// Flush sin pendiente es no-op
	d.Flush()
	assert.Equal(t, []int{7}, c.snapshot())
}

package syncbus_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulaone/rolesync/internal/role"
	"github.com/aulaone/rolesync/internal/syncbus"
)

// recorder junta los roles recibidos por un listener.
type recorder struct {
	mu    sync.Mutex
	roles []*role.Role
}

func (r *recorder) listen(v *role.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles = append(r.roles, v)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roles)
}

func (r *recorder) last() *role.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.roles) == 0 {
		return nil
	}
	return r.roles[len(r.roles)-1]
}

func TestBroadcast_ReachesOtherManagerNotSelf(t *testing.T) {
	bus := syncbus.NewLoopback()
	a := syncbus.NewManager(bus, "test.channel")
	b := syncbus.NewManager(bus, "test.channel")
	require.NoError(t, a.Init())
	require.NoError(t, b.Init())
	defer a.Destroy()
	defer b.Destroy()

	var recA, recB recorder
	a.Subscribe(recA.listen)
	b.Subscribe(recB.listen)

	r := role.Creator
	a.BroadcastRoleUpdate(&r)

	require.Eventually(t, func() bool { return recB.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NotNil(t, recB.last())
	assert.Equal(t, role.Creator, *recB.last())

	// Self-echo: A nunca recibe sus propios broadcasts
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, recA.count())
}

func TestBroadcast_NilRoleIsCleared(t *testing.T) {
	bus := syncbus.NewLoopback()
	a := syncbus.NewManager(bus, "test.channel")
	b := syncbus.NewManager(bus, "test.channel")
	require.NoError(t, a.Init())
	require.NoError(t, b.Init())
	defer a.Destroy()
	defer b.Destroy()

	var rec recorder
	b.Subscribe(rec.listen)

	a.BroadcastRoleUpdate(nil)

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, rec.last())
}

func TestInit_Idempotent(t *testing.T) {
	bus := syncbus.NewLoopback()
	a := syncbus.NewManager(bus, "test.channel")
	b := syncbus.NewManager(bus, "test.channel")
	require.NoError(t, a.Init())
	require.NoError(t, a.Init())
	require.NoError(t, a.Init())
	require.NoError(t, b.Init())
	defer a.Destroy()
	defer b.Destroy()

	var rec recorder
	b.Subscribe(rec.listen)

	r := role.Admin
	a.BroadcastRoleUpdate(&r)

	// Un solo mensaje aunque Init se llamó tres veces
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestNilBus_AllOpsAreNoop(t *testing.T) {
	m := syncbus.NewManager(nil, "")
	assert.NotPanics(t, func() {
		require.NoError(t, m.Init())
		r := role.Student
		m.BroadcastRoleUpdate(&r)
		unsub := m.Subscribe(func(*role.Role) {})
		unsub()
		m.Destroy()
	})
}

func TestUnsubscribe_RemovesExactlyThatListener(t *testing.T) {
	bus := syncbus.NewLoopback()
	a := syncbus.NewManager(bus, "test.channel")
	b := syncbus.NewManager(bus, "test.channel")
	require.NoError(t, a.Init())
	require.NoError(t, b.Init())
	defer a.Destroy()
	defer b.Destroy()

	var rec1, rec2 recorder
	unsub1 := b.Subscribe(rec1.listen)
	b.Subscribe(rec2.listen)
	unsub1()

	r := role.Creator
	a.BroadcastRoleUpdate(&r)

	require.Eventually(t, func() bool { return rec2.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, rec1.count())
}

func TestMalformedMessageDropped(t *testing.T) {
	bus := syncbus.NewLoopback()
	m := syncbus.NewManager(bus, "test.channel")
	require.NoError(t, m.Init())
	defer m.Destroy()

	var rec recorder
	m.Subscribe(rec.listen)

	assert.NotPanics(t, func() {
		require.NoError(t, bus.Publish("test.channel", []byte("not json at all")))
		// Tipo desconocido también se descarta
		raw, _ := json.Marshal(map[string]any{"type": "mystery", "source_tab_id": "other"})
		require.NoError(t, bus.Publish("test.channel", raw))
	})

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestDestroy_ClearsListeners(t *testing.T) {
	bus := syncbus.NewLoopback()
	a := syncbus.NewManager(bus, "test.channel")
	b := syncbus.NewManager(bus, "test.channel")
	require.NoError(t, a.Init())
	require.NoError(t, b.Init())

	var rec recorder
	b.Subscribe(rec.listen)
	b.Destroy()

	r := role.Admin
	a.BroadcastRoleUpdate(&r)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.count())
	a.Destroy()
}

func TestTabIDsAreUnique(t *testing.T) {
	bus := syncbus.NewLoopback()
	a := syncbus.NewManager(bus, "c")
	b := syncbus.NewManager(bus, "c")
	assert.NotEqual(t, a.TabID(), b.TabID())
}

func TestRedisBus_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bus := syncbus.NewRedisBusWithClient(client)
	a := syncbus.NewManager(bus, "redis.channel")
	b := syncbus.NewManager(bus, "redis.channel")
	require.NoError(t, a.Init())
	require.NoError(t, b.Init())
	defer a.Destroy()
	defer b.Destroy()

	var recA, recB recorder
	a.Subscribe(recA.listen)
	b.Subscribe(recB.listen)

	r := role.Admin
	a.BroadcastRoleUpdate(&r)

	require.Eventually(t, func() bool { return recB.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NotNil(t, recB.last())
	assert.Equal(t, role.Admin, *recB.last())

	// Redis entrega el mensaje también a la conexión de A; el Manager
	// lo filtra por tab id
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, recA.count())
}

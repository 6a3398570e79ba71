package syncbus

import (
	"context"
	"sync"

	rdb "github.com/redis/go-redis/v9"
)

// RedisBus implementa Bus sobre redis pub/sub. Redis entrega los
// mensajes también a la conexión que publicó; el filtro de self-echo
// queda en el Manager.
type RedisBus struct {
	c *rdb.Client

	mu      sync.Mutex
	pubsubs []*rdb.PubSub
	cancels []context.CancelFunc
}

// NewRedisBus crea un RedisBus.
func NewRedisBus(addr string, db int) *RedisBus {
	return &RedisBus{c: rdb.NewClient(&rdb.Options{Addr: addr, DB: db})}
}

// NewRedisBusWithClient envuelve un cliente existente (tests, pools).
func NewRedisBusWithClient(c *rdb.Client) *RedisBus {
	return &RedisBus{c: c}
}

func (b *RedisBus) Publish(channel string, payload []byte) error {
	return b.c.Publish(context.Background(), channel, payload).Err()
}

func (b *RedisBus) Subscribe(channel string, handler func(payload []byte)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	ps := b.c.Subscribe(ctx, channel)

	// Esperar la confirmación de suscripción antes de retornar, así un
	// Publish inmediato no se pierde.
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, err
	}

	b.mu.Lock()
	b.pubsubs = append(b.pubsubs, ps)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	ch := ps.Channel()
	go func() {
		for msg := range ch {
			handler([]byte(msg.Payload))
		}
	}()

	return func() {
		cancel()
		_ = ps.Close()
	}, nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	for _, cancel := range b.cancels {
		cancel()
	}
	for _, ps := range b.pubsubs {
		_ = ps.Close()
	}
	b.pubsubs = nil
	b.cancels = nil
	b.mu.Unlock()
	return b.c.Close()
}

// Package syncbus mantiene el rol consistente entre sesiones abiertas del
// mismo usuario: un canal pub/sub con nombre por el que cada sesión
// publica cambios de rol y escucha los de las demás.
package syncbus

import "sync"

// Bus es el primitivo pub/sub de canal nombrado. Las entregas incluyen
// al propio publicador; el Manager filtra el self-echo por tab id.
type Bus interface {
	// Publish publica un payload en el canal.
	Publish(channel string, payload []byte) error

	// Subscribe registra un handler para el canal y retorna la función
	// que lo desuscribe.
	Subscribe(channel string, handler func(payload []byte)) (func(), error)

	// Close cierra el bus y corta todas las suscripciones.
	Close() error
}

// LoopbackBus es un Bus in-process: fan-out a todos los suscriptores del
// canal dentro del mismo proceso. Sirve para tests y para correr sin
// redis (consistencia de una sola sesión igual funciona).
type LoopbackBus struct {
	mu     sync.RWMutex
	subs   map[string]map[int]func([]byte)
	nextID int
	closed bool
}

// NewLoopback crea un LoopbackBus vacío.
func NewLoopback() *LoopbackBus {
	return &LoopbackBus{subs: make(map[string]map[int]func([]byte))}
}

func (b *LoopbackBus) Publish(channel string, payload []byte) error {
	b.mu.RLock()
	handlers := make([]func([]byte), 0, len(b.subs[channel]))
	for _, h := range b.subs[channel] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	// Entrega async, como un bus real
	for _, h := range handlers {
		h := h
		p := append([]byte(nil), payload...)
		go h(p)
	}
	return nil
}

func (b *LoopbackBus) Subscribe(channel string, handler func(payload []byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}, nil
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]func([]byte))
	}
	id := b.nextID
	b.nextID++
	b.subs[channel][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[channel], id)
	}, nil
}

func (b *LoopbackBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string]map[int]func([]byte))
	b.closed = true
	return nil
}

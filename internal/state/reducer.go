// Package state implementa la máquina de estados del rol: un reducer
// puro sobre acciones tagged-union, el orchestrator que compone cache,
// sync, retry y debounce, y el guard supervisor que degrada en vez de
// crashear.
package state

import (
	"time"

	"github.com/aulaone/rolesync/internal/role"
)

// RoleState es la única fuente de verdad expuesta a los consumidores.
// La muta exclusivamente el reducer; nadie escribe campos directo.
type RoleState struct {
	Role        *role.Role `json:"role"`
	IsLoading   bool       `json:"isLoading"`
	Err         string     `json:"error,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// Action es el tagged union de transiciones. Cada variante es un struct
// cerrado; el reducer es exhaustivo sobre ellas.
type Action interface{ isAction() }

// FetchStart marca el inicio de una resolución de rol (loading → ...).
type FetchStart struct{}

// FetchSuccess lleva el rol resuelto (→ ready).
type FetchSuccess struct {
	Role role.Role
	At   time.Time
}

// FetchError lleva el mensaje derivado del fallo y el rol de fallback
// que mantiene usable al resto de la aplicación (→ error con rol).
type FetchError struct {
	Message  string
	Fallback role.Role
	At       time.Time
}

// RoleCleared es el sign-out o clear explícito (→ cleared).
type RoleCleared struct{}

// RemoteUpdate es un mensaje de otra sesión, ya validado allá: se aplica
// directo sin re-derivar. Role nil significa cleared remoto.
type RemoteUpdate struct {
	Role *role.Role
	At   time.Time
}

func (FetchStart) isAction()   {}
func (FetchSuccess) isAction() {}
func (FetchError) isAction()   {}
func (RoleCleared) isAction()  {}
func (RemoteUpdate) isAction() {}

// Reduce es la función de transición pura: estado + acción → estado.
// No toca relojes, caches ni buses.
func Reduce(s RoleState, a Action) RoleState {
	switch act := a.(type) {
	case FetchStart:
		s.IsLoading = true
		s.Err = ""
		return s

	case FetchSuccess:
		r := act.Role
		at := act.At
		return RoleState{Role: &r, LastUpdated: &at}

	case FetchError:
		fb := act.Fallback
		at := act.At
		return RoleState{Role: &fb, Err: act.Message, LastUpdated: &at}

	case RoleCleared:
		return RoleState{}

	case RemoteUpdate:
		if act.Role == nil {
			return RoleState{}
		}
		r := *act.Role
		at := act.At
		return RoleState{Role: &r, LastUpdated: &at}

	default:
		return s
	}
}

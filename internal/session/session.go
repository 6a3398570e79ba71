// Package session define el contrato con el colaborador externo de
// sesión (el identity provider del lado cliente). Este core no emite ni
// verifica tokens; solo pide "el token firmado actual" y observa quién
// está logueado.
package session

import "context"

// Session es la vista del colaborador de sesión.
type Session interface {
	// Token retorna el token firmado actual (JWS compacto) o error si
	// no hay sesión o el provider no responde.
	Token(ctx context.Context) (string, error)

	// UserID retorna el identificador del usuario autenticado, o vacío.
	UserID() string

	// SignedIn reporta si hay una sesión autenticada.
	SignedIn() bool
}

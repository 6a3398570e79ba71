// Package role define el conjunto cerrado de roles de la plataforma
// y la extracción de rol desde claims validadas.
//
// Tres niveles, ordenados por privilegio: student < creator < admin.
// Cualquier valor fuera del conjunto se trata como inválido y cae al
// default de menor privilegio.
package role

// Role es un nivel de autorización de la plataforma.
type Role string

const (
	Student Role = "student"
	Creator Role = "creator"
	Admin   Role = "admin"
)

// Default es el rol de menor privilegio. Es el fallback para claims sin
// rol, valores fuera del conjunto y degradación por errores.
const Default = Student

// levels mapea cada rol a su nivel de privilegio.
var levels = map[Role]int{
	Student: 0,
	Creator: 1,
	Admin:   2,
}

// Valid reporta si r pertenece al conjunto cerrado.
func (r Role) Valid() bool {
	_, ok := levels[r]
	return ok
}

// Level retorna el nivel de privilegio (0 = student). Roles inválidos
// retornan -1.
func (r Role) Level() int {
	if lvl, ok := levels[r]; ok {
		return lvl
	}
	return -1
}

// AtLeast reporta si r tiene al menos el privilegio de other.
// Roles inválidos nunca alcanzan ningún nivel.
func (r Role) AtLeast(other Role) bool {
	if !r.Valid() || !other.Valid() {
		return false
	}
	return r.Level() >= other.Level()
}

func (r Role) String() string { return string(r) }

// Parse intenta convertir un string al rol correspondiente.
func Parse(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// FromClaim mapea el valor del claim "role" a un Role.
// Valor dentro del conjunto → se retorna tal cual.
// Claim ausente (string vacío) o valor inválido → Default.
// Pura y total: nunca falla.
func FromClaim(s string) Role {
	if r, ok := Parse(s); ok {
		return r
	}
	return Default
}

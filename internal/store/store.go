// Package store provee el storage persistente key→string que respalda al
// role cache entre recargas de una sesión.
//
// Soporta:
//   - File (JSON en disco, scoped a la sesión local)
//   - Redis (compartido, para despliegues con redis disponible)
//
// Toda operación puede fallar (quota, permisos, red); el caller decide
// cómo degradar. El cache manager degrada a memoria-solo.
package store

// Store define las operaciones del storage persistente.
type Store interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(key string) (string, error)

	// Set guarda un valor.
	Set(key, value string) error

	// Remove elimina una key.
	Remove(key string) error

	// Clear elimina todas las keys del store.
	Clear() error
}

// Config configuración para crear un store.
type Config struct {
	Driver string // "file" | "redis"
	Path   string // file: ruta del archivo JSON
	Addr   string // redis: host:port
	DB     int    // redis: número de DB
	Prefix string // redis: prefijo para todas las keys
}

// Errores de store.
var (
	ErrNotFound = errNotFound{}
)

type errNotFound struct{}

func (e errNotFound) Error() string { return "store: key not found" }

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New crea un store según la configuración.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg.Addr, cfg.DB, cfg.Prefix), nil
	case "file", "":
		return NewFile(cfg.Path)
	default:
		return NewFile(cfg.Path)
	}
}

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persiste un map key→string como JSON en un único archivo.
// Las escrituras son atómicas (tmp + rename) para que un crash a mitad
// de escritura no corrompa el archivo. Windows-safe: si rename falla,
// intenta remove+rename.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFile crea un FileStore sobre path, creando el directorio si falta.
func NewFile(path string) (*FileStore, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "rolesync", "store.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	data[key] = value
	return f.save(data)
}

func (f *FileStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return f.save(data)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// load lee el archivo completo. Archivo ausente o corrupto → map vacío;
// un store ilegible se trata como vacío, no como fatal.
func (f *FileStore) load() (map[string]string, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	var data map[string]string
	if err := json.Unmarshal(b, &data); err != nil || data == nil {
		return map[string]string{}, nil
	}
	return data, nil
}

// save escribe el map de forma atómica.
// Pasos: write tmp → Sync → Close → Chmod → Rename (fallback Windows-safe)
func (f *FileStore) save(data map[string]string) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	// CreateTemp para evitar colisiones entre escrituras concurrentes
	tmp, err := os.CreateTemp(dir, ".store-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return err
	}

	// En Windows, rename puede fallar si el destino existe/está bloqueado.
	// remove+rename preserva el tmp si algo sale mal.
	if err := os.Rename(tmpName, f.path); err != nil {
		if rmErr := os.Remove(f.path); rmErr != nil && !os.IsNotExist(rmErr) {
			cleanup()
			return err
		}
		if err2 := os.Rename(tmpName, f.path); err2 != nil {
			cleanup()
			return err2
		}
	}
	return nil
}

// Package config carga la configuración YAML del daemon con defaults
// sanos y overrides por variables de entorno.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Session struct {
		// UserID/Token estáticos para el colaborador de sesión del
		// daemon. Overrideables con SESSION_USER_ID / SESSION_TOKEN.
		UserID string `yaml:"user_id"`
		Token  string `yaml:"token"`
	} `yaml:"session"`

	Store struct {
		Driver string `yaml:"driver"` // file | redis
		Path   string `yaml:"path"`   // file
		Redis  struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"store"`

	Sync struct {
		Driver  string `yaml:"driver"` // redis | loopback | off
		Channel string `yaml:"channel"`
		Redis   struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"sync"`

	Role struct {
		TTL          string `yaml:"ttl"`
		FallbackTTL  string `yaml:"fallback_ttl"`
		MaxAttempts  int    `yaml:"max_attempts"`
		BaseDelay    string `yaml:"base_delay"`
		DebounceWait string `yaml:"debounce_wait"`
	} `yaml:"role"`
}

// Load lee el YAML en path y aplica defaults. Path vacío → solo defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8087"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "file"
	}
	if c.Sync.Driver == "" {
		c.Sync.Driver = "loopback"
	}
	if c.Sync.Channel == "" {
		c.Sync.Channel = "rolesync.role"
	}
	if c.Role.TTL == "" {
		c.Role.TTL = "5m"
	}
	if c.Role.FallbackTTL == "" {
		c.Role.FallbackTTL = "30s"
	}
	if c.Role.MaxAttempts == 0 {
		c.Role.MaxAttempts = 3
	}
	if c.Role.BaseDelay == "" {
		c.Role.BaseDelay = "250ms"
	}
	if c.Role.DebounceWait == "" {
		c.Role.DebounceWait = "300ms"
	}

	// env overrides
	if v := os.Getenv("SESSION_USER_ID"); v != "" {
		c.Session.UserID = v
	}
	if v := os.Getenv("SESSION_TOKEN"); v != "" {
		c.Session.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
		c.Sync.Redis.Addr = v
	}

	return &c, nil
}

// RoleTTL retorna el TTL parseado (fallback al default si es inválido).
func (c *Config) RoleTTL() time.Duration { return parseDur(c.Role.TTL, 5*time.Minute) }

// FallbackTTL retorna el TTL corto de degradación.
func (c *Config) FallbackTTL() time.Duration { return parseDur(c.Role.FallbackTTL, 30*time.Second) }

// BaseDelay retorna la base del backoff.
func (c *Config) BaseDelay() time.Duration { return parseDur(c.Role.BaseDelay, 250*time.Millisecond) }

// DebounceWait retorna la ventana de debounce.
func (c *Config) DebounceWait() time.Duration {
	return parseDur(c.Role.DebounceWait, 300*time.Millisecond)
}

func parseDur(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

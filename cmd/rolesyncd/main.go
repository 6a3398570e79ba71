// rolesyncd hostea el role-state core detrás de un HTTP surface mínimo.
// El resto de la plataforma (cursos, enrollment, dashboards) consume
// /v1/role; este daemon solo es dueño del estado del rol.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aulaone/rolesync/internal/cache"
	"github.com/aulaone/rolesync/internal/config"
	httpserver "github.com/aulaone/rolesync/internal/http"
	"github.com/aulaone/rolesync/internal/metrics"
	"github.com/aulaone/rolesync/internal/observability/logger"
	"github.com/aulaone/rolesync/internal/session"
	"github.com/aulaone/rolesync/internal/state"
	"github.com/aulaone/rolesync/internal/store"
	"github.com/aulaone/rolesync/internal/syncbus"
)

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:          "rolesyncd",
		Short:        "Role-state daemon: resolución, cache y sincronización de roles",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgPath)
		},
	}
	root.Flags().StringVarP(&cfgPath, "config", "c", os.Getenv("CONFIG_PATH"), "ruta del YAML de configuración")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	// .env primero: las overrides de entorno aplican en config.Load
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "rolesyncd",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	if err := metrics.Register(nil); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// Store persistente: best-effort, sin store se degrada a memoria
	var st store.Store
	st, err = store.New(store.Config{
		Driver: cfg.Store.Driver,
		Path:   cfg.Store.Path,
		Addr:   cfg.Store.Redis.Addr,
		DB:     cfg.Store.Redis.DB,
		Prefix: cfg.Store.Redis.Prefix,
	})
	if err != nil {
		log.Warn("persistent store unavailable, running memory-only", logger.Err(err))
		st = nil
	}

	cacheMgr := cache.New(st)
	cache.SetDefault(cacheMgr)

	// Bus de sincronización entre sesiones
	var bus syncbus.Bus
	switch cfg.Sync.Driver {
	case "redis":
		bus = syncbus.NewRedisBus(cfg.Sync.Redis.Addr, cfg.Sync.Redis.DB)
	case "off":
		bus = nil // single-session
	default:
		bus = syncbus.NewLoopback()
	}
	syncMgr := syncbus.NewManager(bus, cfg.Sync.Channel)

	sess := session.NewStatic(cfg.Session.UserID, cfg.Session.Token)

	orch := state.New(sess, cacheMgr, syncMgr, state.Config{
		MaxAttempts:  cfg.Role.MaxAttempts,
		BaseDelay:    cfg.BaseDelay(),
		RoleTTL:      cfg.RoleTTL(),
		FallbackTTL:  cfg.FallbackTTL(),
		DebounceWait: cfg.DebounceWait(),
	})
	defer orch.Close()
	orch.Start()

	log.Info("rolesyncd listening",
		logger.String("addr", cfg.Server.Addr),
		logger.String("sync_driver", cfg.Sync.Driver),
		logger.String("store_driver", cfg.Store.Driver),
	)
	return httpserver.Start(cfg.Server.Addr, httpserver.NewRouter(orch))
}

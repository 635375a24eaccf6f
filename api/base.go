// Package api wires the edge node's HTTP surface: chi router, shared
// middleware, the local store, device pool, remote client, and every core
// service, following the teacher's internal/adapter/handler/http/base.go
// API{}/New(enableCORS) convention.
package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/moto-nrw/fingerprint-edge/internal/adapter/handler/http/fingerprint"
	"github.com/moto-nrw/fingerprint-edge/internal/adapter/handler/http/students"
	"github.com/moto-nrw/fingerprint-edge/internal/adapter/handler/http/ws"
	appmiddleware "github.com/moto-nrw/fingerprint-edge/internal/adapter/middleware"
	"github.com/moto-nrw/fingerprint-edge/internal/adapter/realtime"
	"github.com/moto-nrw/fingerprint-edge/internal/adapter/remoteclient"
	"github.com/moto-nrw/fingerprint-edge/internal/adapter/repository/mongo"
	"github.com/moto-nrw/fingerprint-edge/internal/adapter/scanner/zk"
	"github.com/moto-nrw/fingerprint-edge/internal/config"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/allocator"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/attendance"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/connectivity"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/decision"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/devicepool"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/enrollment"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/syncworker"
)

// API holds every wired component the edge process needs, mirroring the
// teacher's Services-factory/Resource-bag shape but built directly (this
// module has no multi-tenant repository factory to thread through).
type API struct {
	Router chi.Router

	Store       *mongo.Store
	RealtimeHub *realtime.Hub
	Devices     *devicepool.Registry
	Allocator   *allocator.Allocator
	SyncWorker  *syncworker.Worker

	Students    *students.Resource
	Fingerprint *fingerprint.Resource
	WS          *ws.Resource
}

// New builds the full API: local store connection, remote client,
// connectivity prober, device pool, every core service, and the three
// HTTP resources, then mounts them onto a chi router.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*API, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.DatabaseName)
	if err != nil {
		return nil, fmt.Errorf("api: connect local store: %w", err)
	}

	remote := remoteclient.New(cfg.HostRemoteURL)
	probe := connectivity.New(cfg.HostRemoteURL)
	hub := realtime.NewHub(logger)

	scanner := zk.New()
	deviceConfigs := devicepool.LoadConfig(cfg.DeviceConfigPath)
	devices := devicepool.NewRegistry(scanner, deviceConfigs, logger)

	alloc := allocator.New(store)
	arbiter := decision.New(store, remote, hub, logger)
	enrollmentOrch := enrollment.New(store, alloc, devices, remote, probe, hub, logger)
	attendanceOrch := attendance.New(store, remote, probe, hub, arbiter, logger)
	syncWorker := syncworker.New(store, remote, probe, hub, logger)

	a := &API{
		Router:      chi.NewRouter(),
		Store:       store,
		RealtimeHub: hub,
		Devices:     devices,
		Allocator:   alloc,
		SyncWorker:  syncWorker,
		Students:    students.NewResource(enrollmentOrch, devices, alloc, store, probe, logger),
		Fingerprint: fingerprint.NewResource(devices, attendanceOrch, arbiter, store, logger),
		WS:          ws.NewResource(hub, arbiter, logger),
	}

	setupMiddleware(a.Router)
	a.mountRoutes()

	return a, nil
}

func setupMiddleware(router chi.Router) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appmiddleware.WideEventMiddleware)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (a *API) mountRoutes() {
	a.Router.Mount("/students", a.Students.Router())
	a.Router.Mount("/fingerprint", a.Fingerprint.Router())
	a.Router.Mount("/fingerprint/ws", a.WS.Router())
}

// Close releases the local store connection. Callers should invoke this
// during graceful shutdown, after the sync worker and capture loops have
// stopped.
func (a *API) Close(ctx context.Context) error {
	a.Devices.StopAll()
	return a.Store.Close(ctx)
}

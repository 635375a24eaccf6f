// Package students implements the operator-facing student/registration
// surface of spec.md §6: enrollment, fingerprint removal, listing, the
// admin counter reset, and the deferred-queue inspection endpoints,
// following the teacher's Resource/NewResource/Router() handler-package
// convention (see internal/adapter/handler/http/students/api.go).
package students

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/moto-nrw/fingerprint-edge/internal/adapter/handler/http/common"
	appmiddleware "github.com/moto-nrw/fingerprint-edge/internal/adapter/middleware"
	"github.com/moto-nrw/fingerprint-edge/internal/adapter/middleware/deviceauth"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/student"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/allocator"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/devicepool"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/enrollment"
)

// Resource wires the enrollment orchestrator, device registry, allocator,
// local store, and connectivity probe into the /students HTTP surface.
type Resource struct {
	enrollment *enrollment.Orchestrator
	devices    *devicepool.Registry
	allocator  *allocator.Allocator
	store      port.LocalStore
	probe      port.Probe
	logger     *slog.Logger
}

// NewResource builds a students Resource.
func NewResource(enrollmentOrch *enrollment.Orchestrator, devices *devicepool.Registry, alloc *allocator.Allocator, store port.LocalStore, probe port.Probe, logger *slog.Logger) *Resource {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resource{
		enrollment: enrollmentOrch,
		devices:    devices,
		allocator:  alloc,
		store:      store,
		probe:      probe,
		logger:     logger,
	}
}

// Router returns the configured /students router.
func (rs *Resource) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Group(func(r chi.Router) {
		r.Use(deviceauth.RequireBearerToken)
		r.Post("/register", rs.register)
		r.Post("/init-counter", rs.initCounter)
	})

	r.Delete("/delete_fingerprint/{uid}", rs.deleteFingerprint)
	r.Delete("/delete_from_all_devices/{uid}", rs.deleteFromAllDevices)
	r.Get("/", rs.listStudents)
	r.Get("/connectivity-status", rs.connectivityStatus)
	r.Get("/fingerprint-device-status", rs.deviceStatus)
	r.Get("/missing-students", rs.missingStudents)
	r.Post("/sync-missing-students", rs.syncMissingStudents)
	r.Post("/cleanup-synced-students", rs.cleanupSyncedStudents)

	return r
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Level     string `json:"level"`
}

type registerResponse struct {
	UID       int    `json:"uid"`
	StudentID string `json:"student_id"`
	Offline   bool   `json:"offline"`
}

func (rs *Resource) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		common.RenderError(w, r, common.ErrorInvalidRequest(err))
		return
	}

	result, err := rs.enrollment.Register(r.Context(), enrollment.Request{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Level:     req.Level,
		AuthToken: deviceauth.AuthTokenFromCtx(r.Context()),
	})
	if err != nil {
		rs.renderEnrollError(w, r, err)
		return
	}
	appmiddleware.WithStudentUID(r.Context(), result.Student.UID)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, registerResponse{
		UID:       result.Student.UID,
		StudentID: result.Student.StudentID,
		Offline:   result.Offline,
	})
}

func (rs *Resource) renderEnrollError(w http.ResponseWriter, r *http.Request, err error) {
	var policyErr *port.RemotePolicyRejectError
	if errors.As(err, &policyErr) {
		common.RenderError(w, r, common.ErrorInvalidRequest(err))
		return
	}
	rs.logger.Error("registration failed", slog.Any("error", err))
	common.RenderError(w, r, common.ErrorConflict(err))
}

func (rs *Resource) deleteFingerprint(w http.ResponseWriter, r *http.Request) {
	uid, err := parseUID(r)
	if err != nil {
		common.RenderError(w, r, common.ErrorInvalidRequest(err))
		return
	}
	appmiddleware.WithStudentUID(r.Context(), uid)

	rs.deleteFromDevices(r.Context(), uid)

	if err := rs.store.DeleteStudent(r.Context(), uid); err != nil {
		common.RenderError(w, r, common.ErrorInternalServer(err))
		return
	}

	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

func (rs *Resource) deleteFromAllDevices(w http.ResponseWriter, r *http.Request) {
	uid, err := parseUID(r)
	if err != nil {
		common.RenderError(w, r, common.ErrorInvalidRequest(err))
		return
	}
	appmiddleware.WithStudentUID(r.Context(), uid)

	rs.deleteFromDevices(r.Context(), uid)

	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

// deleteFromDevices best-effort removes uid from every enabled device.
// Per-device failures are logged, never surfaced: a student not present
// on a given device is not an error.
func (rs *Resource) deleteFromDevices(ctx context.Context, uid int) {
	for _, d := range rs.devices.Enabled() {
		handle, err := rs.devices.ConnectForOp(ctx, d.DeviceID, "admin-delete", enrollment.DefaultConnectTimeout)
		if err != nil {
			rs.logger.Warn("could not connect to device for delete", slog.String("device_id", d.DeviceID), slog.Any("error", err))
			continue
		}
		if err := handle.DeleteUser(ctx, uid); err != nil {
			rs.logger.Warn("failed to delete user from device", slog.String("device_id", d.DeviceID), slog.Int("uid", uid), slog.Any("error", err))
		}
		rs.devices.ReleaseOp(d.DeviceID, handle)
	}
}

func (rs *Resource) listStudents(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 0)

	list, err := rs.store.ListStudents(r.Context(), skip, limit)
	if err != nil {
		common.RenderError(w, r, common.ErrorInternalServer(err))
		return
	}
	render.JSON(w, r, list)
}

func (rs *Resource) initCounter(w http.ResponseWriter, r *http.Request) {
	startValue := queryInt(r, "start_value", -1)
	if startValue < 0 {
		common.RenderError(w, r, common.ErrorInvalidRequest(errStartValueRequired))
		return
	}

	if err := rs.allocator.Initialize(r.Context(), startValue); err != nil {
		common.RenderError(w, r, common.ErrorInternalServer(err))
		return
	}

	render.JSON(w, r, map[string]any{"start_value": startValue})
}

func (rs *Resource) connectivityStatus(w http.ResponseWriter, r *http.Request) {
	online := rs.probe.IsOnline(r.Context(), 0)
	render.JSON(w, r, map[string]any{"online": online})
}

type deviceStatusResponse struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Enabled  bool   `json:"enabled"`
	Status   string `json:"status"`
}

func (rs *Resource) deviceStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := rs.devices.Snapshot()
	out := make([]deviceStatusResponse, 0, len(snapshot))
	for _, d := range snapshot {
		out = append(out, deviceStatusResponse{
			DeviceID: d.DeviceID,
			Name:     d.Name,
			Location: d.Location,
			Enabled:  d.Enabled,
			Status:   string(d.Status),
		})
	}
	render.JSON(w, r, out)
}

func (rs *Resource) missingStudents(w http.ResponseWriter, r *http.Request) {
	rows, err := rs.store.ListMissingStudents(r.Context())
	if err != nil {
		common.RenderError(w, r, common.ErrorInternalServer(err))
		return
	}

	breakdown := map[student.SyncStatus]int{}
	for _, m := range rows {
		breakdown[m.SyncStatus]++
	}

	render.JSON(w, r, map[string]any{
		"students":  rows,
		"breakdown": breakdown,
		"total":     len(rows),
	})
}

// syncMissingStudents is informational: sync is always background-driven
// by the sync worker's own interval (spec.md §6).
func (rs *Resource) syncMissingStudents(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"message": "sync is performed automatically in the background; this endpoint does not trigger an immediate pass",
	})
}

// cleanupSyncedStudents sweeps any MissingStudent row left in the synced
// state by a crash between the status save and the row delete, the same
// straggler condition the sync worker's own pass tidies up opportunistically
// (spec.md §4.10 step 5).
func (rs *Resource) cleanupSyncedStudents(w http.ResponseWriter, r *http.Request) {
	rows, err := rs.store.ListMissingStudents(r.Context())
	if err != nil {
		common.RenderError(w, r, common.ErrorInternalServer(err))
		return
	}

	removed := 0
	for _, m := range rows {
		if m.SyncStatus != student.SyncSynced {
			continue
		}
		if err := rs.store.DeleteMissingStudent(r.Context(), m.UID); err != nil {
			rs.logger.Warn("failed to clean up stuck synced row", slog.Int("uid", m.UID), slog.Any("error", err))
			continue
		}
		removed++
	}

	render.JSON(w, r, map[string]any{"removed": removed})
}

func parseUID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "uid"))
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

var errStartValueRequired = &invalidQueryError{Param: "start_value"}

type invalidQueryError struct {
	Param string
}

func (e *invalidQueryError) Error() string {
	return "missing or invalid query parameter: " + e.Param
}

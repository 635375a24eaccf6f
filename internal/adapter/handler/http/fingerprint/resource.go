// Package fingerprint implements the capture-control and operator-decision
// surface of spec.md §6: starting/stopping the device pool's capture
// loops, device status/test-connection, per-student attendance lookup,
// and the pending-decision queue, following the teacher's
// Resource/NewResource/Router() handler-package convention.
package fingerprint

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/moto-nrw/fingerprint-edge/internal/adapter/handler/http/common"
	appmiddleware "github.com/moto-nrw/fingerprint-edge/internal/adapter/middleware"
	decisiondomain "github.com/moto-nrw/fingerprint-edge/internal/core/domain/decision"
	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/device"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/attendance"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/decision"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/devicepool"
)

// connectTimeout bounds both StartAll and the per-device test-connection
// probe, matching the enrollment path's connect budget (spec.md §4.2).
const connectTimeout = 10 * time.Second

// Resource wires the device registry, attendance orchestrator, decision
// arbiter, and local store into the /fingerprint HTTP surface.
type Resource struct {
	devices    *devicepool.Registry
	attendance *attendance.Orchestrator
	arbiter    *decision.Arbiter
	store      port.LocalStore
	logger     *slog.Logger
}

// NewResource builds a fingerprint Resource.
func NewResource(devices *devicepool.Registry, attendanceOrch *attendance.Orchestrator, arbiter *decision.Arbiter, store port.LocalStore, logger *slog.Logger) *Resource {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resource{
		devices:    devices,
		attendance: attendanceOrch,
		arbiter:    arbiter,
		store:      store,
		logger:     logger,
	}
}

// Router returns the configured /fingerprint router.
func (rs *Resource) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/start_attendance", rs.startAttendance)
	r.Post("/stop_attendance", rs.stopAttendance)
	r.Get("/attendance-status", rs.attendanceStatus)

	r.Get("/devices", rs.listDevices)
	r.Get("/devices/{id}", rs.getDevice)
	r.Post("/devices/{id}/test-connection", rs.testConnection)

	r.Get("/student-attendance/{uid}", rs.studentAttendance)

	r.Get("/pending-decisions", rs.pendingDecisions)
	r.Post("/assistant-decision/{decisionID}", rs.assistantDecision)

	return r
}

func (rs *Resource) startAttendance(w http.ResponseWriter, r *http.Request) {
	started, failed, err := rs.devices.StartAll(r.Context(), connectTimeout, rs.attendance.CaptureLoop)
	if err != nil {
		var alreadyRunning *devicepool.ErrAlreadyRunning
		if errors.As(err, &alreadyRunning) {
			common.RenderError(w, r, common.ErrorConflict(err))
			return
		}
		common.RenderError(w, r, common.ErrorInvalidRequest(err))
		return
	}

	failedMsgs := make(map[string]string, len(failed))
	for id, ferr := range failed {
		failedMsgs[id] = ferr.Error()
	}
	render.JSON(w, r, map[string]any{"started": started, "failed": failedMsgs})
}

func (rs *Resource) stopAttendance(w http.ResponseWriter, r *http.Request) {
	rs.devices.StopAll()
	render.JSON(w, r, map[string]string{"message": "capture stopped"})
}

func (rs *Resource) attendanceStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"running":             rs.devices.IsRunning(),
		"active_device_count": rs.devices.ActiveDeviceCount(),
	})
}

type deviceResponse struct {
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Enabled  bool   `json:"enabled"`
	Status   string `json:"status"`
}

func (rs *Resource) listDevices(w http.ResponseWriter, r *http.Request) {
	snapshot := rs.devices.Snapshot()
	out := make([]deviceResponse, 0, len(snapshot))
	for _, d := range snapshot {
		out = append(out, toDeviceResponse(d))
	}
	render.JSON(w, r, out)
}

func (rs *Resource) getDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	appmiddleware.WithDeviceID(r.Context(), id)
	d, ok := rs.devices.Get(id)
	if !ok {
		common.RenderError(w, r, common.ErrorNotFound(&devicepool.ErrUnknownDevice{DeviceID: id}))
		return
	}
	render.JSON(w, r, toDeviceResponse(d))
}

func (rs *Resource) testConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	appmiddleware.WithDeviceID(r.Context(), id)

	handle, err := rs.devices.ConnectForOp(r.Context(), id, "test-connection", connectTimeout)
	if err != nil {
		var unknown *devicepool.ErrUnknownDevice
		if errors.As(err, &unknown) {
			common.RenderError(w, r, common.ErrorNotFound(err))
			return
		}
		render.JSON(w, r, map[string]any{"reachable": false, "error": err.Error()})
		return
	}
	rs.devices.ReleaseOp(id, handle)

	render.JSON(w, r, map[string]any{"reachable": true})
}

func (rs *Resource) studentAttendance(w http.ResponseWriter, r *http.Request) {
	uid, err := parseUID(r)
	if err != nil {
		common.RenderError(w, r, common.ErrorInvalidRequest(err))
		return
	}
	appmiddleware.WithStudentUID(r.Context(), uid)

	st, err := rs.store.FindStudentByUID(r.Context(), uid)
	if err != nil {
		common.RenderError(w, r, common.ErrorInternalServer(err))
		return
	}
	if st == nil {
		common.RenderError(w, r, common.ErrorNotFound(&notFoundError{UID: uid}))
		return
	}

	render.JSON(w, r, map[string]any{"uid": st.UID, "attendance": st.Attendance})
}

func (rs *Resource) pendingDecisions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, rs.arbiter.List())
}

func (rs *Resource) assistantDecision(w http.ResponseWriter, r *http.Request) {
	decisionID := chi.URLParam(r, "decisionID")
	appmiddleware.WithDecisionID(r.Context(), decisionID)
	raw := r.URL.Query().Get("decision")

	var verdict decisiondomain.Verdict
	switch raw {
	case string(decisiondomain.VerdictApprove):
		verdict = decisiondomain.VerdictApprove
	case string(decisiondomain.VerdictReject):
		verdict = decisiondomain.VerdictReject
	default:
		common.RenderError(w, r, common.ErrorInvalidRequest(&invalidDecisionError{Value: raw}))
		return
	}

	if err := rs.arbiter.Resolve(r.Context(), decisionID, verdict); err != nil {
		var notFound *decision.ErrDecisionNotFound
		if errors.As(err, &notFound) {
			common.RenderError(w, r, common.ErrorNotFound(err))
			return
		}
		common.RenderError(w, r, common.ErrorInternalServer(err))
		return
	}

	render.JSON(w, r, map[string]string{"decision_id": decisionID, "decision": raw})
}

func toDeviceResponse(d *device.Device) deviceResponse {
	return deviceResponse{
		DeviceID: d.DeviceID,
		IP:       d.IP,
		Port:     d.Port,
		Name:     d.Name,
		Location: d.Location,
		Enabled:  d.Enabled,
		Status:   string(d.Status),
	}
}

func parseUID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "uid"))
}

// notFoundError reports an unknown student uid on the attendance lookup
// endpoint.
type notFoundError struct {
	UID int
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("no student with uid %d", e.UID)
}

// invalidDecisionError reports an assistant-decision call with a
// decision query value other than approve/reject.
type invalidDecisionError struct {
	Value string
}

func (e *invalidDecisionError) Error() string {
	return fmt.Sprintf("invalid decision %q: must be approve or reject", e.Value)
}

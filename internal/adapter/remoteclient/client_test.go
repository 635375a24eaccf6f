package remoteclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/adapter/remoteclient"
	"github.com/moto-nrw/fingerprint-edge/internal/core/port"
	"github.com/stretchr/testify/require"
)

func TestClient_NextIDs_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/students/next-ids", r.URL.Path)
		w.Write([]byte(`{"uid": 20001, "student_id": "20001"}`))
	}))
	defer srv.Close()

	c := remoteclient.New(srv.URL)
	got, err := c.NextIDs(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 20001, got.UID)
	require.Equal(t, "20001", got.StudentID)
}

func TestClient_CreateStudent_BlacklistRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail": "student is blacklisted"}`))
	}))
	defer srv.Close()

	c := remoteclient.New(srv.URL)
	err := c.CreateStudent(context.Background(), "token", map[string]any{"uid": 1})
	require.Error(t, err)
	var target *port.RemotePolicyRejectError
	require.ErrorAs(t, err, &target)
	require.Equal(t, port.PolicyBlacklist, target.Kind)
}

func TestClient_StudentExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/students/5":
			w.WriteHeader(http.StatusOK)
		case "/students/6":
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := remoteclient.New(srv.URL)

	exists, err := c.StudentExists(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = c.StudentExists(context.Background(), 6)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestClient_PostAttendance_ScheduleRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`"Attendance not allowed on Monday"`))
	}))
	defer srv.Close()

	c := remoteclient.New(srv.URL)
	err := c.PostAttendance(context.Background(), 1, time.Now(), false)
	require.Error(t, err)
	var target *port.RemotePolicyRejectError
	require.ErrorAs(t, err, &target)
	require.Equal(t, port.PolicySchedule, target.Kind)
}

func TestClient_PostAttendance_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := remoteclient.New(srv.URL)
	require.NoError(t, c.PostAttendance(context.Background(), 1, time.Now(), false))
}

func TestClient_StudentByStudentID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/students/by-student-id/20001", r.URL.Path)
		w.Write([]byte(`{"_id": "abc123", "student_id": "20001"}`))
	}))
	defer srv.Close()

	c := remoteclient.New(srv.URL)
	got, err := c.StudentByStudentID(context.Background(), "token", "20001")
	require.NoError(t, err)
	require.Equal(t, "abc123", got["_id"])
}

func TestClient_Exam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/exams/exam-1", r.URL.Path)
		w.Write([]byte(`{"id": "exam-1"}`))
	}))
	defer srv.Close()

	c := remoteclient.New(srv.URL)
	got, err := c.Exam(context.Background(), "token", "exam-1")
	require.NoError(t, err)
	require.Equal(t, "exam-1", got["id"])
}

func TestClient_PostExamResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/exams/exam-1/results", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := remoteclient.New(srv.URL)
	require.NoError(t, c.PostExamResults(context.Background(), "token", "exam-1", map[string]any{"score": 90}))
}

func TestClient_PutExamStudentResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/exams/exam-1/students/20001/results", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := remoteclient.New(srv.URL)
	require.NoError(t, c.PutExamStudentResults(context.Background(), "token", "exam-1", "20001", map[string]any{"score": 90}))
}

func TestClient_NetworkUnavailable_IsOfflineRoutable(t *testing.T) {
	c := remoteclient.New("http://127.0.0.1:1")
	_, err := c.NextIDs(context.Background(), "")
	require.Error(t, err)
	require.True(t, port.IsOfflineRoutable(err))
}

func TestClient_Timeout_IsOfflineRoutable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := remoteclient.New(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := c.NextIDs(ctx, "")
	require.Error(t, err)
	require.True(t, port.IsOfflineRoutable(err))
}

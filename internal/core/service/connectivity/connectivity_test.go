package connectivity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/core/service/connectivity"
	"github.com/stretchr/testify/assert"
)

func TestProber_IsOnline(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   bool
	}{
		{"200 is reachable", http.StatusOK, true},
		{"401 is reachable", http.StatusUnauthorized, true},
		{"500 is offline", http.StatusInternalServerError, false},
		{"404 is offline", http.StatusNotFound, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			p := connectivity.New(srv.URL)
			assert.Equal(t, tc.want, p.IsOnline(context.Background(), time.Second))
		})
	}
}

func TestProber_IsOnline_Unreachable(t *testing.T) {
	p := connectivity.New("http://127.0.0.1:1")
	assert.False(t, p.IsOnline(context.Background(), 200*time.Millisecond))
}

func TestProber_IsOnline_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := connectivity.New(srv.URL)
	assert.False(t, p.IsOnline(context.Background(), 10*time.Millisecond))
}

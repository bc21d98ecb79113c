package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/solatis/inboxkeeper/internal/metrics"
)

func TestHealthServer_ReflectsServingState(t *testing.T) {
	hs, err := NewHealthServer("127.0.0.1:0")
	require.NoError(t, err)
	addr, err := hs.Listen()
	require.NoError(t, err)

	go func() { _ = hs.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(ctx)
	})

	conn, err := grpc.NewClient(addr.String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	check := func() grpc_health_v1.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check())
	hs.SetServing(true)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check())
	hs.SetServing(false)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check())
}

func TestNewHealthServer_RequiresAddr(t *testing.T) {
	_, err := NewHealthServer("")
	assert.Error(t, err)
}

func TestMetricsServer_ExposesEngineMetrics(t *testing.T) {
	metrics.RecordsProcessed.WithLabelValues("metrics-test").Add(3)

	srv := httptest.NewServer(NewMetricsServer("127.0.0.1:0").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `inboxkeeper_records_processed_total{rule="metrics-test"} 3`))
}

type statusLog struct {
	mu     sync.Mutex
	states []bool
}

func (s *statusLog) SetServing(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, ok)
}

func (s *statusLog) snapshot() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.states...)
}

func TestScheduler_RunsCyclesAndReportsStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0
	cycle := func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		switch calls {
		case 2:
			return errors.New("provider down")
		case 3:
			cancel()
		}
		return nil
	}

	status := &statusLog{}
	s, err := NewScheduler(time.Millisecond, cycle, status, nil)
	require.NoError(t, err)

	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []bool{true, false, true}, status.snapshot())
}

func TestNewScheduler_Validation(t *testing.T) {
	noop := func(context.Context) error { return nil }

	_, err := NewScheduler(0, noop, nil, nil)
	assert.Error(t, err)
	_, err = NewScheduler(time.Second, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewScheduler(time.Second, noop, nil, nil)
	assert.NoError(t, err)
}

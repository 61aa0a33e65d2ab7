package shell

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// TestHelperProcess is not a real test. It stands in for the backend when
// re-executed by the supervisor tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("DOCSMITH_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("DOCSMITH_HELPER_MODE") {
	case "crash":
		fmt.Println("backend crashing")
		os.Exit(3)
	case "serve":
		fmt.Printf("backend listening on %s\n", os.Getenv("PORT"))
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		select {
		case <-signals:
			os.Exit(0)
		case <-time.After(30 * time.Second):
			os.Exit(1)
		}
	}
	os.Exit(0)
}

func helperConfig(t *testing.T, mode, baseURL string) SupervisorConfig {
	t.Helper()
	return SupervisorConfig{
		Command:     os.Args[0],
		Args:        []string{"-test.run=TestHelperProcess"},
		Env:         []string{"DOCSMITH_HELPER_PROCESS=1", "DOCSMITH_HELPER_MODE=" + mode},
		BaseURL:     baseURL,
		StartupWait: 5 * time.Second,
		StopTimeout: 2 * time.Second,
		BackoffBase: 10 * time.Millisecond,
		BackoffMax:  20 * time.Millisecond,
	}
}

func healthServer(t *testing.T, failures int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		if atomic.AddInt32(&calls, 1) <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestSupervisor_AttachMode(t *testing.T) {
	server, calls := healthServer(t, 2)

	supervisor := NewSupervisor(SupervisorConfig{BaseURL: server.URL, StartupWait: 5 * time.Second}, nil, arbor.NewNoOpLogger())
	require.True(t, supervisor.Attached())

	require.NoError(t, supervisor.Start(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.False(t, supervisor.Running())
	assert.Equal(t, 0, supervisor.PID())
}

func TestSupervisor_HealthTimeout(t *testing.T) {
	server, _ := healthServer(t, 1000)

	supervisor := NewSupervisor(SupervisorConfig{BaseURL: server.URL, StartupWait: 300 * time.Millisecond}, nil, nil)
	err := supervisor.Start(context.Background())
	assert.ErrorIs(t, err, ErrBackendNotHealthy)
}

func TestSupervisor_StartAndStop(t *testing.T) {
	server, _ := healthServer(t, 0)

	supervisor := NewSupervisor(helperConfig(t, "serve", server.URL), nil, arbor.NewNoOpLogger())
	require.NoError(t, supervisor.Start(context.Background()))
	assert.True(t, supervisor.Running())
	assert.NotZero(t, supervisor.PID())

	supervisor.Stop()
	assert.False(t, supervisor.Running())
	assert.Equal(t, 0, supervisor.Restarts())

	select {
	case <-supervisor.Done():
	case <-time.After(time.Second):
		t.Fatal("Done was not closed after Stop")
	}
}

func TestSupervisor_RestartsUpToCap(t *testing.T) {
	server, _ := healthServer(t, 0)

	config := helperConfig(t, "crash", server.URL)
	config.MaxRestarts = 2

	supervisor := NewSupervisor(config, nil, arbor.NewNoOpLogger())
	require.NoError(t, supervisor.Start(context.Background()))

	select {
	case <-supervisor.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("supervisor did not give up")
	}

	assert.Equal(t, 2, supervisor.Restarts())
	assert.False(t, supervisor.Running())
	supervisor.Stop()
}

func TestSupervisor_Backoff(t *testing.T) {
	supervisor := NewSupervisor(SupervisorConfig{BackoffBase: 100 * time.Millisecond, BackoffMax: time.Second}, nil, nil)

	assert.Equal(t, 100*time.Millisecond, supervisor.backoff(1))
	assert.Equal(t, 200*time.Millisecond, supervisor.backoff(2))
	assert.Equal(t, 800*time.Millisecond, supervisor.backoff(4))
	assert.Equal(t, time.Second, supervisor.backoff(5))
	assert.Equal(t, time.Second, supervisor.backoff(20))
}

func TestSupervisor_EnvironmentSetsPort(t *testing.T) {
	supervisor := NewSupervisor(SupervisorConfig{BaseURL: "http://localhost:4123", Env: []string{"EXTRA=1"}}, nil, nil)
	env := supervisor.environment()

	assert.Contains(t, env, "PORT=4123")
	assert.Equal(t, "EXTRA=1", env[len(env)-1])
}

func TestLineWriter(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	w := newLineWriter(func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})

	_, _ = w.Write([]byte("first\r\nsec"))
	_, _ = w.Write([]byte("ond\n\n"))
	_, _ = w.Write([]byte("tail"))
	w.Flush()

	assert.Equal(t, []string{"first", "second", "tail"}, lines)
}

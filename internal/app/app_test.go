package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/loyaltytiers/internal/config"
	testhelpers "github.com/polkiloo/loyaltytiers/internal/test"
	"github.com/polkiloo/loyaltytiers/internal/worker"
)

func newTestSweeper(facade worker.Finalizer) *worker.WindowSweeper {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return worker.NewWindowSweeper(facade, 10*time.Millisecond, 1, 1, logger)
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{RunAddress: ":9999"}
	router := gin.New()
	server := newHTTPServer(serverParams{Config: cfg, Router: router})
	if server.Addr != ":9999" {
		t.Fatalf("expected address :9999, got %q", server.Addr)
	}
	if server.Handler != router {
		t.Fatalf("expected handler to be router")
	}
	if server.ReadHeaderTimeout != readHeaderTimeout {
		t.Fatalf("expected read header timeout %v, got %v", readHeaderTimeout, server.ReadHeaderTimeout)
	}
}

func TestNewWindowSweeperUsesConfig(t *testing.T) {
	sweeper := newWindowSweeper(sweeperParams{
		Facade: &LoyaltyFacade{},
		Config: &config.Config{SweepInterval: 15 * time.Second, SweepBatch: 3, SweepWorkers: 4},
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	if sweeper == nil {
		t.Fatal("expected window sweeper instance")
	}
}

func TestRegisterLifecycleStartStop(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	facade := &testhelpers.SweepFacadeStub{Batches: [][]int64{{5}}}
	cfg := &config.Config{ShutdownTimeout: 100 * time.Millisecond}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     logger,
		Server:     server,
		Sweeper:    newTestSweeper(facade),
		Config:     cfg,
	})

	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}

	// a cancelled start context must not stop the sweeper
	startCtx, cancel := context.WithCancel(context.Background())
	if err := recorder.Start(startCtx); err != nil {
		t.Fatalf("on start failed: %v", err)
	}
	cancel()

	deadline := time.After(time.Second)
	for len(facade.Finalized()) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected sweeper to run after start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = recorder.Stop(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected on stop to finish")
	}
}

func TestRegisterLifecycleShutdownOnServerError(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	server := &http.Server{Addr: "bad addr"}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     logger,
		Server:     server,
		Sweeper:    newTestSweeper(&testhelpers.SweepFacadeStub{}),
		Config:     &config.Config{ShutdownTimeout: time.Second},
	})

	if err := recorder.Start(context.Background()); err != nil {
		t.Fatalf("on start returned error: %v", err)
	}

	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}

	_ = recorder.Stop(context.Background())
}

func TestLifecycleRecorderOrder(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	var order []string
	recorder.Append(fx.Hook{
		OnStart: func(context.Context) error { order = append(order, "start-1"); return nil },
		OnStop:  func(context.Context) error { order = append(order, "stop-1"); return nil },
	})
	recorder.Append(fx.Hook{
		OnStart: func(context.Context) error { order = append(order, "start-2"); return nil },
		OnStop:  func(context.Context) error { order = append(order, "stop-2"); return nil },
	})
	_ = recorder.Start(context.Background())
	_ = recorder.Stop(context.Background())

	want := []string{"start-1", "start-2", "stop-2", "stop-1"}
	if len(order) != len(want) {
		t.Fatalf("unexpected hook order %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected hook order %v", order)
		}
	}
}

func TestShutdownerStub(t *testing.T) {
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	if err := shutdowner.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-shutdowner.Called:
	default:
		t.Fatal("expected shutdown notification")
	}
}

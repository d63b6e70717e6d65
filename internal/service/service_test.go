package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flipperdevices/flipper-debug-go/internal/service"
)

func TestProvider_WithServiceNoOpWhenDisconnected(t *testing.T) {
	p := service.NewProvider(&service.MockDialer{}, nil)
	called := false
	p.WithService(func(service.Service) { called = true })
	if called {
		t.Error("WithService must not call fn without a connection")
	}
	if err := p.Do(func(service.Service) error { return nil }); !errors.Is(err, service.ErrNotConnected) {
		t.Errorf("Do() err = %v, want ErrNotConnected", err)
	}
}

func TestProvider_WithServiceAfterConnect(t *testing.T) {
	dialer := &service.MockDialer{}
	var changes []bool
	p := service.NewProvider(dialer, func(c bool) { changes = append(changes, c) })

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !p.Connected() {
		t.Fatal("Connected() = false after Connect")
	}
	p.WithService(func(s service.Service) {
		s.RestartRPC(context.Background())
	})
	if n := dialer.Last().Restarts(); n != 1 {
		t.Errorf("restarts = %d, want 1", n)
	}

	if err := p.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if !dialer.Last().Closed() {
		t.Error("Disconnect should close the session")
	}
	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Errorf("onChange calls = %v, want [true false]", changes)
	}
}

func TestProvider_ConnectReplacesSession(t *testing.T) {
	dialer := &service.MockDialer{}
	p := service.NewProvider(dialer, nil)
	ctx := context.Background()
	p.Connect(ctx)
	first := dialer.Last()
	p.Connect(ctx)
	if !first.Closed() {
		t.Error("previous session should be closed on reconnect")
	}
	if dialer.Dials() != 2 {
		t.Errorf("dials = %d, want 2", dialer.Dials())
	}
}

func TestProvider_RunReconnectsDeadLink(t *testing.T) {
	dialer := &service.MockDialer{}
	p := service.NewProvider(dialer, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	waitFor(t, func() bool { return dialer.Dials() >= 1 })
	dialer.Last().Close() // link dies
	waitFor(t, func() bool { return dialer.Dials() >= 2 })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if p.Connected() {
		t.Error("Run should disconnect on exit")
	}
}

func TestProvider_ConnectFailure(t *testing.T) {
	dialer := &service.MockDialer{Fail: true}
	p := service.NewProvider(dialer, nil)
	if err := p.Connect(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
	if p.Connected() {
		t.Error("Connected() = true after failed dial")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

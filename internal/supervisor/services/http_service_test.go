// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// mockHTTPServer is a test double for the HTTPServer interface.
type mockHTTPServer struct {
	serveErr      error
	shutdownErr   error
	serveCount    atomic.Int32
	shutdownCount atomic.Int32
	stopCh        chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) Serve(l net.Listener) error {
	m.serveCount.Add(1)
	defer l.Close()
	if m.serveErr != nil {
		return m.serveErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

func TestHTTPServerService_RealServer(t *testing.T) {
	t.Parallel()

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(srv, "127.0.0.1:0", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for svc.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server never bound")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Get("http://" + svc.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if svc.Addr() != nil {
		t.Error("Addr should be nil after stop")
	}
}

func TestHTTPServerService_ListenError(t *testing.T) {
	t.Parallel()

	mock := newMockHTTPServer()
	svc := NewHTTPServerService(mock, "127.0.0.1:1", time.Second).
		WithListener(func(string, string) (net.Listener, error) {
			return nil, errors.New("address already in use")
		})

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("expected listen error")
	}
	if mock.serveCount.Load() != 0 {
		t.Error("Serve should not run without a listener")
	}
}

func TestHTTPServerService_ServeError(t *testing.T) {
	t.Parallel()

	mock := newMockHTTPServer()
	mock.serveErr = errors.New("accept failed")
	svc := NewHTTPServerService(mock, "127.0.0.1:0", time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, mock.serveErr) {
		t.Fatalf("Serve() = %v, want wrapped accept error", err)
	}
}

func TestHTTPServerService_ShutdownError(t *testing.T) {
	t.Parallel()

	mock := newMockHTTPServer()
	mock.shutdownErr = errors.New("drain timeout")
	svc := NewHTTPServerService(mock, "127.0.0.1:0", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	for mock.serveCount.Load() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	err := <-done
	if !errors.Is(err, mock.shutdownErr) {
		t.Errorf("Serve() = %v, want shutdown error", err)
	}
	if mock.shutdownCount.Load() != 1 {
		t.Errorf("Shutdown called %d times, want 1", mock.shutdownCount.Load())
	}
}

func TestHTTPServerService_Defaults(t *testing.T) {
	t.Parallel()

	svc := NewHTTPServerService(newMockHTTPServer(), ":0", 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want 10s", svc.shutdownTimeout)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rkjdid/util"

	"github.com/solar3s/padlink/web"
)

type refusingOpener struct {
	calls int32
}

func (o *refusingOpener) Open(context.Context) (net.Conn, error) {
	atomic.AddInt32(&o.calls, 1)
	return nil, errors.New("connection refused")
}

func (o *refusingOpener) String() string { return "refusing" }

func TestConfigNotLoadedOnImport(t *testing.T) {
	if rootConfig != nil {
		t.Error("expected config to be loaded by main only")
	}
}

func TestListenPort(t *testing.T) {
	if p, err := listenPort(":12345"); err != nil || p != 12345 {
		t.Errorf("expected 12345, got %d (%v)", p, err)
	}
	if _, err := listenPort("12345"); err == nil {
		t.Error("expected error on address without port separator")
	}
}

func TestLinkResetAfterGivingUp(t *testing.T) {
	cfg := web.DefaultConfig
	cfg.Link.MaxFailures = 2
	cfg.Link.RetryInterval = util.Duration(time.Millisecond)
	o := &refusingOpener{}
	n := newNode(&cfg, o)

	if err := n.requestReset(); err == nil {
		t.Error("expected reset to be refused while the link is retrying")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- n.runLink(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for n.manager.Fatal() == nil {
		if time.Now().After(deadline) {
			t.Fatal("link never gave up")
		}
		time.Sleep(time.Millisecond)
	}
	if c := atomic.LoadInt32(&o.calls); c != 2 {
		t.Errorf("expected 2 attempts before giving up, got %d", c)
	}

	ts := httptest.NewServer(n.server.Handler())
	defer ts.Close()
	resp, err := http.Post(ts.URL+"/link/reset", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on /link/reset, got %d", resp.StatusCode)
	}
	for atomic.LoadInt32(&o.calls) < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("expected a new round of attempts after reset, got %d", atomic.LoadInt32(&o.calls))
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected nil on shutdown, got %v", err)
	}
}

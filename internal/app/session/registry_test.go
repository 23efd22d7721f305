package session_test

import (
	"testing"
	"time"

	"github.com/tkc-cmd/rxvoice/internal/app/session"
	"github.com/tkc-cmd/rxvoice/internal/domain"
)

func TestCreateGetRemove(t *testing.T) {
	reg := session.NewRegistry(5*time.Minute, time.Minute, nil)

	sess, err := reg.Create("call-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.State != domain.StateGreeting {
		t.Fatalf("new session should start in GREETING, got %s", sess.State)
	}

	if _, err := reg.Create("call-1"); err == nil {
		t.Fatal("duplicate Create should fail")
	}

	got, err := reg.Get("call-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != sess {
		t.Fatal("Get returned a different session")
	}

	reg.Remove("call-1")
	if _, err := reg.Get("call-1"); err == nil {
		t.Fatal("Get after Remove should fail")
	}
}

func TestCreateGeneratesID(t *testing.T) {
	reg := session.NewRegistry(5*time.Minute, time.Minute, nil)

	sess, err := reg.Create("")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected a generated session id")
	}
}

func TestSweepEvictsOnlyIdleSessions(t *testing.T) {
	var evicted []domain.SessionID
	reg := session.NewRegistry(time.Minute, time.Minute, func(id domain.SessionID) {
		evicted = append(evicted, id)
	})

	stale, _ := reg.Create("stale")
	stale.LastActivity = time.Now().Add(-2 * time.Minute)

	fresh, _ := reg.Create("fresh")
	fresh.LastActivity = time.Now()

	if n := reg.SweepOnce(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if len(evicted) != 1 || evicted[0] != "stale" {
		t.Fatalf("expected the stale session evicted, got %v", evicted)
	}

	if _, err := reg.Get("fresh"); err != nil {
		t.Fatal("fresh session should survive the sweep")
	}
	if _, err := reg.Get("stale"); err == nil {
		t.Fatal("stale session should be gone")
	}
}

func TestTouchKeepsSessionAlive(t *testing.T) {
	reg := session.NewRegistry(time.Minute, time.Minute, nil)

	sess, _ := reg.Create("call-1")
	sess.LastActivity = time.Now().Add(-2 * time.Minute)
	reg.Touch("call-1")

	if n := reg.SweepOnce(); n != 0 {
		t.Fatalf("touched session should not be evicted, got %d evictions", n)
	}
}

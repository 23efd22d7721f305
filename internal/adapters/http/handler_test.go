package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/tkc-cmd/rxvoice/internal/adapters/http"
	"github.com/tkc-cmd/rxvoice/internal/adapters/llm"
	"github.com/tkc-cmd/rxvoice/internal/adapters/storage/memory"
	"github.com/tkc-cmd/rxvoice/internal/app/orchestrator"
	"github.com/tkc-cmd/rxvoice/internal/config"
	"github.com/tkc-cmd/rxvoice/internal/domain"
)

type fakeSTT struct{}

func (fakeSTT) Transcribe(ctx context.Context, audio []byte) (domain.Transcript, error) {
	return domain.Transcript{Text: "hello", Confidence: 1}, nil
}

type fakeTTS struct{}

func (fakeTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte("pcm"), nil
}

type noopNotifier struct{}

func (noopNotifier) NotifySessionStarted(id domain.SessionID)                        {}
func (noopNotifier) NotifySessionEnded(id domain.SessionID, reason string)           {}
func (noopNotifier) NotifyRecording(id domain.SessionID, recording bool)             {}
func (noopNotifier) NotifySpeaking(id domain.SessionID, speaking bool)               {}
func (noopNotifier) NotifyTranscript(id domain.SessionID, turn domain.ConversationTurn) {}
func (noopNotifier) NotifyAudio(id domain.SessionID, audio []byte)                   {}
func (noopNotifier) NotifyProcessing(id domain.SessionID, active bool)               {}
func (noopNotifier) NotifyInterrupted(id domain.SessionID)                           {}
func (noopNotifier) NotifyError(id domain.SessionID, message string)                 {}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	store := memory.NewPharmacyStore()
	memory.Seed(store)

	cfg := &config.Config{
		SessionTimeout:      time.Minute,
		SweepInterval:       time.Minute,
		InteractionFailMode: config.FailOpen,
		MinUtteranceBytes:   4,
		PickupWindow:        2 * time.Hour,
	}

	orch := orchestrator.New(cfg, store, llm.NewMockLLM(), fakeSTT{}, fakeTTS{}, noopNotifier{})
	return httpadapter.NewServer(orch)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"active_sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "ok" || resp.ActiveSessions != 0 {
		t.Errorf("unexpected health body: %+v", resp)
	}
}

func TestCreateSessionSpeaksDisclaimer(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		ID         string `json:"id"`
		State      string `json:"state"`
		Transcript []struct {
			Role string `json:"role"`
			Text string `json:"text"`
		} `json:"transcript"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("expected a generated session id")
	}
	if resp.State != string(domain.StateGreeting) {
		t.Errorf("state = %s, want %s", resp.State, domain.StateGreeting)
	}
	if len(resp.Transcript) == 0 || resp.Transcript[0].Text != orchestrator.Disclaimer {
		t.Error("expected the disclaimer as the first transcript entry")
	}
}

func TestSendMessageDrivesDialogue(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("creating session: got %d", w.Code)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}

	body := []byte(`{"text":"I need to refill my prescription"}`)
	req = httptest.NewRequest(http.MethodPost, "/sessions/"+created.ID+"/messages", bytes.NewReader(body))
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		State string `json:"state"`
		Reply *struct {
			Text string `json:"text"`
		} `json:"reply"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.State != string(domain.StateIdentityVerification) {
		t.Errorf("state = %s, want %s", resp.State, domain.StateIdentityVerification)
	}
	if resp.Reply == nil || !strings.Contains(resp.Reply.Text, "full name") {
		t.Errorf("expected the name prompt, got %+v", resp.Reply)
	}
}

func TestSendMessageUnknownSession(t *testing.T) {
	srv := newTestServer(t)

	body := []byte(`{"text":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions/nope/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestEndSession(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/sessions/"+created.ID, nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/sessions/"+created.ID, nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after ending, got %d", w.Code)
	}
}

package ws_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tkc-cmd/rxvoice/internal/adapters/llm"
	"github.com/tkc-cmd/rxvoice/internal/adapters/storage/memory"
	"github.com/tkc-cmd/rxvoice/internal/adapters/ws"
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

type frame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Data      string `json:"data,omitempty"`
	Role      string `json:"role,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}

func dialTestHub(t *testing.T) *websocket.Conn {
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

	hub := ws.NewHub()
	orch := orchestrator.New(cfg, store, llm.NewMockLLM(), fakeSTT{}, fakeTTS{}, hub)
	hub.Bind(orch)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, frameType string) frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	_ = conn.SetReadDeadline(deadline)

	for time.Now().Before(deadline) {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("reading frame while waiting for %q: %v", frameType, err)
		}
		if f.Type == frameType {
			return f
		}
	}
	t.Fatalf("no %q frame arrived", frameType)
	return frame{}
}

func TestStartSessionDeliversDisclaimer(t *testing.T) {
	conn := dialTestHub(t)

	if err := conn.WriteJSON(frame{Type: "start"}); err != nil {
		t.Fatalf("sending start: %v", err)
	}

	started := readUntil(t, conn, "session_started")
	if started.SessionID == "" {
		t.Error("expected a session id in the started frame")
	}

	transcript := readUntil(t, conn, "transcript")
	if transcript.Role != string(domain.RoleAssistant) || transcript.Text != orchestrator.Disclaimer {
		t.Errorf("first transcript = %+v, want the assistant disclaimer", transcript)
	}

	audio := readUntil(t, conn, "audio")
	if audio.Data == "" {
		t.Error("expected synthesized audio for the disclaimer")
	}
}

func TestTextInputRoundTrip(t *testing.T) {
	conn := dialTestHub(t)

	if err := conn.WriteJSON(frame{Type: "start"}); err != nil {
		t.Fatalf("sending start: %v", err)
	}
	readUntil(t, conn, "audio") // disclaimer fully delivered

	if err := conn.WriteJSON(frame{Type: "text", Text: "I need to refill my prescription"}); err != nil {
		t.Fatalf("sending text: %v", err)
	}

	user := readUntil(t, conn, "transcript")
	if user.Role != string(domain.RoleUser) {
		t.Errorf("expected the user turn to echo first, got %+v", user)
	}

	reply := readUntil(t, conn, "transcript")
	if reply.Role != string(domain.RoleAssistant) || !strings.Contains(reply.Text, "full name") {
		t.Errorf("expected the name prompt, got %+v", reply)
	}
}

func TestUnknownFrameRejected(t *testing.T) {
	conn := dialTestHub(t)

	if err := conn.WriteJSON(frame{Type: "bogus"}); err != nil {
		t.Fatalf("sending frame: %v", err)
	}

	errFrame := readUntil(t, conn, "error")
	if !strings.Contains(errFrame.Message, "unknown frame type") {
		t.Errorf("unexpected error message: %q", errFrame.Message)
	}
}

func TestAudioBeforeStartRejected(t *testing.T) {
	conn := dialTestHub(t)

	if err := conn.WriteJSON(frame{Type: "audio", Data: "YWJjZA=="}); err != nil {
		t.Fatalf("sending frame: %v", err)
	}

	errFrame := readUntil(t, conn, "error")
	if errFrame.Message != "no session" {
		t.Errorf("error message = %q, want %q", errFrame.Message, "no session")
	}
}

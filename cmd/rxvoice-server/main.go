package main

import (
	"context"
	"log"
	"net/http"

	httpadapter "github.com/tkc-cmd/rxvoice/internal/adapters/http"
	"github.com/tkc-cmd/rxvoice/internal/adapters/llm"
	firestorestore "github.com/tkc-cmd/rxvoice/internal/adapters/storage/firestore"
	memstore "github.com/tkc-cmd/rxvoice/internal/adapters/storage/memory"
	"github.com/tkc-cmd/rxvoice/internal/adapters/stt"
	"github.com/tkc-cmd/rxvoice/internal/adapters/tts"
	"github.com/tkc-cmd/rxvoice/internal/adapters/ws"
	"github.com/tkc-cmd/rxvoice/internal/app/orchestrator"
	"github.com/tkc-cmd/rxvoice/internal/config"
	"github.com/tkc-cmd/rxvoice/internal/domain"
	"github.com/tkc-cmd/rxvoice/internal/observability"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	// LLM: mock or Gemini by config (mock is the local-dev default)
	var (
		llmClient domain.LanguageModel
		err       error
	)
	if cfg.UseMockLLM {
		log.Println("[LLM] Using MOCK language model")
		llmClient = llm.NewMockLLM()
	} else {
		log.Println("[LLM] Using Gemini language model")
		llmClient, err = llm.NewGeminiClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			log.Fatalf("error initializing Gemini client: %v", err)
		}
	}

	// Storage: Firestore or Memory
	var store domain.PharmacyStore
	switch cfg.StorageBackend {
	case "firestore":
		log.Printf("[STORE] Using Firestore storage (project=%s)", cfg.GCPProjectID)
		store, err = firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}

	default:
		log.Println("[STORE] Using in-memory storage with demo data")
		mem := memstore.NewPharmacyStore()
		memstore.Seed(mem)
		store = mem
	}

	transcriber := stt.NewDeepgramClient(cfg.DeepgramAPIKey)
	synthesizer := tts.NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.TTSVoiceID)

	// The hub is the orchestrator's notifier and its inbound transport.
	hub := ws.NewHub()
	orch := orchestrator.New(cfg, store, llmClient, transcriber, synthesizer, hub)
	hub.Bind(orch)

	go orch.Registry().RunSweeper(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/", httpadapter.NewServer(orch))

	addr := ":" + cfg.Port
	observability.Logger().Info("rxvoice server listening", "addr", addr, "mode", string(cfg.Mode))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

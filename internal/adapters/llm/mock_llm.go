package llm

import (
	"context"
	"fmt"

	"github.com/tkc-cmd/rxvoice/internal/app/nlu"
	"github.com/tkc-cmd/rxvoice/internal/domain"
)

// MockLLM is a deterministic LanguageModel for local development and
// tests. Classification and extraction run on the same keyword rules the
// orchestrator uses as its degraded-mode fallback.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) ClassifyIntent(_ context.Context, text string) (domain.IntentResult, error) {
	return nlu.Classify(text), nil
}

func (m *MockLLM) ExtractPatientInfo(_ context.Context, text string) (domain.PatientInfo, error) {
	return nlu.ExtractPatientInfo(text), nil
}

func (m *MockLLM) GenerateFreeform(
	_ context.Context,
	text string,
	state domain.DialogueState,
	_ []domain.ConversationTurn,
) (string, error) {
	return fmt.Sprintf("I heard %q. Could you tell me a bit more about what you need?", text), nil
}

var _ domain.LanguageModel = (*MockLLM)(nil)

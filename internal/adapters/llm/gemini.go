package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/tkc-cmd/rxvoice/internal/domain"
)

type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates a LanguageModel backed by Vertex AI (Gemini).
func NewGeminiClient(ctx context.Context, projectID, location, modelName string) (*GeminiClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("projectID and location must be set for the Gemini client")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// callerIntents is exactly the label set the classify prompt offers. A
// model answering anything else, including internal dialogue outcomes like
// patient_verified, maps to unclear.
var callerIntents = map[domain.Event]bool{
	domain.EventRefillRequest:          true,
	domain.EventInteractionQuestion:    true,
	domain.EventAdministrationQuestion: true,
	domain.EventGreeting:               true,
	domain.EventProvideName:            true,
	domain.EventProvideDOB:             true,
	domain.EventSelectPrescription:     true,
	domain.EventConfirm:                true,
	domain.EventDeny:                   true,
	domain.EventGoodbye:                true,
	domain.EventUnclear:                true,
}

func intentFromLabel(out string) domain.IntentResult {
	label := domain.Event(strings.ToLower(strings.TrimSpace(out)))
	if callerIntents[label] {
		return domain.IntentResult{Intent: label, Confidence: 0.9}
	}
	return domain.IntentResult{Intent: domain.EventUnclear, Confidence: 0.3}
}

// ClassifyIntent implements domain.LanguageModel.
func (g *GeminiClient) ClassifyIntent(ctx context.Context, text string) (domain.IntentResult, error) {
	out, err := g.generate(ctx, baseSystemPrompt+"\n"+classifyInstructions, text, 16)
	if err != nil {
		return domain.IntentResult{}, err
	}
	return intentFromLabel(out), nil
}

// ExtractPatientInfo implements domain.LanguageModel.
func (g *GeminiClient) ExtractPatientInfo(ctx context.Context, text string) (domain.PatientInfo, error) {
	out, err := g.generate(ctx, baseSystemPrompt+"\n"+extractInstructions, text, 64)
	if err != nil {
		return domain.PatientInfo{}, err
	}

	var info domain.PatientInfo
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(strings.ToLower(key)) {
		case "first_name":
			info.FirstName = value
		case "last_name":
			info.LastName = value
		case "date_of_birth":
			info.DateOfBirth = value
		}
	}
	return info, nil
}

// GenerateFreeform implements domain.LanguageModel.
func (g *GeminiClient) GenerateFreeform(
	ctx context.Context,
	text string,
	state domain.DialogueState,
	history []domain.ConversationTurn,
) (string, error) {
	system, user := BuildFreeformPrompt(text, state, history)
	return g.generate(ctx, system, user, 256)
}

func (g *GeminiClient) generate(ctx context.Context, system, user string, maxTokens int32) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}

	temp := float32(0.4)
	topP := float32(0.9)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   maxTokens,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}

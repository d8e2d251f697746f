package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/huaitalk/companion-backend/internal/config"
)

const (
	defaultChatModelName  = "gemini-2.0-flash"
	fallbackChatModelName = "gemini-1.5-flash"
	embeddingModelName    = "text-embedding-004"

	// Appended to replies produced by the fallback model so the user knows the
	// reply was generated without conversation memory.
	FallbackNotice = "\n\n(Replied with a backup model; I may not remember our earlier conversation.)"
)

var errClientNotConfigured = errors.New("generation client not configured (missing GEMINI_API_KEY)")

type LLMService struct {
	client *genai.Client
}

func NewLLMService() *LLMService {
	if config.AppConfig.GeminiAPIKey == "" {
		return &LLMService{}
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}

	return &LLMService{client: client}
}

func (s *LLMService) Ready() bool {
	return s.client != nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

func (s *LLMService) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if s.client == nil {
		return nil, errClientNotConfigured
	}
	em := s.client.EmbeddingModel(embeddingModelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// Reply opens a stateful chat session seeded with the sanitized history and
// the system instruction, then sends the new user message.
func (s *LLMService) Reply(ctx context.Context, system string, history []*genai.Content, message string) (string, error) {
	if s.client == nil {
		return "", errClientNotConfigured
	}
	model := s.client.GenerativeModel(defaultChatModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}
	return responseText(resp)
}

// FallbackReply generates a one-shot reply on the secondary model. No history
// is carried over; the secondary model only sees the system instruction and
// the current message.
func (s *LLMService) FallbackReply(ctx context.Context, system, message string) (string, error) {
	if s.client == nil {
		return "", errClientNotConfigured
	}
	model := s.client.GenerativeModel(fallbackChatModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("gemini fallback generation failed: %w", err)
	}
	return responseText(resp)
}

// GenerateJSON asks the primary model for a JSON-only reply.
func (s *LLMService) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	if s.client == nil {
		return "", errClientNotConfigured
	}
	model := s.client.GenerativeModel(defaultChatModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini json generation failed: %w", err)
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response was empty or had no valid candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("gemini response contained no text parts")
	}
	return text.String(), nil
}

// IsModelNotFound reports whether a generation error means the requested model
// does not exist or is unavailable, which is the one condition with a defined
// recovery path (retry on the fallback model).
func IsModelNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "not_found")
}

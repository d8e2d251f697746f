package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/huaitalk/companion-backend/internal/store"
)

const (
	companionSystemInstruction = "You are a warm, attentive companion. You chat with the user about their day, " +
		"remember what they have told you before, and respond with empathy in the language the user writes in. " +
		"Keep replies conversational and reasonably short. Never claim to be a medical or mental health professional."

	welcomeInstruction = "The user just opened the app. Their local time is %s. " +
		"Greet them warmly in one or two sentences, in the language of our past conversation if there is one."

	summarySystemInstruction = "You analyze a conversation between a user and their companion. " +
		"Reply with a single JSON object with exactly these string fields: " +
		`"mood" (the user's overall mood), "events" (an array of notable events mentioned), ` +
		`"oneLiner" (a one-line summary of the conversation), and "messageToSelf" ` +
		"(a short encouraging note the user could read later). Use the language the user wrote in."
)

// HistoryStore is the per-user append-only message log.
type HistoryStore interface {
	RecentMessages(ctx context.Context, userID string, n int) ([]store.Message, error)
	AllMessages(ctx context.Context, userID string) ([]store.Message, error)
	AppendExchange(ctx context.Context, userID, userContent, aiContent string) (store.Message, store.Message, error)
	DeleteAllMessages(ctx context.Context, userID string) error
}

// Generator is the hosted text-generation endpoint. Implemented by LLMService.
type Generator interface {
	Reply(ctx context.Context, system string, history []*genai.Content, message string) (string, error)
	FallbackReply(ctx context.Context, system, message string) (string, error)
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
}

// Retriever supplies optional grounding context for a query.
type Retriever interface {
	RelevantContext(ctx context.Context, query string) string
}

// Summary is the structured analysis returned by the summarize-and-clear flow.
type Summary struct {
	Mood          string   `json:"mood"`
	Events        []string `json:"events"`
	OneLiner      string   `json:"oneLiner"`
	MessageToSelf string   `json:"messageToSelf"`
}

type ChatService struct {
	history      HistoryStore // nil when persistence is disabled
	retriever    Retriever    // nil when the corpus is unavailable
	generator    Generator
	historyLimit int
}

func NewChatService(history HistoryStore, retriever Retriever, generator Generator, historyLimit int) *ChatService {
	return &ChatService{
		history:      history,
		retriever:    retriever,
		generator:    generator,
		historyLimit: historyLimit,
	}
}

// Chat runs one full exchange: history fetch, context assembly, generation
// (with fallback), and atomic persistence of both sides of the exchange.
func (s *ChatService) Chat(ctx context.Context, userID, message string) (string, error) {
	turns := s.recentTurns(ctx, userID)

	system := companionSystemInstruction
	if s.retriever != nil {
		if ragContext := s.retriever.RelevantContext(ctx, message); ragContext != "" {
			system = system + "\n\nReference notes that may be relevant:\n" + ragContext
		}
	}

	reply, err := s.generate(ctx, system, turns, message)
	if err != nil {
		return "", err
	}

	if s.history == nil {
		log.Printf("History persistence disabled, exchange for user %s not stored", userID)
		return reply, nil
	}
	if _, _, err := s.history.AppendExchange(ctx, userID, message, reply); err != nil {
		return "", fmt.Errorf("failed to persist exchange: %w", err)
	}
	return reply, nil
}

// Welcome generates a greeting aware of local time and recent history. The
// greeting is not persisted; it is not part of the conversation.
func (s *ChatService) Welcome(ctx context.Context, userID, localTime string) (string, error) {
	if localTime == "" {
		localTime = "unknown"
	}
	turns := s.recentTurns(ctx, userID)
	return s.generate(ctx, companionSystemInstruction, turns, fmt.Sprintf(welcomeInstruction, localTime))
}

// History returns the user's full message log in ascending timestamp order.
func (s *ChatService) History(ctx context.Context, userID string) ([]store.Message, error) {
	if s.history == nil {
		return nil, nil
	}
	msgs, err := s.history.AllMessages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return msgs, nil
}

// Summarize produces a structured analysis of the user's entire history, then
// clears it. Deletion is only issued once the analysis has parsed; a failed
// deletion still returns the summary, since stale history is recoverable and
// lost history is not.
func (s *ChatService) Summarize(ctx context.Context, userID string) (Summary, error) {
	if s.history == nil {
		return Summary{}, fmt.Errorf("history persistence is disabled")
	}

	msgs, err := s.history.AllMessages(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read history: %w", err)
	}
	if len(msgs) == 0 {
		return Summary{OneLiner: "There is nothing to summarize yet."}, nil
	}

	var transcript strings.Builder
	for _, msg := range msgs {
		transcript.WriteString(msg.Sender)
		transcript.WriteString(": ")
		transcript.WriteString(msg.Content)
		transcript.WriteString("\n")
	}

	raw, err := s.generator.GenerateJSON(ctx, summarySystemInstruction, transcript.String())
	if err != nil {
		return Summary{}, fmt.Errorf("failed to generate analysis: %w", err)
	}

	var summary Summary
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &summary); err != nil {
		return Summary{}, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}

	if err := s.history.DeleteAllMessages(ctx, userID); err != nil {
		log.Printf("Failed to clear history for user %s after summarize: %v", userID, err)
	}
	return summary, nil
}

// recentTurns reads the recent history window and sanitizes it into chat
// turns. Read failures degrade to an empty history rather than aborting.
func (s *ChatService) recentTurns(ctx context.Context, userID string) []*genai.Content {
	if s.history == nil {
		return nil
	}
	msgs, err := s.history.RecentMessages(ctx, userID, s.historyLimit)
	if err != nil {
		log.Printf("Error reading history for user %s, proceeding without it: %v", userID, err)
		return nil
	}
	return BuildTurns(msgs)
}

// generate calls the primary model and, when it reports the model as missing,
// retries once on the fallback model (no history) with a notice suffix.
func (s *ChatService) generate(ctx context.Context, system string, turns []*genai.Content, message string) (string, error) {
	reply, err := s.generator.Reply(ctx, system, turns, message)
	if err == nil {
		return reply, nil
	}
	if !IsModelNotFound(err) {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	log.Printf("Primary model unavailable, retrying on fallback: %v", err)
	reply, err = s.generator.FallbackReply(ctx, system, message)
	if err != nil {
		return "", fmt.Errorf("fallback generation failed: %w", err)
	}
	return reply + FallbackNotice, nil
}

// stripCodeFence unwraps a ```json ... ``` fenced reply; models add fences
// even in JSON mode on occasion.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

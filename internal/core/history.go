package core

import (
	"github.com/google/generative-ai-go/genai"
	"github.com/huaitalk/companion-backend/internal/store"
)

// Stands in for history the model never answered, so a session can still open
// with a user turn.
const placeholderUserTurn = "(earlier context unavailable)"

// BuildTurns converts stored messages into chat turns for a stateful session,
// repairing the sequence to satisfy the generation API's turn-taking rule.
func BuildTurns(msgs []store.Message) []*genai.Content {
	var turns []*genai.Content
	for _, msg := range msgs {
		role := "model"
		if msg.Sender == store.SenderUser {
			role = "user"
		}
		turns = append(turns, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return SanitizeTurns(turns)
}

// SanitizeTurns enforces the invariant required by the chat session API: the
// sequence starts with a user turn, roles strictly alternate, and the sequence
// does not end on a user turn (the caller is about to send one). Adjacent
// same-role turns are merged by concatenating their parts. Total over any
// finite input; an all-user history collapses to an empty sequence.
func SanitizeTurns(turns []*genai.Content) []*genai.Content {
	if len(turns) == 0 {
		return nil
	}

	var merged []*genai.Content
	for _, turn := range turns {
		if len(merged) > 0 && merged[len(merged)-1].Role == turn.Role {
			last := merged[len(merged)-1]
			last.Parts = append(last.Parts, turn.Parts...)
			continue
		}
		merged = append(merged, &genai.Content{
			Role:  turn.Role,
			Parts: append([]genai.Part{}, turn.Parts...),
		})
	}

	if merged[0].Role != "user" {
		merged = append([]*genai.Content{{
			Role:  "user",
			Parts: []genai.Part{genai.Text(placeholderUserTurn)},
		}}, merged...)
	}

	if merged[len(merged)-1].Role == "user" {
		merged = merged[:len(merged)-1]
	}

	if len(merged) == 0 {
		return nil
	}
	return merged
}

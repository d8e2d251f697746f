package store

const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Message is one history entry in a user's conversation log. Timestamps are
// unix seconds with a fractional part; ordering within a chat exchange is
// guaranteed by stamping the AI reply slightly after the user message.
type Message struct {
	Content   string  `json:"content" firestore:"content"`
	Sender    string  `json:"sender" firestore:"sender"` // "user" or "ai"
	Timestamp float64 `json:"timestamp" firestore:"timestamp"`
}

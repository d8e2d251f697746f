package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/huaitalk/companion-backend/internal/auth"
	"github.com/huaitalk/companion-backend/internal/core"
	"github.com/huaitalk/companion-backend/internal/store"
)

// ChatAPI is the slice of ChatService the handlers need.
type ChatAPI interface {
	Chat(ctx context.Context, userID, message string) (string, error)
	Welcome(ctx context.Context, userID, localTime string) (string, error)
	History(ctx context.Context, userID string) ([]store.Message, error)
	Summarize(ctx context.Context, userID string) (core.Summary, error)
}

// TokenVerifier maps a bearer token to a stable user ID.
type TokenVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token string) (string, error)
}

type APIHandler struct {
	chatService ChatAPI
	verifier    TokenVerifier
}

func NewAPIHandler(cs ChatAPI, verifier TokenVerifier) *APIHandler {
	return &APIHandler{chatService: cs, verifier: verifier}
}

type contextKey string

const userIDKey contextKey = "userID"

// AuthMiddleware resolves the caller's identity. With verification disabled
// every request maps to the anonymous identity; otherwise a missing or invalid
// bearer token is a hard 401.
func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.verifier.Enabled() {
			ctx := context.WithValue(r.Context(), userIDKey, auth.AnonymousUserID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := h.verifier.Verify(r.Context(), tokenString)
		if err != nil {
			log.Printf("Token verification failed: %v", err)
			writeError(w, http.StatusUnauthorized, "Invalid authentication token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "companion-backend",
	})
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)

	msgs, err := h.chatService.History(r.Context(), userID)
	if err != nil {
		log.Printf("Error reading history for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	writeJSON(w, http.StatusOK, map[string][]store.Message{"history": msgs})
}

type WelcomeRequest struct {
	LocalTime string `json:"local_time"`
}

func (h *APIHandler) WelcomeHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)

	var req WelcomeRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	greeting, err := h.chatService.Welcome(r.Context(), userID, req.LocalTime)
	if err != nil {
		log.Printf("Error generating welcome for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeMessage(w, greeting)
}

type ChatRequest struct {
	Message string `json:"message"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	reply, err := h.chatService.Chat(r.Context(), userID, req.Message)
	if err != nil {
		log.Printf("Error handling chat for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeMessage(w, reply)
}

func (h *APIHandler) SummarizeHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)

	summary, err := h.chatService.Summarize(r.Context(), userID)
	if err != nil {
		log.Printf("Error summarizing history for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// writeMessage writes the {message:{content}} envelope the frontend expects.
func writeMessage(w http.ResponseWriter, content string) {
	writeJSON(w, http.StatusOK, map[string]map[string]string{
		"message": {"content": content},
	})
}

// writeError writes the {detail} error body the frontend expects.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

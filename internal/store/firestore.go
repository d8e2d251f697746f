package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	usersCollection    = "users"
	messagesCollection = "messages"

	// Offset stamped onto the AI reply so it always reads back after the user
	// message it answers, even though both land in the same write batch.
	replyTimestampOffset = 0.001

	deleteBatchSize = 400
)

// FirestoreStore keeps each user's history as an append-only
// users/{uid}/messages subcollection.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) messages(userID string) *firestore.CollectionRef {
	return s.client.Collection(usersCollection).Doc(userID).Collection(messagesCollection)
}

// RecentMessages returns the newest n messages for a user in ascending
// timestamp order.
func (s *FirestoreStore) RecentMessages(ctx context.Context, userID string, n int) ([]Message, error) {
	iter := s.messages(userID).OrderBy("timestamp", firestore.Desc).Limit(n).Documents(ctx)
	defer iter.Stop()

	var msgs []Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query messages for user %s: %w", userID, err)
		}
		var msg Message
		if err := doc.DataTo(&msg); err != nil {
			return nil, fmt.Errorf("failed to decode message %s: %w", doc.Ref.ID, err)
		}
		msgs = append(msgs, msg)
	}

	// Query was newest-first; flip to ascending for the caller.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// AllMessages returns a user's entire history in ascending timestamp order.
func (s *FirestoreStore) AllMessages(ctx context.Context, userID string) ([]Message, error) {
	iter := s.messages(userID).OrderBy("timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var msgs []Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query messages for user %s: %w", userID, err)
		}
		var msg Message
		if err := doc.DataTo(&msg); err != nil {
			return nil, fmt.Errorf("failed to decode message %s: %w", doc.Ref.ID, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// AppendExchange writes a user message and the AI reply as one atomic batch.
// The AI timestamp is offset forward so read-back ordering is deterministic.
func (s *FirestoreStore) AppendExchange(ctx context.Context, userID, userContent, aiContent string) (Message, Message, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	userMsg := Message{Content: userContent, Sender: SenderUser, Timestamp: now}
	aiMsg := Message{Content: aiContent, Sender: SenderAI, Timestamp: now + replyTimestampOffset}

	col := s.messages(userID)
	batch := s.client.Batch()
	batch.Set(col.Doc(uuid.NewString()), userMsg)
	batch.Set(col.Doc(uuid.NewString()), aiMsg)
	if _, err := batch.Commit(ctx); err != nil {
		return Message{}, Message{}, fmt.Errorf("failed to commit message batch for user %s: %w", userID, err)
	}
	return userMsg, aiMsg, nil
}

// DeleteAllMessages removes a user's entire history in batches.
func (s *FirestoreStore) DeleteAllMessages(ctx context.Context, userID string) error {
	for {
		iter := s.messages(userID).Limit(deleteBatchSize).Documents(ctx)
		batch := s.client.Batch()
		count := 0
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return fmt.Errorf("failed to list messages for deletion for user %s: %w", userID, err)
			}
			batch.Delete(doc.Ref)
			count++
		}
		iter.Stop()

		if count == 0 {
			return nil
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit delete batch for user %s: %w", userID, err)
		}
	}
}

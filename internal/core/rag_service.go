package core

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/huaitalk/companion-backend/internal/store"
	"github.com/huaitalk/companion-backend/internal/utils"
)

// Embedder turns text into a vector. Implemented by LLMService.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// RAGService scores the static corpus against a query and returns the most
// relevant chunks as extra prompt context. Chunk embeddings are computed once
// at startup (with a sqlite cache across restarts); only the query is embedded
// at request time. Retrieval is a relevance heuristic, never a hard
// dependency: every failure degrades to "no context".
type RAGService struct {
	embedder   Embedder
	chunks     []string
	embeddings [][]float32
	topK       int
}

func NewRAGService(ctx context.Context, embedder Embedder, chunks []string, cache *store.EmbedCache, topK int) (*RAGService, error) {
	s := &RAGService{embedder: embedder, topK: topK}

	// Pace cache-miss embedding calls to stay under the API rate limit.
	ticker := time.NewTicker(40 * time.Millisecond)
	defer ticker.Stop()

	misses := 0
	for i, chunk := range chunks {
		if cache != nil {
			embedding, ok, err := cache.Get(chunk, embeddingModelName)
			if err != nil {
				log.Printf("Embedding cache read failed for chunk %d: %v", i+1, err)
			} else if ok {
				s.chunks = append(s.chunks, chunk)
				s.embeddings = append(s.embeddings, embedding)
				continue
			}
		}

		<-ticker.C
		misses++
		embedding, err := embedder.GetEmbedding(ctx, chunk)
		if err != nil {
			log.Printf("Failed to embed corpus chunk %d (%.50s...): %v. Skipping.", i+1, chunk, err)
			continue
		}
		s.chunks = append(s.chunks, chunk)
		s.embeddings = append(s.embeddings, embedding)

		if cache != nil {
			if err := cache.Put(chunk, embeddingModelName, embedding); err != nil {
				log.Printf("Failed to cache embedding for chunk %d: %v", i+1, err)
			}
		}
	}

	if len(chunks) > 0 && len(s.chunks) == 0 {
		return nil, fmt.Errorf("failed to embed any of the %d corpus chunks", len(chunks))
	}
	log.Printf("RAG service ready with %d corpus chunks (%d embedded at startup).", len(s.chunks), misses)
	return s, nil
}

type scoredChunk struct {
	index int
	score float32
}

// RelevantContext returns the topK corpus chunks most relevant to the query,
// joined by blank lines and ordered by descending similarity. Any failure
// yields the empty string.
func (s *RAGService) RelevantContext(ctx context.Context, query string) string {
	if len(s.chunks) == 0 {
		return ""
	}

	queryEmbedding, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		log.Printf("Failed to embed query, proceeding without context: %v", err)
		return ""
	}

	scored := make([]scoredChunk, 0, len(s.chunks))
	for i, embedding := range s.embeddings {
		score, err := utils.DotProduct(queryEmbedding, embedding)
		if err != nil {
			log.Printf("Error scoring chunk %d against query: %v. Skipping.", i, err)
			continue
		}
		scored = append(scored, scoredChunk{index: i, score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	k := s.topK
	if k > len(scored) {
		k = len(scored)
	}

	var contextBuilder strings.Builder
	for i := 0; i < k; i++ {
		if i > 0 {
			contextBuilder.WriteString("\n\n")
		}
		contextBuilder.WriteString(s.chunks[scored[i].index])
	}
	return contextBuilder.String()
}

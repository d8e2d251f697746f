package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeEmbedder struct {
	vectors  map[string][]float32
	err      error
	queryErr error
}

func (f *fakeEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if text == "query" && f.queryErr != nil {
		return nil, f.queryErr
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func newTestRAG(t *testing.T, embedder *fakeEmbedder, chunks []string, topK int) *RAGService {
	t.Helper()
	s, err := NewRAGService(context.Background(), embedder, chunks, nil, topK)
	if err != nil {
		t.Fatalf("NewRAGService failed: %v", err)
	}
	return s
}

func TestRelevantContext_OrdersByDescendingScore(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"query": {1, 0},
		"low":   {0.1, 0},
		"high":  {0.9, 0},
		"mid":   {0.5, 0},
	}}
	s := newTestRAG(t, embedder, []string{"low", "high", "mid"}, 2)

	got := s.RelevantContext(context.Background(), "query")
	if got != "high\n\nmid" {
		t.Errorf("expected top-2 in descending score order, got %q", got)
	}
}

func TestRelevantContext_TopKBoundedByChunkCount(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"query": {1, 0},
		"only":  {1, 0},
	}}
	s := newTestRAG(t, embedder, []string{"only"}, 5)

	got := s.RelevantContext(context.Background(), "query")
	if got != "only" {
		t.Errorf("expected the single chunk, got %q", got)
	}
}

func TestRelevantContext_EmptyCorpus(t *testing.T) {
	s := newTestRAG(t, &fakeEmbedder{}, nil, 3)
	if got := s.RelevantContext(context.Background(), "query"); got != "" {
		t.Errorf("expected empty context for empty corpus, got %q", got)
	}
}

func TestRelevantContext_QueryEmbeddingFailureDegrades(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors:  map[string][]float32{"chunk": {1, 0}},
		queryErr: errors.New("network down"),
	}
	s := newTestRAG(t, embedder, []string{"chunk"}, 3)

	if got := s.RelevantContext(context.Background(), "query"); got != "" {
		t.Errorf("expected empty context on embedding failure, got %q", got)
	}
}

func TestNewRAGService_AllChunksFailing(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("api key invalid")}
	if _, err := NewRAGService(context.Background(), embedder, []string{"a", "b"}, nil, 3); err == nil {
		t.Error("expected error when no chunk can be embedded")
	}
}

func TestRelevantContext_SeparatorIsBlankLine(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"query": {1, 0},
		"a":     {0.9, 0},
		"b":     {0.8, 0},
		"c":     {0.7, 0},
	}}
	s := newTestRAG(t, embedder, []string{"a", "b", "c"}, 3)

	got := s.RelevantContext(context.Background(), "query")
	if strings.Count(got, "\n\n") != 2 {
		t.Errorf("expected two blank-line separators, got %q", got)
	}
}

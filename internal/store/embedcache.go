package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// EmbedCache persists corpus-chunk embeddings across restarts so the startup
// warm-up only calls the embedding API for chunks it has never seen. Entries
// are keyed by content hash and embedding model, so editing the corpus or
// switching models invalidates naturally.
type EmbedCache struct {
	db *sql.DB
}

func NewEmbedCache(dataSourceName string) (*EmbedCache, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping embedding cache: %w", err)
	}

	cache := &EmbedCache{db: db}
	if err = cache.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize embedding cache schema: %w", err)
	}
	return cache, nil
}

func (c *EmbedCache) Close() error {
	return c.db.Close()
}

func (c *EmbedCache) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS chunk_embeddings (
        content_hash TEXT NOT NULL,
        model TEXT NOT NULL,
        embedding_json TEXT NOT NULL,
        PRIMARY KEY (content_hash, model)
    );
    `
	_, err := c.db.Exec(schema)
	return err
}

// Get returns the cached embedding for a chunk, or ok=false on a miss.
func (c *EmbedCache) Get(content, model string) ([]float32, bool, error) {
	var embeddingJSON string
	err := c.db.QueryRow(
		"SELECT embedding_json FROM chunk_embeddings WHERE content_hash = ? AND model = ?",
		hashContent(content), model,
	).Scan(&embeddingJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query embedding cache: %w", err)
	}

	var embedding []float32
	if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached embedding: %w", err)
	}
	return embedding, true, nil
}

func (c *EmbedCache) Put(content, model string, embedding []float32) error {
	embeddingBytes, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	stmt, err := c.db.Prepare("INSERT OR REPLACE INTO chunk_embeddings (content_hash, model, embedding_json) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare embedding insert: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(hashContent(content), model, string(embeddingBytes)); err != nil {
		return fmt.Errorf("failed to execute embedding insert: %w", err)
	}
	return nil
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey       string
	FirebaseCredential string // Service account JSON as a single-line string
	HTTPPort           string
	LogLevel           string
	CorpusPath         string
	EmbedCachePath     string
	StaticDir          string
	AllowedOrigins     []string
	HistoryLimit       int
	TopK               int
	ChunkSize          int
	ChunkOverlap       int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		FirebaseCredential: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		CorpusPath:         getEnv("CORPUS_PATH", "corpus.txt"),
		EmbedCachePath:     getEnv("EMBED_CACHE_PATH", "embeddings.db"),
		StaticDir:          getEnv("STATIC_DIR", "public"),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "*")),
		HistoryLimit:       getEnvAsInt("HISTORY_LIMIT", 20),
		TopK:               getEnvAsInt("RAG_TOP_K", 3),
		ChunkSize:          getEnvAsInt("RAG_CHUNK_SIZE", 500),
		ChunkOverlap:       getEnvAsInt("RAG_CHUNK_OVERLAP", 50),
	}

	// Credentials may be absent: the service still starts and serves the health
	// and static routes. Auth falls back to an anonymous identity and generation
	// calls fail per request.
	if AppConfig.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set, generation and embedding calls will fail")
	}
	if AppConfig.FirebaseCredential == "" {
		log.Println("Warning: FIREBASE_SERVICE_ACCOUNT_JSON not set, token verification is disabled")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

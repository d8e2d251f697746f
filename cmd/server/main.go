package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huaitalk/companion-backend/internal/api"
	"github.com/huaitalk/companion-backend/internal/auth"
	"github.com/huaitalk/companion-backend/internal/config"
	"github.com/huaitalk/companion-backend/internal/core"
	"github.com/huaitalk/companion-backend/internal/corpus"
	"github.com/huaitalk/companion-backend/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	ctx := context.Background()

	// Initialize Firebase (identity + document store). A missing credential
	// disables both instead of halting startup.
	app, err := auth.NewApp(ctx, cfg.FirebaseCredential)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	verifier, err := auth.NewVerifier(ctx, app)
	if err != nil {
		log.Fatalf("Failed to initialize token verifier: %v", err)
	}

	var historyStore core.HistoryStore
	if app != nil {
		fsClient, err := app.Firestore(ctx)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		dbStore := store.NewFirestoreStore(fsClient)
		defer dbStore.Close()
		historyStore = dbStore
	} else {
		log.Println("History persistence disabled: no Firebase credentials")
	}

	// Initialize LLM service
	llmService := core.NewLLMService()
	defer llmService.Close()

	// Load the static corpus and warm up chunk embeddings. Failures here
	// disable retrieval, never startup.
	var retriever core.Retriever
	chunks, err := corpus.LoadFile(cfg.CorpusPath, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Printf("Corpus unavailable, retrieval disabled: %v", err)
	}
	if len(chunks) > 0 && llmService.Ready() {
		cache, err := store.NewEmbedCache(cfg.EmbedCachePath)
		if err != nil {
			log.Printf("Embedding cache unavailable, embedding corpus from scratch: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}

		ragService, err := core.NewRAGService(ctx, llmService, chunks, cache, cfg.TopK)
		if err != nil {
			log.Printf("Retrieval disabled: %v", err)
		} else {
			retriever = ragService
		}
	}

	// Initialize Chat service
	chatService := core.NewChatService(historyStore, retriever, llmService, cfg.HistoryLimit)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService, verifier)
	router := api.NewRouter(apiHandler, cfg.StaticDir, cfg.AllowedOrigins)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

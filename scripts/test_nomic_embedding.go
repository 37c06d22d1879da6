//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/pkg/embedding"
)

func main() {
	// 1. Load Config
	cfg := config.Load()
	fmt.Printf("Loaded Config > Embedding Provider: %s\n", cfg.Ai.EmbeddingProvider)
	fmt.Printf("Loaded Config > Ollama URL: %s\n", cfg.Ai.OllamaBaseURL)
	fmt.Printf("Loaded Config > Embedding Model: %s\n", cfg.Ai.EmbeddingModel)

	// 2. Initialize Ollama Provider explicitly for testing (ignoring main provider for now)
	timeout := time.Duration(cfg.Ai.RequestTimeoutSec) * time.Second
	provider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, timeout)

	// 3. Test Text
	text := "The quick brown fox jumps over the lazy dog."
	fmt.Printf("\nGenerating embedding for: \"%s\"\n", text)

	// 4. Generate
	vecs, err := provider.Embed(context.Background(), []string{text})
	if err != nil {
		log.Fatalf("Error generating embedding: %v", err)
	}

	// 5. Inspect Result
	dims := len(vecs[0])
	fmt.Printf("Success! Generated Embedding Dimensions: %d\n", dims)

	if dims > 5 {
		fmt.Printf("First 5 values: %v...\n", vecs[0][:5])
	}

	// 6. Validation
	// nomic-embed-text should be 768 dimensions
	if dims == 768 {
		fmt.Println("✅ Dimensions match expected Nomic output (768).")
	} else {
		fmt.Printf("⚠️  Dimensions %d do NOT match expected 768 for nomic-embed-text. (Is it a different model?)\n", dims)
	}
}

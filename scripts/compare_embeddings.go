//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/pkg/embedding"
)

// CosineSimilarity calculates similarity between two vectors
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func main() {
	cfg := config.Load()
	ctx := context.Background()
	timeout := time.Duration(cfg.Ai.RequestTimeoutSec) * time.Second

	// 1. Initialize Providers
	fmt.Println("--- Initializing Providers ---")
	nomic := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, timeout)
	openai := embedding.NewOpenAIProvider(cfg.Keys.OpenAI, "text-embedding-3-small", timeout)

	// 2. Define Test Cases
	text1 := "The rose is a woody perennial flowering plant of the genus Rosa" // Original
	text2 := "Roses are shrubs of the Rosa genus that bloom every year"       // Semantically similar
	text3 := "Quantum physics explores the nature of particles"               // Completely different

	fmt.Println("\n--- Generating Embeddings ---")

	// Helper to generate and print info
	generate := func(name string, p embedding.EmbeddingProvider, texts []string) [][]float32 {
		fmt.Printf("\n[%s] Generating...\n", name)

		vecs, err := p.Embed(ctx, texts)
		if err != nil {
			log.Printf("Error %s: %v", name, err)
			return nil
		}
		fmt.Printf("[%s] Dimensions: %d\n", name, len(vecs[0]))
		return vecs
	}

	// 3. Run Nomic (Ollama)
	n := generate("NOMIC", nomic, []string{text1, text2, text3})

	// 4. Run OpenAI (skipped without an API key)
	var o [][]float32
	if cfg.Keys.OpenAI != "" {
		o = generate("OPENAI", openai, []string{text1, text2, text3})
	} else {
		fmt.Println("\n[OPENAI] Skipped (no OPENAI_API_KEY)")
	}

	// 5. Compare Similarity
	fmt.Println("\n--- Semantic Similarity Comparison ---")
	fmt.Println("(Higher is better, 1.0 = identical)")

	if n != nil {
		fmt.Printf("\n[NOMIC]\n")
		fmt.Printf("Similarity (Text 1 vs Text 2 - Similar): %.4f\n", CosineSimilarity(n[0], n[1]))
		fmt.Printf("Similarity (Text 1 vs Text 3 - Different): %.4f\n", CosineSimilarity(n[0], n[2]))
	}

	if o != nil {
		fmt.Printf("\n[OPENAI]\n")
		fmt.Printf("Similarity (Text 1 vs Text 2 - Similar): %.4f\n", CosineSimilarity(o[0], o[1]))
		fmt.Printf("Similarity (Text 1 vs Text 3 - Different): %.4f\n", CosineSimilarity(o[0], o[2]))
	}

	fmt.Println("\n--- Conclusion ---")
	fmt.Println("Check if each provider ranks Text 1 & 2 as more similar than Text 1 & 3.")
}

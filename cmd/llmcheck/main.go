package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/triagedesk/backend/internal/config"
	"github.com/triagedesk/backend/internal/services"
)

// llmcheck verifies the assistant's model server: reachability, installed
// models and one short generation.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	llm := services.NewLLMService(cfg.LLM)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout+10*time.Second)
	defer cancel()

	fmt.Printf("Checking %s (model %s)\n", cfg.LLM.URL, llm.Model())
	if err := llm.CheckLLMHealth(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		os.Exit(1)
	}

	available, err := llm.GetAvailableModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listing models failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Available models: %v\n", available)

	start := time.Now()
	reply, err := llm.Generate(ctx, "Reply with the single word: ready")
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed after %v: %v\n", time.Since(start).Round(time.Millisecond), err)
		os.Exit(1)
	}
	fmt.Printf("Generation took %v: %q\n", time.Since(start).Round(time.Millisecond), reply)
}

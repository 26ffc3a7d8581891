package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fshasan/feedback-pulse/internal/config"
	"github.com/fshasan/feedback-pulse/internal/sources"
)

func main() {
	fmt.Println("feedback-pulse - source connectivity check")
	fmt.Println("==========================================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("\nChecking sources...")
	fmt.Println(strings.Repeat("-", 40))

	checkSource(ctx, "Twitter/X", sources.NewTwitterSource(cfg.TwitterBearerToken, cfg.TwitterQuery))
	checkSource(ctx, "GitHub", sources.NewGitHubSource(cfg.GitHubToken, cfg.GitHubRepos))
	checkSource(ctx, "Stack Overflow", sources.NewForumSource(cfg.ForumTags))

	fmt.Println("\nSource check completed.")
}

func checkSource(ctx context.Context, name string, source sources.Source) {
	fmt.Printf("- %s... ", name)

	if !source.IsEnabled() {
		fmt.Println("DISABLED (missing configuration)")
		return
	}

	items, err := source.Fetch(ctx, 24*time.Hour)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		return
	}

	fmt.Printf("OK (%d items in the last 24h)\n", len(items))
	if len(items) > 0 {
		fmt.Printf("    sample: %q\n", items[0].Title)
	}
}

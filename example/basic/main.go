package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/siherrmann/trendsense"
	"github.com/siherrmann/trendsense/helper"
	"github.com/siherrmann/trendsense/model"
)

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Poll a bit faster than the default for the demo
	config := model.DefaultPipelineConfig()
	config.FetchInterval = 5 * time.Minute
	config.Sources[model.SourceRSS] = model.SourceConfig{
		Enabled: true,
		Endpoints: []string{
			"https://hnrss.org/frontpage",
			"https://www.theverge.com/rss/index.xml",
		},
	}

	ts, err := trendsense.NewTrendSense(dbConfig, &config)
	if err != nil {
		log.Fatalf("Failed to create trendsense: %v", err)
	}
	defer ts.Close()

	// Register the built-in HackerNews, Reddit and RSS adapters
	ts.UseDefaultSources()

	// Set up the default clustering pipeline (all-MiniLM-L6-v2 embeddings)
	if err := ts.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	// Run one full cycle: collect, deduplicate, score, cluster, aggregate
	fmt.Println("Running one pipeline cycle...")
	status, err := ts.RunCycle(context.Background())
	if err != nil {
		log.Fatalf("Failed to run cycle: %v", err)
	}
	fmt.Printf("Cycle finished: %d items, %d topics, %d windows\n",
		status.ItemCount, status.TopicCount, status.WindowCount)
	for _, source := range status.Sources {
		fmt.Printf("  source %-10s ok=%-5v items=%d\n", source.Source, source.OK, source.ItemCount)
	}

	// Show the trending topics of the last day
	since := time.Now().Add(-24 * time.Hour)

	topics, err := ts.RecentTopics(since)
	if err != nil {
		log.Fatalf("Failed to load topics: %v", err)
	}
	fmt.Printf("\nFound %d topics:\n", len(topics))
	for i, topic := range topics {
		fmt.Printf("\n--- Topic %d ---\n", i+1)
		fmt.Printf("Terms: %v\n", topic.RepresentativeTerms)
		fmt.Printf("Members: %d\n", len(topic.MemberRIDs))
	}

	// And the trend windows with sentiment and velocity
	windows, err := ts.TrendWindows(since)
	if err != nil {
		log.Fatalf("Failed to load trend windows: %v", err)
	}
	fmt.Printf("\nFound %d trend windows:\n", len(windows))
	for _, window := range windows {
		fmt.Printf("  %s topic=%s items=%d velocity=%+d sentiment=%.2f\n",
			window.Bucket.Format(time.RFC3339), window.TopicID, window.ItemCount,
			window.Velocity, window.MeanSentiment)
	}

	distribution, err := ts.SentimentDistribution(since)
	if err != nil {
		log.Fatalf("Failed to load sentiment distribution: %v", err)
	}
	fmt.Printf("\nSentiment distribution: %v\n", distribution)

	fmt.Println("\nBasic example completed successfully!")
}

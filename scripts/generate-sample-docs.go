//go:build ignore

// Package main generates synthetic documents for exercising the indexing
// pipeline. It writes one JSON array per source, in the shape accepted by
// 'collectord index <source> --file <path>'.
//
// Usage: go run scripts/generate-sample-docs.go -docs 200 -output testdata/sample
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	numDocs   = flag.Int("docs", 200, "Number of documents per source")
	outputDir = flag.String("output", "testdata/sample", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

type document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

var topics = []string{
	"incident response", "quarterly planning", "release checklist",
	"onboarding notes", "API migration", "database failover",
	"billing reconciliation", "design review", "customer escalation",
}

var words = strings.Fields(`service deploy rollout latency alert runbook
review ticket thread schema index retry budget follow up decision draft
summary action owner deadline metric dashboard region cluster`)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	sources := []string{"jira", "slack", "gmail", "drive", "confluence", "calendar", "github"}
	for _, src := range sources {
		docs := make([]document, 0, *numDocs)
		for i := 0; i < *numDocs; i++ {
			docs = append(docs, makeDoc(rng, src, i))
		}
		path := filepath.Join(*outputDir, src+".json")
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal %s: %v\n", src, err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %d documents to %s\n", len(docs), path)
	}
}

func makeDoc(rng *rand.Rand, src string, i int) document {
	topic := topics[rng.Intn(len(topics))]
	updated := time.Now().Add(-time.Duration(rng.Intn(120*24)) * time.Hour).UTC()

	meta := map[string]any{
		"id":        fmt.Sprintf("%s-%d", src, i),
		"title":     fmt.Sprintf("%s #%d", topic, i),
		"updatedAt": updated.Format(time.RFC3339),
		"createdAt": updated.Add(-24 * time.Hour).Format(time.RFC3339),
	}
	switch src {
	case "jira":
		meta["project"] = fmt.Sprintf("PROJ%d", rng.Intn(4))
		meta["status"] = []string{"open", "in_progress", "done"}[rng.Intn(3)]
	case "slack":
		meta["channelId"] = fmt.Sprintf("C%04d", rng.Intn(8))
		meta["timestamp"] = fmt.Sprintf("%d.%06d", updated.Unix(), rng.Intn(1000000))
	case "gmail":
		meta["threadId"] = fmt.Sprintf("T%04d", rng.Intn(16))
		meta["subject"] = fmt.Sprintf("Re: %s", topic)
		meta["date"] = updated.Format(time.RFC3339)
	case "drive":
		meta["folderPath"] = fmt.Sprintf("/teams/eng/%s", strings.ReplaceAll(topic, " ", "-"))
	case "confluence":
		meta["space"] = fmt.Sprintf("SPACE%d", rng.Intn(4))
	case "calendar":
		meta["start"] = updated.Format(time.RFC3339)
		meta["end"] = updated.Add(time.Hour).Format(time.RFC3339)
	case "github":
		meta["repo"] = fmt.Sprintf("org/repo%d", rng.Intn(6))
	}

	return document{
		ID:       fmt.Sprintf("%s_%d", src, i),
		Content:  makeBody(rng, topic),
		Metadata: meta,
	}
}

func makeBody(rng *rand.Rand, topic string) string {
	var b strings.Builder
	b.WriteString(topic)
	b.WriteString(". ")
	n := 40 + rng.Intn(200)
	for i := 0; i < n; i++ {
		b.WriteString(words[rng.Intn(len(words))])
		if i%12 == 11 {
			b.WriteString(". ")
		} else {
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

func main() {
	url := "http://localhost:8080/health"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: reading body: %v\n", err)
		os.Exit(1)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: status %d, unparseable body: %s\n", resp.StatusCode, body)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK || health.Status != "ok" {
		fmt.Fprintf(os.Stderr, "unhealthy: status %d, database %s\n", resp.StatusCode, health.Database)
		os.Exit(1)
	}
	fmt.Printf("healthy: database %s, uptime %s\n", health.Database, health.Uptime)
}

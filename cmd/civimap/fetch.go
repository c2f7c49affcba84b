package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/participium/civimap/internal/engine/reports"
	"github.com/participium/civimap/internal/engine/storage"
	"github.com/participium/civimap/internal/tui"
)

// runFetch refreshes the offline snapshot without starting the TUI. Useful
// for cron jobs on kiosk installs with flaky connectivity.
func runFetch(args []string) error {
	var serverURL, token, dbPath, statusStr, boundaryPath string

	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	fs.StringVar(&serverURL, "server", os.Getenv("PARTICIPIUM_API_URL"), "Backend base URL")
	fs.StringVar(&token, "token", os.Getenv("PARTICIPIUM_API_TOKEN"), "Bearer token")
	fs.StringVar(&dbPath, "db", "", "Snapshot database path (default: user config dir)")
	fs.StringVar(&statusStr, "status", "", "Comma-separated status filter (default: public map statuses)")
	fs.StringVar(&boundaryPath, "boundary", os.Getenv("CIVIMAP_BOUNDARY"), "Boundary GeoJSON file (default: embedded)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: civimap fetch [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  civimap fetch -server https://participium.example.org\n")
		fmt.Fprintf(os.Stderr, "  civimap fetch -status \"Assigned,Resolved\" -db ./reports.db\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if serverURL == "" {
		return fmt.Errorf("-server or PARTICIPIUM_API_URL is required")
	}

	var statuses []string
	if statusStr != "" {
		statuses = strings.Split(statusStr, ",")
		for i := range statuses {
			statuses[i] = strings.TrimSpace(statuses[i])
		}
	}

	if dbPath == "" {
		dbPath = tui.SnapshotDBPath()
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return fmt.Errorf("creating snapshot dir: %w", err)
		}
	}

	// Log alongside the snapshot
	logPath := strings.TrimSuffix(dbPath, ".db") + ".log"
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags)
	logger.Printf("=== Fetch start: server=%s statuses=%v ===", serverURL, statuses)

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nCancelled")
		cancel()
	}()

	startTime := time.Now()

	client := reports.NewClient(serverURL, token)
	list, err := client.FetchMapReports(ctx, statuses)
	if err != nil {
		logger.Printf("Fetch failed: %v", err)
		return fmt.Errorf("fetching reports: %w", err)
	}

	boundary, err := loadBoundary(boundaryPath)
	if err != nil {
		return err
	}
	minLat, minLng, maxLat, maxLng := boundary.Bounds()
	fmt.Fprintf(os.Stderr, "Boundary: %s [%.2f, %.2f] - [%.2f, %.2f]\n",
		boundary.Name(), minLat, minLng, maxLat, maxLng)
	outside := boundary.CountOutside(list)

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	if err := store.ReplaceReports(list); err != nil {
		logger.Printf("Store failed: %v", err)
		return fmt.Errorf("storing snapshot: %w", err)
	}

	total, _ := store.Count()
	duration := time.Since(startTime).Truncate(time.Millisecond)

	logger.Printf("Done: fetched=%d stored=%d outside_boundary=%d", len(list), total, outside)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Snapshot Updated\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Server:     %s\n", serverURL)
	fmt.Fprintf(os.Stderr, "  Reports:    %d\n", total)
	if outside > 0 {
		fmt.Fprintf(os.Stderr, "  Outside:    %d (not within %s boundary)\n", outside, boundary.Name())
	}
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", duration)
	fmt.Fprintf(os.Stderr, "  Database:   %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "  Log:        %s\n", logPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	return nil
}

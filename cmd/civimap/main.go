package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/participium/civimap/internal/engine/geo"
	"github.com/participium/civimap/internal/engine/reports"
	"github.com/participium/civimap/internal/engine/storage"
	"github.com/participium/civimap/internal/tui"
	"github.com/participium/civimap/internal/tui/views"
)

var version = "dev"

func main() {
	// Optional .env next to the binary; real env wins.
	godotenv.Load()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "fetch":
			if err := runFetch(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "export":
			if err := runExport(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println("civimap " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	// No subcommand → launch TUI
	if err := runTUI(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI() error {
	serverURL := os.Getenv("PARTICIPIUM_API_URL")
	if serverURL == "" {
		serverURL = tui.LoadPrefs().ServerURL
	}
	if serverURL == "" {
		return fmt.Errorf("no server configured: set PARTICIPIUM_API_URL")
	}

	boundary, err := loadBoundary(os.Getenv("CIVIMAP_BOUNDARY"))
	if err != nil {
		return err
	}

	deps := &views.Deps{
		Client:   reports.NewClient(serverURL, os.Getenv("PARTICIPIUM_API_TOKEN")),
		Boundary: boundary,
		Geocoder: geo.NewReverseGeocoder(os.Getenv("CIVIMAP_NOMINATIM_URL")),
	}

	// Snapshot store is best effort; the map works without it.
	if store, err := storage.NewStore(tui.SnapshotDBPath()); err == nil {
		deps.Snapshot = store
		defer store.Close()
	}

	tui.SavePrefs(serverURL)

	return tui.Run(deps, boundary.Name(), serverURL)
}

// loadBoundary returns the embedded municipal boundary, or one loaded
// from a caller-supplied GeoJSON file.
func loadBoundary(path string) (*geo.BoundaryStore, error) {
	if path == "" {
		bs, err := geo.NewBoundaryStore()
		if err != nil {
			return nil, fmt.Errorf("loading boundary: %w", err)
		}
		return bs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading boundary file: %w", err)
	}
	bs, err := geo.NewBoundaryStoreFromGeoJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing boundary file %s: %w", path, err)
	}
	return bs, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `civimap - Participium municipal report map

Usage:
  civimap                Launch interactive TUI
  civimap fetch [flags]  Fetch reports into the offline snapshot
  civimap export [flags] Export a snapshot .db to CSV
  civimap version        Show version

Environment:
  PARTICIPIUM_API_URL    Backend base URL (required for TUI)
  PARTICIPIUM_API_TOKEN  Bearer token (optional)
  CIVIMAP_NOMINATIM_URL  Alternate Nominatim instance (optional)
  CIVIMAP_BOUNDARY       Alternate boundary GeoJSON file (optional)

Run 'civimap fetch --help' or 'civimap export --help' for flags.
`)
}

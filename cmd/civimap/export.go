package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/participium/civimap/internal/engine/storage"
	"github.com/participium/civimap/internal/tui"
)

func runExport(args []string) error {
	var dbPath, outputPath, format string

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to snapshot .db file (default: user config dir)")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: same dir as db)")
	fs.StringVar(&format, "format", "csv", "Export format: csv")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: civimap export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  civimap export\n")
		fmt.Fprintf(os.Stderr, "  civimap export -db ./reports.db -output results.csv\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dbPath == "" {
		dbPath = tui.SnapshotDBPath()
	}
	if format != "csv" {
		return fmt.Errorf("unsupported format: %s (only csv supported)", format)
	}

	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, base+".csv")
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening db: %w", err)
	}
	defer store.Close()

	list, err := store.LoadReports()
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if len(list) == 0 {
		return fmt.Errorf("no reports found in snapshot")
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{
		"id", "title", "description", "status", "category",
		"lat", "lng", "address", "created_at",
	})

	for _, r := range list {
		w.Write([]string{
			fmt.Sprintf("%d", r.ID),
			r.Title,
			r.Description,
			string(r.Status),
			r.Category.Name,
			fmt.Sprintf("%.6f", r.Location.Lat),
			fmt.Sprintf("%.6f", r.Location.Lng),
			r.Address,
			r.CreatedAt,
		})
	}

	fmt.Fprintf(os.Stderr, "Exported %d reports to %s\n", len(list), outputPath)
	return nil
}

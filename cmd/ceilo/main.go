// ceilo runs the cloud layer detection pipeline over a CSV of ceilometer
// hits and prints a METAR-style cloud report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/skewt/ceilo/internal/archive"
	"github.com/skewt/ceilo/internal/chunk"
	"github.com/skewt/ceilo/internal/ingest"
	"github.com/skewt/ceilo/internal/log"
	"github.com/skewt/ceilo/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "", "Path to a YAML parameter file (defaults apply when empty)")
	input := flag.String("input", "-", "Path to the hit CSV file, or '-' for stdin")
	format := flag.String("format", "metar", "Output format: metar, synop or json")
	archivePath := flag.String("archive", "", "SQLite archive to append this run to (optional)")
	listRuns := flag.Int("list", 0, "List the N most recent archived runs and exit (needs -archive)")
	logFile := flag.String("logfile", "", "Also write logs to this file, with rotation")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ceilo %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug, *logFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *listRuns > 0 {
		if *archivePath == "" {
			log.Errorf("-list needs -archive")
			os.Exit(1)
		}
		if err := printRecentRuns(*archivePath, *listRuns); err != nil {
			log.Errorf("Listing archived runs: %v", err)
			os.Exit(1)
		}
		return
	}

	params, err := loadParams(*cfgFile)
	if err != nil {
		log.Errorf("Failed to load parameters: %v", err)
		os.Exit(1)
	}

	hits, err := readHits(*input)
	if err != nil {
		log.Errorf("Failed to read hits: %v", err)
		os.Exit(1)
	}

	c, err := chunk.New(hits, params)
	if err != nil {
		log.Errorf("Building chunk: %v", err)
		os.Exit(1)
	}
	rep, err := c.Report()
	if err != nil {
		log.Errorf("Pipeline failed: %v", err)
		os.Exit(1)
	}

	switch *format {
	case "metar":
		fmt.Println(rep.Metar)
	case "synop":
		fmt.Println(c.SynopStyle())
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			log.Errorf("Encoding report: %v", err)
			os.Exit(1)
		}
	default:
		log.Errorf("Unknown output format %q", *format)
		os.Exit(1)
	}

	if *archivePath != "" {
		id, err := archiveReport(*archivePath, rep)
		if err != nil {
			log.Errorf("Archiving run: %v", err)
			os.Exit(1)
		}
		log.Infof("archived run %s", id)
	}
}

func loadParams(cfgFile string) (config.Params, error) {
	if cfgFile == "" {
		return config.DefaultParams(), nil
	}
	filename, _ := filepath.Abs(cfgFile)
	return config.NewYAMLProvider(filename).LoadParams()
}

func readHits(input string) ([]chunk.Hit, error) {
	if input == "-" {
		return ingest.Read(os.Stdin)
	}
	return ingest.ReadFile(input)
}

func archiveReport(path string, rep chunk.Report) (string, error) {
	store, err := archive.Open(path)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.SaveReport(context.Background(), rep)
}

func printRecentRuns(path string, n int) error {
	store, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), n)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s  %s  %-20s  %d hits, %d layers\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"), run.ID,
			run.Report.Metar, run.Report.NHits, len(run.Report.Layers))
	}
	return nil
}

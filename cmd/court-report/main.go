// Command court-report runs a recorded court session through calibration,
// speed estimation and heatmap aggregation, and writes the results as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/court.report/internal/calibration"
	"github.com/banshee-data/court.report/internal/config"
	"github.com/banshee-data/court.report/internal/fsutil"
	"github.com/banshee-data/court.report/internal/heatmap"
	"github.com/banshee-data/court.report/internal/kinematics"
	"github.com/banshee-data/court.report/internal/store"
	"github.com/banshee-data/court.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a tuning config JSON file (default: built-in profile defaults)")
	sessionPath = flag.String("session", "", "Path to the recorded session JSON file")
	outDir      = flag.String("out", "report", "Directory to write calibration.json, heatmap.json and speed.json")
	dbPath      = flag.String("db", "", "SQLite database for calibration state and heatmap exports (empty keeps them in memory)")
	restoreKey  = flag.String("restore", "", "Store key of a saved calibration to reuse instead of calibrating")
	verbose     = flag.Bool("v", false, "Log diagnostics")
	veryVerbose = flag.Bool("vv", false, "Log diagnostics and per-frame trace")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// configureLogging routes every package's ops stream to w, and the diag and
// trace streams when enabled.
func configureLogging(w io.Writer, diag, trace bool) {
	var d, t io.Writer
	if diag || trace {
		d = w
	}
	if trace {
		t = w
	}
	calibration.SetLogWriters(calibration.LogWriters{Ops: w, Diag: d, Trace: t})
	kinematics.SetLogWriters(kinematics.LogWriters{Ops: w, Diag: d, Trace: t})
	heatmap.SetLogWriters(heatmap.LogWriters{Ops: w, Diag: d, Trace: t})
	store.SetLogWriters(store.LogWriters{Ops: w, Diag: d, Trace: t})
}

func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// openStore returns the blob store for dbPath and a function closing it.
func openStore(path string) (store.BlobStore, func() error, error) {
	if path == "" {
		return store.NewMemoryStore(), func() error { return nil }, nil
	}
	s, err := store.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *sessionPath == "" {
		log.Fatal("Session file is required (-session)")
	}
	configureLogging(os.Stderr, *verbose, *veryVerbose)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fsys := fsutil.OSFileSystem{}
	var sess SessionFile
	if err := fsutil.ReadJSON(fsys, *sessionPath, &sess); err != nil {
		log.Fatalf("Failed to load session: %v", err)
	}

	blobs, closeStore, err := openStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := Run(ctx, sess, Options{
		Config:     cfg,
		Store:      blobs,
		FS:         fsys,
		OutDir:     *outDir,
		RestoreKey: *restoreKey,
	})
	if err != nil {
		log.Printf("Run failed: %v", err)
		closeStore()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Printf("failed to write report: %v", err)
	}
}

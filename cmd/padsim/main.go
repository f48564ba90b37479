// Command padsim digitizes ionization steps read from CSV onto a pad plane.
//
// Each event's steps are drifted, amplified and spread over the pads; per-event
// readouts can be stored in SQLite and the run's hit occupancy rendered as
// PNG and HTML heat maps.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/padplane/internal/config"
	"github.com/banshee-data/padplane/internal/digitizer"
	"github.com/banshee-data/padplane/internal/fsutil"
	"github.com/banshee-data/padplane/internal/gas"
	"github.com/banshee-data/padplane/internal/monitoring"
	"github.com/banshee-data/padplane/internal/pipeline"
	"github.com/banshee-data/padplane/internal/report"
	"github.com/banshee-data/padplane/internal/steps"
	"github.com/banshee-data/padplane/internal/storage/sqlite"
	"github.com/banshee-data/padplane/internal/version"
)

type options struct {
	configPath  string
	input       string
	dbPath      string
	plotsDir    string
	workers     int
	seed        uint64
	lengthUnit  string
	energyUnit  string
	quiet       bool
	showVersion bool
}

func parseFlags(args []string, env config.RuntimeEnv) (options, error) {
	var o options
	fs := flag.NewFlagSet("padsim", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", env.ConfigPath, "Digitizer JSON config (config/digitizer.defaults.json or built-in defaults when empty)")
	fs.StringVar(&o.input, "input", "-", "Ionization step CSV, - for stdin")
	fs.StringVar(&o.dbPath, "db", env.DBPath, "SQLite database for readouts (optional)")
	fs.StringVar(&o.plotsDir, "plots", env.PlotsDir, "Directory for occupancy plots (optional)")
	fs.IntVar(&o.workers, "workers", env.Workers, "Number of parallel digitizers")
	fs.Uint64Var(&o.seed, "seed", env.Seed, "Random seed, 0 keeps the configured seed")
	fs.StringVar(&o.lengthUnit, "length-unit", "mm", "Unit of step positions")
	fs.StringVar(&o.energyUnit, "energy-unit", "eV", "Unit of energy deposits")
	fs.BoolVar(&o.quiet, "quiet", false, "Suppress progress and warning logs")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.workers < 1 {
		return options{}, fmt.Errorf("workers must be at least 1, got %d", o.workers)
	}
	return o, nil
}

// loadTuning reads -config, falling back to the repository defaults file and
// then to the built-in defaults.
func loadTuning(fsys fsutil.FileSystem, o options) (*config.DigitizerConfig, error) {
	path := o.configPath
	if path == "" && fsys.Exists(config.DefaultConfigPath) {
		path = config.DefaultConfigPath
	}

	cfg := config.EmptyDigitizerConfig()
	if path != "" {
		if !fsys.Exists(path) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		var err error
		if cfg, err = config.ReadDigitizerConfig(fsys, path); err != nil {
			return nil, err
		}
	}
	config.RuntimeEnv{Seed: o.seed}.ApplyTo(cfg)
	return cfg, nil
}

func openInput(fsys fsutil.FileSystem, stdin io.Reader, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	return fsys.Open(path)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, fsys fsutil.FileSystem, env config.RuntimeEnv) error {
	if len(args) > 0 && args[0] == "migrate" {
		return runMigrate(args[1:], stdout, env)
	}

	o, err := parseFlags(args, env)
	if err != nil {
		return err
	}
	if o.showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	if o.quiet {
		monitoring.SetLogger(nil)
	}

	tuning, err := loadTuning(fsys, o)
	if err != nil {
		return err
	}
	grid, err := digitizer.GridFromTuning(tuning)
	if err != nil {
		return err
	}
	cfg := digitizer.ConfigFromTuning(tuning)

	in, err := openInput(fsys, stdin, o.input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()
	src, err := steps.NewReader(in, steps.Options{LengthUnit: o.lengthUnit, EnergyUnit: o.energyUnit})
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Workers: o.workers,
		Config:  *cfg,
		Grid:    grid,
		Gas:     gas.FromConfig(tuning),
	}

	var (
		store *sqlite.RunStore
		runID string
	)
	if o.dbPath != "" {
		db, err := sqlite.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		configJSON, err := json.Marshal(tuning)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		store = sqlite.NewRunStore(db.DB)
		r := &sqlite.Run{
			ConfigJSON: configJSON,
			Seed:       cfg.Seed,
			Workers:    o.workers,
			NPadX:      grid.NPadX,
			NPadY:      grid.NPadY,
		}
		if err := store.CreateRun(r); err != nil {
			return err
		}
		runID = r.RunID
		opts.Sink = store.Sink(runID)
		monitoring.Logf("[padsim] run_id=%s db=%s", runID, o.dbPath)
	}

	res, err := pipeline.Run(ctx, opts, src)
	if err != nil {
		return err
	}

	if store != nil {
		if err := store.FinishRun(runID, res.Summary); err != nil {
			return err
		}
		if err := store.SaveHistogram(runID, res.Histogram); err != nil {
			return err
		}
	}

	occupancy, err := report.Occupancy(grid, res.Histogram)
	if err != nil {
		return err
	}
	if o.plotsDir != "" {
		name := "occupancy"
		if runID != "" {
			name = "occupancy-" + runID
		}
		files, err := report.WriteFiles(fsys, o.plotsDir, name, occupancy)
		if err != nil {
			return err
		}
		for _, f := range files {
			monitoring.Logf("[padsim] wrote %s", f)
		}
	}

	fmt.Fprintf(stdout, "%s\n", res.Summary)
	fmt.Fprintf(stdout, "occupancy %s\n", occupancy.Summarize())
	fmt.Fprintf(stdout, "workers=%d elapsed=%s\n", res.Workers, res.Elapsed)
	return nil
}

func main() {
	log.SetFlags(0)
	env, err := config.LoadRuntimeEnv()
	if err != nil {
		log.Fatalf("padsim: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, os.Args[1:], os.Stdin, os.Stdout, fsutil.OSFileSystem{}, env)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		stop()
		log.Fatalf("padsim: %v", err)
	}
}

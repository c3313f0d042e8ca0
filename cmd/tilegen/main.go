// Command tilegen runs one tile generation and prints, renders or stores
// the result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lawnchairsociety/tiledwfc/internal/config"
	"github.com/lawnchairsociety/tiledwfc/internal/generator"
	"github.com/lawnchairsociety/tiledwfc/internal/logger"
	"github.com/lawnchairsociety/tiledwfc/internal/render"
	"github.com/lawnchairsociety/tiledwfc/internal/store"
	"github.com/lawnchairsociety/tiledwfc/internal/tileset"
	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

type options struct {
	configFile  string
	loggingFile string
	tileset     string
	width       int
	height      int
	limit       int
	seed        string
	attempts    int
	periodic    bool
	out         string
	images      string
	text        bool
	snapshot    string
	replay      string
	convert     string
	db          bool
	list        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", "data/tilegen.yaml", "Path to config YAML file")
	flag.StringVar(&opts.loggingFile, "logging", "data/logging.yaml", "Path to logging config YAML file")
	flag.StringVar(&opts.tileset, "tileset", "", "Tileset name in the tileset directory, or a path to an .xml/.yaml file")
	flag.IntVar(&opts.width, "width", 0, "Grid width in cells (default from config)")
	flag.IntVar(&opts.height, "height", 0, "Grid height in cells (default from config)")
	flag.IntVar(&opts.limit, "limit", -1, "Maximum observations per attempt, negative for no limit")
	flag.StringVar(&opts.seed, "seed", "", "Seed: 64 hex characters or any phrase (default: random)")
	flag.IntVar(&opts.attempts, "attempts", 0, "Seeds to try before giving up (default from config)")
	flag.BoolVar(&opts.periodic, "periodic", false, "Wrap the grid around its edges")
	flag.StringVar(&opts.out, "out", "", "Write the rendered grid to this PNG file")
	flag.StringVar(&opts.images, "images", "", "Tile image directory (default from config)")
	flag.BoolVar(&opts.text, "text", true, "Print the grid as text")
	flag.StringVar(&opts.snapshot, "snapshot", "", "Write the result to this YAML snapshot file")
	flag.StringVar(&opts.replay, "replay", "", "Print and render a saved YAML snapshot instead of generating")
	flag.StringVar(&opts.convert, "convert", "", "Write the tileset as YAML to this file and exit")
	flag.BoolVar(&opts.db, "db", false, "Save the run to the configured database")
	flag.BoolVar(&opts.list, "list", false, "List available tilesets and exit")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	logConfig, err := logger.LoadConfig(opts.loggingFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading logging config: %v\n", err)
		os.Exit(1)
	}
	closeLog, err := logger.Initialize(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	err = run(opts, set)
	closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, set map[string]bool) error {
	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cfg, opts, set)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if opts.list {
		return listTilesets(cfg)
	}
	if opts.replay != "" {
		return replay(cfg, opts)
	}
	if opts.convert != "" {
		if err := convertTileset(cfg, opts.tileset, opts.convert); err != nil {
			return err
		}
		fmt.Printf("Tileset written to %s\n", opts.convert)
		return nil
	}

	ts, err := loadTileset(cfg, opts.tileset)
	if err != nil {
		return err
	}
	model, err := ts.Model()
	if err != nil {
		return err
	}

	gen, err := generator.New(ts.Name, model, cfg.Generator)
	if err != nil {
		return err
	}
	gen.OnProgress = func(p generator.Progress) {
		logger.Debug("Progress", "attempt", p.Attempt, "step", p.Step, "collapsed", p.Collapsed, "cells", p.Cells)
	}

	seed := wfc.SeedFromInt(time.Now().UnixNano())
	if opts.seed != "" {
		seed = wfc.ParseSeed(opts.seed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := gen.Generate(ctx, seed)
	if err != nil {
		return err
	}
	res := outcome.Result

	if opts.text {
		fmt.Print(res.Text(model.VariantNames()))
	}
	fmt.Printf("tileset=%s size=%dx%d status=%s steps=%d attempts=%d seed=%s\n",
		ts.Name, res.Width, res.Height, res.Status, res.Steps, outcome.Attempts, outcome.Seed)

	if opts.out != "" {
		if err := writeImage(cfg, ts, model, res, opts.out); err != nil {
			return err
		}
		fmt.Printf("Image written to %s\n", opts.out)
	}

	if opts.snapshot != "" {
		snap := store.NewSnapshot(ts.Name, res, model.VariantNames(), outcome.Attempts)
		if err := store.SaveSnapshot(opts.snapshot, snap); err != nil {
			return err
		}
		fmt.Printf("Snapshot written to %s\n", opts.snapshot)
	}

	if cfg.Database.Enabled {
		st, err := store.Open(cfg.Database.Config)
		if err != nil {
			return err
		}
		defer st.Close()

		saved := store.NewRun(ts.Name, res, outcome.Attempts)
		err = st.SaveRun(saved)
		switch {
		case errors.Is(err, store.ErrDuplicateRun):
			fmt.Printf("Run already saved with id %d\n", saved.ID)
		case err != nil:
			return err
		default:
			fmt.Printf("Run saved with id %d\n", saved.ID)
		}
	}
	return nil
}

// applyFlags overrides config values with the flags given on the command line.
func applyFlags(cfg *config.Config, opts options, set map[string]bool) {
	if opts.width > 0 {
		cfg.Generator.Width = opts.width
	}
	if opts.height > 0 {
		cfg.Generator.Height = opts.height
	}
	if set["limit"] {
		cfg.Generator.Limit = opts.limit
	}
	if opts.attempts > 0 {
		cfg.Generator.MaxAttempts = opts.attempts
	}
	if set["periodic"] {
		cfg.Generator.Periodic = opts.periodic
	}
	if opts.images != "" {
		cfg.Tilesets.ImagesDir = opts.images
	}
	if opts.db {
		cfg.Database.Enabled = true
	}
}

// loadTileset treats arg as a file when it has a tileset extension and as
// a library name otherwise.
func loadTileset(cfg *config.Config, arg string) (*tileset.Tileset, error) {
	if arg == "" {
		arg = cfg.Tilesets.Default
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".xml", ".yaml", ".yml":
		return tileset.Load(arg)
	}

	lib, err := tileset.LoadDir(cfg.Tilesets.Dir)
	if err != nil {
		return nil, err
	}
	return lib.Get(arg)
}

// replay prints and optionally renders a snapshot written by -snapshot.
// The snapshot names its tileset unless -tileset overrides it.
func replay(cfg *config.Config, opts options) error {
	ts, model, res, err := loadReplay(cfg, opts.replay, opts.tileset)
	if err != nil {
		return err
	}
	if opts.text {
		fmt.Print(res.Text(model.VariantNames()))
	}
	fmt.Printf("tileset=%s size=%dx%d status=%s steps=%d seed=%s (replayed)\n",
		ts.Name, res.Width, res.Height, res.Status, res.Steps, res.Seed)

	if opts.out != "" {
		if err := writeImage(cfg, ts, model, res, opts.out); err != nil {
			return err
		}
		fmt.Printf("Image written to %s\n", opts.out)
	}
	return nil
}

func loadReplay(cfg *config.Config, path, tilesetArg string) (*tileset.Tileset, *wfc.Model, *wfc.Result, error) {
	snap, err := store.LoadSnapshot(path)
	if err != nil {
		return nil, nil, nil, err
	}
	if tilesetArg == "" {
		tilesetArg = snap.Tileset
	}
	ts, err := loadTileset(cfg, tilesetArg)
	if err != nil {
		return nil, nil, nil, err
	}
	model, err := ts.Model()
	if err != nil {
		return nil, nil, nil, err
	}
	res, err := snap.Result(model.VariantNames())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return ts, model, res, nil
}

// convertTileset rewrites a tileset, typically an XML one, as YAML.
func convertTileset(cfg *config.Config, arg, out string) error {
	ts, err := loadTileset(cfg, arg)
	if err != nil {
		return err
	}
	if _, err := ts.Model(); err != nil {
		return fmt.Errorf("tileset %s: %w", ts.Name, err)
	}
	return ts.SaveYAML(out)
}

func listTilesets(cfg *config.Config) error {
	lib, err := tileset.LoadDir(cfg.Tilesets.Dir)
	if err != nil {
		return err
	}
	for _, name := range lib.Names() {
		ts := lib[name]
		fmt.Printf("%-20s %d tiles, %d neighbor rules\n", name, len(ts.Tiles), len(ts.Neighbors))
	}

	if !cfg.Database.Enabled {
		return nil
	}
	st, err := store.Open(cfg.Database.Config)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns("", 10)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		fmt.Println("\nRecent runs:")
	}
	for _, r := range runs {
		fmt.Printf("%6d %-20s %3dx%-3d %-13s %s\n", r.ID, r.Tileset, r.Width, r.Height, r.Status, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func writeImage(cfg *config.Config, ts *tileset.Tileset, model *wfc.Model, res *wfc.Result, path string) error {
	atlas, err := render.LoadAtlas(filepath.Join(cfg.Tilesets.ImagesDir, ts.Name), ts, model)
	if err != nil {
		return err
	}
	img, err := atlas.Compose(res)
	if err != nil {
		return err
	}
	if res.Status != wfc.StatusResolved {
		logger.Warning("Rendering an unresolved grid", "status", res.Status.String())
	}
	if err := render.SavePNG(path, img); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

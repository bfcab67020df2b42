package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ironsheep/afm-tools-mcp/internal/config"
	"github.com/ironsheep/afm-tools-mcp/internal/logging"
	"github.com/ironsheep/afm-tools-mcp/internal/pipeline"
	"github.com/ironsheep/afm-tools-mcp/internal/server"
	"github.com/ironsheep/afm-tools-mcp/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("afm-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage(os.Stdout)
			return
		case "measure":
			os.Exit(runMeasure(os.Args[2:]))
		}
	}

	os.Exit(runServer(os.Args[1:]))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "afm-tools-mcp - MCP server for AFM hole measurement")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  afm-mcp [-config file]                  Serve MCP over stdin/stdout")
	fmt.Fprintln(w, "  afm-mcp measure [flags] file...         Write Diam_Dep_<name>.txt for each file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintf(w, "  %s=debug    Log level (debug, info, warn, error)\n", config.EnvLogLevel)
	fmt.Fprintf(w, "  %s=path      SQLite archive of measured runs\n", config.EnvArchive)
	fmt.Fprintf(w, "  %s=n         Concurrent files in measure\n", config.EnvWorkers)
}

// setup loads the configuration and builds the stderr logger; stdout is
// reserved for the MCP protocol and result output.
func setup(path string, pretty bool) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	log := logging.New(os.Stderr, level, pretty || cfg.Log.Pretty)
	return cfg, log, nil
}

func openArchive(cfg config.Config, log zerolog.Logger) (*store.Store, error) {
	if cfg.Archive.Path == "" {
		return nil, nil
	}
	archive, err := store.Open(cfg.Archive.Path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.Archive.Path).Msg("archive opened")
	return archive, nil
}

func runServer(args []string) int {
	fs := flag.NewFlagSet("afm-mcp", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, log, err := setup(*configPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "afm-mcp: %v\n", err)
		return 1
	}
	log.Debug().Str("version", Version).Str("built", BuildTime).Str("commit", GitCommit).Msg("starting")

	archive, err := openArchive(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to open archive")
		return 1
	}

	opts := []server.Option{server.WithLogger(logging.Component(log, "server"))}
	if archive != nil {
		defer archive.Close()
		opts = append(opts, server.WithArchive(archive))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, opts...)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("server error")
		return 1
	}
	return 0
}

func runMeasure(args []string) int {
	fs := flag.NewFlagSet("measure", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	realSize := fs.Float64("real-size", 0, "physical scan width (0 reports pixels)")
	pixels := fs.Int("pixels", 0, "samples across the scan width (0 uses the map width)")
	unit := fs.String("unit", "", "unit of -real-size: um or nm")
	preview := fs.Bool("preview", false, "also write Preview_<name>.png")
	pretty := fs.Bool("pretty", false, "human-readable logs")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "afm-mcp measure: no input files")
		return 2
	}

	cfg, log, err := setup(*configPath, *pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "afm-mcp measure: %v\n", err)
		return 1
	}
	if *preview {
		cfg.Preview.Enabled = true
	}

	size := cfg.Scan
	if *realSize != 0 {
		size.RealX = *realSize
	}
	if *pixels != 0 {
		size.PixelsX = *pixels
	}
	if *unit != "" {
		size.Unit = *unit
	}

	opts := []pipeline.Option{pipeline.WithLogger(logging.Component(log, "pipeline"))}
	archive, err := openArchive(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to open archive")
		return 1
	}
	if archive != nil {
		defer archive.Close()
		opts = append(opts, pipeline.WithArchive(archive))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	items, err := pipeline.NewRunner(cfg, opts...).MeasureBatch(ctx, fs.Args(), size)
	for _, it := range items {
		if it.Err != nil {
			fmt.Printf("%s\tFAILED\t%v\n", it.Path, it.Err)
			continue
		}
		printResult(os.Stdout, it.Result)
	}
	if err != nil {
		return 1
	}
	return 0
}

func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "%s\t%d holes\tdiameter %.2f ± %.2f nm\tdepth %.2f ± %.2f\n",
		res.OutputPath,
		res.Summary.Count,
		res.Summary.MeanDiameter, res.Summary.StdDiameter,
		res.Summary.MeanDepth, res.Summary.StdDepth,
	)
}

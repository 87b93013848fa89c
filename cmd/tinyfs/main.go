package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/tinyfs/internal/logger"
	"github.com/marmos91/tinyfs/pkg/config"
	"github.com/marmos91/tinyfs/pkg/server"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

const usage = `tinyfs - volatile fixed-capacity filesystem

Usage:
  tinyfs <command> [flags]

Commands:
  init      Write a default configuration file
  start     Start the server
  version   Print version information

Run 'tinyfs <command> -h' for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "start":
		err = runStart(os.Args[2:])
	case "version":
		fmt.Printf("tinyfs %s (commit %s)\n", version, commit)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(args []string) error {
	flags := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := flags.String("config", "", "Path of the config file (default: "+config.GetDefaultConfigPath()+")")
	force := flags.Bool("force", false, "Overwrite an existing config file")
	_ = flags.Parse(args)

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func runStart(args []string) error {
	flags := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := flags.String("config", "", "Path of the config file (default: "+config.GetDefaultConfigPath()+")")
	_ = flags.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure log output: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("tinyfs %s starting", version)

	metricsResult := config.InitializeMetrics(cfg)

	fs, err := config.CreateFileSystem(ctx, cfg, metricsResult.FSMetrics)
	if err != nil {
		return err
	}
	geom := fs.Geometry()
	logger.Info("Filesystem mounted: %d blocks, %d entries per directory, %d-byte files",
		geom.MaxFiles, geom.MaxSubdirFiles, geom.FileBufferSize)

	snapshots, err := config.CreateSnapshotStore(ctx, &cfg.Snapshots)
	if err != nil {
		return err
	}
	if snapshots != nil {
		defer func() {
			if err := snapshots.Close(); err != nil {
				logger.Warn("Failed to close snapshot store: %v", err)
			}
		}()
		logger.Info("Snapshots enabled (%s store, max %d)", cfg.Snapshots.Type, cfg.Snapshots.MaxSnapshots)
	}

	adapters, err := config.CreateAdapters(cfg, snapshots, metricsResult.HTTPMetrics)
	if err != nil {
		return err
	}

	srv := server.New(fs)
	srv.SetStopTimeout(cfg.Server.ShutdownTimeout)
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return err
		}
	}

	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("tinyfs stopped")
	return nil
}

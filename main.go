package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"preload/pkg/cli"
	"preload/pkg/common"
	"preload/pkg/config"
	"preload/pkg/display"
	"preload/pkg/manifest"
	"preload/pkg/query"
	"preload/pkg/transport"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	res := PreloadEngine(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(res.ExitCode)
}

// PreloadEngine runs one invocation of the tool. Errors are printed to
// stderr and turned into an exit code.
func PreloadEngine(ctx context.Context, args []string, stdout, stderr io.Writer) *common.ExecutionResult {
	res, err := run(ctx, args, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		code := 1
		if errors.Is(err, cli.ErrUsage) {
			code = 2
		}
		return &common.ExecutionResult{ExitCode: code}
	}
	return res
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (*common.ExecutionResult, error) {
	// 1. Parse command line arguments
	opts, err := cli.Parse(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return &common.ExecutionResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	if opts.Version {
		fmt.Fprintln(stdout, config.GetBuildInfo())
		return &common.ExecutionResult{}, nil
	}

	// 2. Read the manifest, if any
	var m *manifest.Manifest
	if opts.Manifest != "" {
		if m, err = manifest.Load(opts.Manifest); err != nil {
			return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
	}

	// 3. Settings file, then flags on top
	sysCfg, err := config.Init()
	if err != nil {
		return nil, fmt.Errorf("%w: error initializing config: %w", cli.ErrUsage, err)
	}
	w := sysCfg.Checkout()
	if err := opts.Apply(w, m); err != nil {
		return nil, err
	}
	w.Freeze()

	if opts.Save {
		if err := w.Save(); err != nil {
			return nil, fmt.Errorf("saving settings: %w", err)
		}
		fmt.Fprintf(stdout, "Settings written to %s\n", w.GetSettingsPath())
		return &common.ExecutionResult{}, nil
	}

	// 4. Query and transports are checked before anything is fetched
	engine := &cli.Engine{Config: w}
	if opts.Query != "" {
		if engine.Filter, err = query.Compile(opts.Query); err != nil {
			return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
	}
	if names := opts.TransportNames(); names != nil {
		if engine.Factories, err = transport.Lookup(names...); err != nil {
			return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
	}

	items := opts.Items(m)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: nothing to load", cli.ErrUsage)
	}

	// 5. Progress display
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.TUI {
		engine.Display = display.NewTUI(cancel)
	} else {
		engine.Display = display.NewConsole()
	}
	engine.Display.SetVerbose(opts.Verbose)

	// 6. Load everything, then print the summary once progress is gone
	res := engine.Run(ctx, items)
	engine.Display.Close()

	out := display.NewWriterDisplay(stdout)
	out.RenderOutput(res.Output)
	out.Close()
	return res, nil
}

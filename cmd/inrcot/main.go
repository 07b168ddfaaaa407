package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/takutils/inrcot/pkg/config"
	"github.com/takutils/inrcot/pkg/dispatch"
	"github.com/takutils/inrcot/pkg/feed"
	"github.com/takutils/inrcot/pkg/transport"
	"github.com/takutils/inrcot/server"
)

// Opts with all CLI options
type Opts struct {
	Config       string `short:"c" long:"config" env:"CONFIG" default:"inrcot.yml" description:"config file path"`
	PollInterval int    `short:"p" long:"poll" env:"POLL_INTERVAL" description:"poll interval in seconds, overrides config"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run loads the configuration, wires the pipeline and blocks until ctx is done
// or the status server fails.
func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// feed passwords never show up in logs
	setupLog(opts.Debug, cfg.FeedPasswords()...)

	log.Printf("[INFO] starting inrcot version %s", revision)

	feeds := config.BuildFeeds(cfg)
	if len(feeds) == 0 {
		return fmt.Errorf("no feed sections found in %s, nothing to poll", opts.Config)
	}
	for _, fc := range feeds {
		log.Printf("[INFO] feed %s: url=%s stale=%ds type=%s auth=%v", fc.Name, fc.URL, fc.Stale, fc.Type, fc.Auth != nil)
	}

	interval := time.Duration(cfg.PollInterval) * time.Second
	if opts.PollInterval > 0 {
		interval = time.Duration(opts.PollInterval) * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan []byte, cfg.QueueSize)

	if cfg.CotURL != "" {
		sender, err := transport.New(cfg.CotURL)
		if err != nil {
			return fmt.Errorf("failed to create transport: %w", err)
		}
		go sender.Run(ctx, queue) //nolint:errcheck // always nil on shutdown
	} else {
		log.Printf("[WARN] no cot_url configured, events stay in the queue and get dropped when it fills")
	}

	disp := dispatch.New(feeds, feed.NewFetcher(cfg.FetchTimeout), interval, queue)
	disp.Start(ctx)
	defer disp.Stop()

	listen, timeout := cfg.GetServerConfig()
	srv := server.New(listen, timeout, disp, revision, opts.Debug)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(os.Stdout), lgr.Err(io.Discard)}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

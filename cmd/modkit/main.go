// Package main is the entry point for the modkit module host.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/modkit/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		application.Shutdown()
	}()

	if err := application.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() app.Options {
	var opts app.Options
	var modulePaths string
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&modulePaths, "module-path", "", "Extra module directories (comma separated)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.Debug, "debug", false, "Enable debug mode")
	flag.BoolVar(&opts.Debug, "d", false, "Enable debug mode (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Modkit - dynamic module host\n\n")
		fmt.Fprintf(os.Stderr, "Usage: modkit [options] [modules...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  modkit                         Load every discovered module\n")
		fmt.Fprintf(os.Stderr, "  modkit line-numbers            Load only the named module\n")
		fmt.Fprintf(os.Stderr, "  modkit -module-path ./mods     Search an extra directory\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("modkit %s\n", app.Version)
		os.Exit(0)
	}

	if modulePaths != "" {
		for _, p := range strings.Split(modulePaths, ",") {
			if p = strings.TrimSpace(p); p != "" {
				opts.ModulePaths = append(opts.ModulePaths, p)
			}
		}
	}

	// Remaining arguments name the modules to load.
	opts.Modules = flag.Args()
	return opts
}

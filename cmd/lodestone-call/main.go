// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/lodestone-data/lodestone/bridge"
	"github.com/lodestone-data/lodestone/lib/version"
	"github.com/lodestone-data/lodestone/transport"
	"github.com/lodestone-data/lodestone/value"
)

// fileConfig is the on-disk configuration, read from
// ~/.config/lodestone/config.yaml unless --config points elsewhere.
type fileConfig struct {
	// Deployment is the default deployment URL. The --deployment flag
	// overrides it.
	Deployment string `yaml:"deployment"`

	// Compression lists the algorithms offered at hello time, in
	// preference order. Empty means the transport default.
	Compression []string `yaml:"compression"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("lodestone-call", pflag.ContinueOnError)
	deployment := flags.StringP("deployment", "d", "", "deployment URL (overrides the config file)")
	configPath := flags.StringP("config", "c", "", "config file (default ~/.config/lodestone/config.yaml)")
	timeout := flags.DurationP("timeout", "t", 30*time.Second, "per-call timeout for query, mutation, and action")
	verbose := flags.BoolP("verbose", "v", false, "enable debug logging")
	showVersion := flags.Bool("version", false, "print version and exit")
	flags.Usage = func() { printUsage(flags) }

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("lodestone-call %s\n", version.Info())
		return nil
	}

	args := flags.Args()
	if len(args) < 2 || len(args) > 3 {
		flags.Usage()
		return fmt.Errorf("expected <operation> <function> [json-args]")
	}
	operation, path := args[0], args[1]

	functionArgs := value.Object{}
	if len(args) == 3 {
		parsed, err := parseArgs(args[2])
		if err != nil {
			return err
		}
		functionArgs = parsed
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	config, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *deployment != "" {
		config.Deployment = *deployment
	}
	if config.Deployment == "" {
		return fmt.Errorf("no deployment URL: pass --deployment or set it in the config file")
	}

	offer := make([]transport.CompressionTag, 0, len(config.Compression))
	for _, name := range config.Compression {
		tag, err := transport.ParseCompressionTag(name)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		offer = append(offer, tag)
	}

	handle, err := bridge.New(bridge.Config{
		Address: config.Deployment,
		Dial:    transport.Dialer(transport.Config{Offer: offer, Logger: logger}),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, *timeout)
	err = handle.Connect(connectCtx)
	cancel()
	if err != nil {
		return err
	}
	defer handle.Close(context.Background())

	if operation == "subscribe" {
		return follow(ctx, handle, path, functionArgs)
	}

	callCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var result value.Value
	switch operation {
	case "query":
		result, err = handle.Query(callCtx, path, functionArgs)
	case "mutation":
		result, err = handle.Mutation(callCtx, path, functionArgs)
	case "action":
		result, err = handle.Action(callCtx, path, functionArgs)
	default:
		return fmt.Errorf("unknown operation %q (want query, mutation, action, or subscribe)", operation)
	}
	if err != nil {
		return err
	}
	return printValue(result)
}

// follow subscribes to a query and prints each update as a JSON line
// until the server completes the subscription or the process is
// interrupted.
func follow(ctx context.Context, handle *bridge.Bridge, path string, args value.Object) error {
	subscription, err := handle.Subscribe(ctx, path, args, printCallback{})
	if err != nil {
		return err
	}
	defer subscription.Cancel()

	select {
	case <-ctx.Done():
		return nil
	case <-subscription.Done():
		return nil
	}
}

// printCallback prints each subscription update as one JSON line.
type printCallback struct{}

func (printCallback) Update(v value.Value) {
	wire, err := value.ToWire(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: render update: %v\n", err)
		return
	}
	line, err := json.Marshal(wire)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: render update: %v\n", err)
		return
	}
	fmt.Println(string(line))
}

// parseArgs converts a JSON object literal into function arguments.
// Plain JSON numbers become float64 values, matching the interchange
// convention; integer arguments use the {"$integer": ...} form.
func parseArgs(text string) (value.Object, error) {
	var tree any
	if err := json.Unmarshal([]byte(text), &tree); err != nil {
		return value.Object{}, fmt.Errorf("arguments: %w", err)
	}
	parsed, err := value.FromWire(tree)
	if err != nil {
		return value.Object{}, fmt.Errorf("arguments: %w", err)
	}
	object, ok := parsed.(value.Object)
	if !ok {
		return value.Object{}, fmt.Errorf("arguments must be a JSON object, got %s", parsed.Kind())
	}
	return object, nil
}

func printValue(v value.Value) error {
	wire, err := value.ToWire(v)
	if err != nil {
		return fmt.Errorf("render result: %w", err)
	}
	rendered, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("render result: %w", err)
	}
	fmt.Println(string(rendered))
	return nil
}

func loadConfig(path string) (fileConfig, error) {
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return fileConfig{}, nil
		}
		path = filepath.Join(home, ".config", "lodestone", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("config %s: %w", path, err)
	}

	var config fileConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fileConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func printUsage(flags *pflag.FlagSet) {
	fmt.Fprint(os.Stderr, `lodestone-call - execute a deployment function

USAGE
    lodestone-call [flags] <operation> <function> [json-args]

    operation is one of: query, mutation, action, subscribe

EXAMPLES
    # One-shot query with arguments
    lodestone-call -d https://calm-otter-112.example.cloud query messages:list '{"channel":"general"}'

    # Mutation with an integer argument
    lodestone-call mutation counter:add '{"delta":{"$integer":"BQAAAAAAAAA="}}'

    # Follow a reactive query until Ctrl-C
    lodestone-call subscribe messages:list '{"channel":"general"}'

FLAGS
`)
	fmt.Fprint(os.Stderr, flags.FlagUsages())
}

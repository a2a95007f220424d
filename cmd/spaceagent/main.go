// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Command spaceagent answers space mission questions with a planning model
// and a catalog of navigation tools.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jllopis/spaceagent/pkg/config"
	agentmcp "github.com/jllopis/spaceagent/pkg/mcp"
	"github.com/jllopis/spaceagent/pkg/orchestrator"
	"github.com/jllopis/spaceagent/pkg/planner"
	"github.com/jllopis/spaceagent/pkg/telemetry"
)

var version = "dev"

type globalFlags struct {
	ConfigArgs []string
	JSON       bool
	Help       bool
}

// env carries the process streams so commands can be driven from tests.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	level  *slog.LevelVar
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, level: new(slog.LevelVar)}
	os.Exit(run(ctx, e, os.Args[1:]))
}

func run(ctx context.Context, e env, argv []string) int {
	global, args, err := parseGlobalFlags(argv)
	if err != nil {
		printError(e.stderr, err, false)
		return 2
	}
	if global.Help || len(args) == 0 {
		printUsage(e.stdout)
		return 0
	}

	switch args[0] {
	case "help":
		printUsage(e.stdout)
		return 0
	case "version":
		fmt.Fprintln(e.stdout, version)
		return 0
	}

	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		printError(e.stderr, newConfigError(err), global.JSON)
		return 1
	}
	e.level.Set(telemetry.ParseLevel(cfg.Log.Level))
	logger := telemetry.NewLeveledLogger(e.stderr, e.level, cfg.Log.Format)
	slog.SetDefault(logger)

	shutdown, err := telemetry.InitWithConfig("spaceagent", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		Output:       e.stderr,
	})
	if err != nil {
		printError(e.stderr, err, global.JSON)
		return 1
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	var cmdErr error
	switch args[0] {
	case "ask":
		cmdErr = runAsk(ctx, e, global, cfg, logger, args[1:])
	case "run":
		cmdErr = runPlan(ctx, e, global, cfg, logger, args[1:])
	case "tools":
		cmdErr = runTools(ctx, e, global, cfg, logger, args[1:])
	case "index":
		cmdErr = runIndex(ctx, e, global, cfg, logger, args[1:])
	case "mcp":
		cmdErr = runMCP(ctx, e, global, cfg, logger, args[1:])
	default:
		cmdErr = newUsageError(fmt.Sprintf("unknown command %q", args[0]))
	}
	if cmdErr != nil {
		printError(e.stderr, cmdErr, global.JSON)
		return 1
	}
	return 0
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	var flags globalFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		name, _, hasValue := strings.Cut(arg, "=")
		switch name {
		case "-h", "--help":
			flags.Help = true
			return flags, nil, nil
		case "--json", "-json":
			flags.JSON = true
		case "--config", "-config", "--profile", "-profile", "--env", "-env", "--set", "-set":
			if hasValue {
				flags.ConfigArgs = append(flags.ConfigArgs, arg)
				continue
			}
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for %s", arg)
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func runAsk(ctx context.Context, e env, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" || query == "-" {
		raw, err := io.ReadAll(e.stdin)
		if err != nil {
			return err
		}
		query = strings.TrimSpace(string(raw))
	}
	if query == "" {
		return newUsageError("ask needs a question")
	}

	provider, err := newProvider(cfg.LLM, logger)
	if err != nil {
		return newConfigError(err)
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.orchestrator(provider).Process(ctx, query)
	if flags.JSON {
		return writeJSON(e.stdout, resp, true)
	}
	printResponse(e.stdout, resp)
	return nil
}

func runPlan(ctx context.Context, e env, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	if len(args) != 1 {
		return newUsageError("run needs exactly one plan file")
	}
	plan, err := planner.LoadPlan(args[0])
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.executor().Execute(ctx, plan)
	if err != nil {
		return err
	}
	if flags.JSON {
		return writeJSON(e.stdout, res, true)
	}
	for _, out := range res.Outputs {
		fmt.Fprintln(e.stdout, out)
	}
	if !res.Completed {
		fmt.Fprintf(e.stdout, "plan failed at step %d\n", *res.FailureStep)
	}
	return nil
}

func runTools(ctx context.Context, e env, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	if len(args) != 0 {
		return newUsageError("tools takes no arguments")
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	catalog := a.dispatcher.Catalog()
	if flags.JSON {
		return writeJSON(e.stdout, catalog.Descriptors(), true)
	}
	fmt.Fprintln(e.stdout, catalog.Describe())
	return nil
}

func runIndex(ctx context.Context, e env, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	source := cfg.Knowledge.Source
	if len(args) > 0 {
		source = args[0]
	}
	a := &app{cfg: cfg, logger: logger}
	defer a.Close()
	kb, err := a.openKnowledge(ctx)
	if err != nil {
		return err
	}
	stats, err := kb.IndexMarkdown(ctx, source)
	if err != nil {
		return err
	}
	if flags.JSON {
		return writeJSON(e.stdout, stats, false)
	}
	fmt.Fprintf(e.stdout, "indexed %d of %d chunks from %s (%d failed)\n", stats.Added, stats.Chunks, stats.Source, stats.Failed)
	return nil
}

func runMCP(ctx context.Context, e env, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	if len(args) != 0 {
		return newUsageError("mcp takes no arguments")
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := config.WatchCLI(flags.ConfigArgs, config.WithWatchLogger(logger))
	if err != nil {
		return newConfigError(err)
	}
	w.OnChange(func(c *config.Config) { e.level.Set(telemetry.ParseLevel(c.Log.Level)) })
	go w.Run(ctx)

	srv, err := agentmcp.NewServer(cfg.MCP.Name, cfg.MCP.Version, a.dispatcher, agentmcp.WithServerLogger(logger))
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "mcp.serve", "tools", a.dispatcher.Catalog().Len())
	if err := srv.ServeStdio(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printResponse(w io.Writer, resp *orchestrator.Response) {
	fmt.Fprintln(w, resp.Content.Message)
	if resp.Content.Reason != "" {
		fmt.Fprintf(w, "\nreason: %s\n", resp.Content.Reason)
	}
	if len(resp.Process.ToolsUsed) > 0 {
		fmt.Fprintf(w, "tools:  %s\n", strings.Join(resp.Process.ToolsUsed, ", "))
	}
	for _, line := range resp.Process.ExecutionSummary {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `spaceagent - space mission question answering agent

Usage:
  spaceagent [global flags] <command> [args]

Commands:
  ask <question>     answer a question, planning and running tools as needed
  run <plan-file>    execute a JSON or YAML plan and print its outputs
  tools              describe the tool catalog
  index [file]       build the knowledge base from a markdown file
  mcp                serve the tool catalog over MCP stdio
  version            print the version

Global flags:
  --config <path>    configuration file (repeatable)
  --profile <name>   load the <config>.<name>.yaml sibling as well (alias --env)
  --set key=value    override a configuration key (repeatable)
  --json             print machine readable output
`)
}

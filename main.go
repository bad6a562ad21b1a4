// perplexity-bridge-pro - Terminal client for a Perplexity chat bridge.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/cli"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/config"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	setupLogging()

	args := cli.NewArgParser(os.Args[1:])

	if args.BoolFlag("help") || args.BoolFlag("h") {
		printHelp()
		return
	}

	switch args.Subcommand() {
	case "", "tui":
		runWithApp(args, runTUI)
	case "chat":
		runWithApp(args, cli.HandleChatCommand)
	case "ask":
		runWithApp(args, cli.HandleAskCommand)
	case "models":
		runWithApp(args, cli.HandleModelsCommand)
	case "status":
		runWithApp(args, cli.HandleStatusCommand)
	case "history":
		runWithApp(args, cli.HandleHistoryCommand)
	case "stats":
		runWithApp(args, cli.HandleStatsCommand)
	case "export":
		runWithApp(args, cli.HandleExportCommand)
	case "config":
		runWithApp(args, cli.HandleConfigCommand)
	case "version":
		printVersion()
	case "help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args.Subcommand())
		printHelp()
		os.Exit(1)
	}
}

// runWithApp opens the shared state, runs the handler, and closes the
// store on the way out.
func runWithApp(args *cli.ArgParser, handler func(*cli.App, *cli.ArgParser) error) {
	app, err := cli.NewApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := handler(app, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		app.Close()
		os.Exit(1)
	}
}

// runTUI starts the full-screen interface, with the config file watcher
// picking up edits while it runs.
func runTUI(app *cli.App, args *cli.ArgParser) error {
	if model := args.Flag("model"); model != "" {
		app.Ctrl.SetModel(model)
	}
	if system := args.Flag("system"); system != "" {
		app.Ctrl.SetSystemPrompt(system)
	}

	watcher, err := config.NewWatcher(app.Config)
	if err != nil {
		log.Printf("config watcher unavailable: %v", err)
	} else {
		if err := watcher.Watch(); err != nil {
			log.Printf("config watcher unavailable: %v", err)
		}
		defer watcher.Close()
	}

	return chat.Run(app.Config, app.Ctrl)
}

// setupLogging routes the standard logger to a file under the data
// directory so TUI rendering stays clean. Falls back to discarding logs
// when the directory is unavailable.
func setupLogging() {
	dataDir, err := config.DataDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	if err := config.EnsureDataDir(); err != nil {
		log.SetOutput(io.Discard)
		return
	}

	logPath := filepath.Join(dataDir, "bridge.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

func printVersion() {
	fmt.Printf("perplexity-bridge-pro %s\n", Version)
	fmt.Printf("  commit: %s\n", GitCommit)
	fmt.Printf("  built:  %s\n", BuildDate)
}

func printHelp() {
	fmt.Print(`perplexity-bridge-pro - terminal client for a Perplexity chat bridge

Usage:
  perplexity-bridge-pro [command] [flags]

Commands:
  (none), tui     Full-screen chat interface
  chat            Interactive chat REPL
  ask QUESTION    Send a single prompt and print the response
  models          List models the bridge exposes
  status          Connection and configuration status
  history         Manage archived conversations (list|show|delete|clear)
  stats           Usage statistics (add 'reset' to clear)
  export [ID]     Print archived conversations as plain text
  config          Show or change settings (show|set|reset)
  version         Print version information
  help            Show this help

Flags:
  --model NAME    Override the model for chat, ask, and tui
  --system TEXT   Set the system prompt for chat, ask, and tui
  --json          JSON output where supported
  -q, --quiet     Minimal output

Settings keys (config set KEY VALUE):
  url, key, streaming, temperature, maxTokens, frequencyPenalty,
  markdown, autoSave, timestamps, sound, theme

Environment:
  BRIDGE_URL      Override the backend URL
  BRIDGE_API_KEY  Override the API key
  NO_COLOR        Disable colored output
`)
}

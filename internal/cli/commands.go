// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - One-shot command handlers.
//
// Commands:
//   ask       Send a single prompt and print the response
//   models    List models the bridge exposes
//   status    Connection and configuration status
//   history   Archived conversation management
//   stats     Usage statistics display
//   export    Export archived conversations as text
//   config    Show or change settings

package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/config"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/export"
)

// =============================================================================
// ASK
// =============================================================================

// HandleAskCommand sends one prompt and prints the response.
func HandleAskCommand(app *App, args *ArgParser) error {
	prompt := JoinPositionalArgs(args, 1)
	if prompt == "" {
		return fmt.Errorf("usage: ask \"your question\"")
	}

	if model := args.Flag("model"); model != "" {
		app.Ctrl.SetModel(model)
	}
	if system := args.Flag("system"); system != "" {
		app.Ctrl.SetSystemPrompt(system)
	}

	done := make(chan struct{}, 1)
	app.Ctrl.WithOnComplete(func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})

	if args.BoolFlag("json") {
		// JSON output needs the full response in one shot, but the saved
		// transport setting stays untouched
		if err := app.Ctrl.SendBlocking(context.Background(), prompt); err != nil {
			return err
		}
		return outputJSON(map[string]string{
			"prompt":   prompt,
			"response": app.Ctrl.Conversation().LastContent(),
		})
	}

	return runExchange(app, done, prompt)
}

// =============================================================================
// MODELS
// =============================================================================

// HandleModelsCommand lists the models the bridge exposes.
func HandleModelsCommand(app *App, args *ArgParser) error {
	if args.BoolFlag("json") {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		models, err := app.Ctrl.ListModels(ctx)
		if err != nil {
			return err
		}
		return outputJSON(models)
	}
	return printModels(app)
}

// =============================================================================
// STATUS
// =============================================================================

// HandleStatusCommand shows connection and configuration status.
func HandleStatusCommand(app *App, args *ArgParser) error {
	settings := app.Config.Settings()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	healthErr := app.Ctrl.Health(ctx)

	if args.BoolFlag("json") {
		return outputJSON(map[string]interface{}{
			"url":        settings.URL,
			"configured": settings.IsConfigured(),
			"reachable":  healthErr == nil,
			"streaming":  settings.Streaming,
			"model":      app.Ctrl.Model(),
		})
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Bridge Status"))
	fmt.Println(RenderSeparator(20))
	fmt.Println()

	fmt.Printf("  %s %s\n", LabelStyle.Render("Backend:"), ValueStyle.Render(settings.URL))
	fmt.Printf("  %s %s\n", LabelStyle.Render("API key:"), maskKey(settings.APIKey))

	if !settings.IsConfigured() {
		fmt.Printf("  %s %s\n", LabelStyle.Render("Configured:"), RenderStatus("warn"))
	} else {
		fmt.Printf("  %s %s\n", LabelStyle.Render("Configured:"), RenderStatus("ok"))
	}

	if healthErr == nil {
		fmt.Printf("  %s %s\n", LabelStyle.Render("Backend health:"), RenderStatus("connected"))
	} else {
		fmt.Printf("  %s %s %s\n",
			LabelStyle.Render("Backend health:"),
			RenderStatus("unreachable"),
			DimStyle.Render(healthErr.Error()))
	}

	transport := "REST"
	if settings.Streaming {
		transport = "WebSocket streaming"
	}
	fmt.Printf("  %s %s\n", LabelStyle.Render("Transport:"), ValueStyle.Render(transport))
	fmt.Printf("  %s %s\n", LabelStyle.Render("Model:"), ValueStyle.Render(app.Ctrl.Model()))
	fmt.Printf("  %s %d archived\n", LabelStyle.Render("Conversations:"), app.Archive.Len())

	if dataDir, err := config.DataDir(); err == nil {
		fmt.Printf("  %s %s\n", LabelStyle.Render("Data directory:"), DimStyle.Render(dataDir))
	}
	fmt.Println()
	return nil
}

// maskKey hides all but the last four characters of a credential.
func maskKey(key string) string {
	if key == "" {
		return DimStyle.Render("(not set)")
	}
	if len(key) <= 4 {
		return DimStyle.Render("****")
	}
	return DimStyle.Render("****" + key[len(key)-4:])
}

// =============================================================================
// HISTORY
// =============================================================================

// HandleHistoryCommand manages archived conversations.
//
// Subcommands:
//
//	history            List archived conversations
//	history show ID    Print one conversation
//	history delete ID  Delete one conversation
//	history clear      Delete all conversations
func HandleHistoryCommand(app *App, args *ArgParser) error {
	switch args.Positional(1) {
	case "", "list":
		if args.BoolFlag("json") {
			return outputJSON(app.Archive.List())
		}
		printArchive(app)
		return nil

	case "show":
		id := args.Positional(2)
		if id == "" {
			return fmt.Errorf("usage: history show ID")
		}
		entry, err := app.Archive.Get(id)
		if err != nil {
			return err
		}
		if args.BoolFlag("json") {
			return outputJSON(entry)
		}
		fmt.Println(entry.ExportText())
		return nil

	case "delete":
		id := args.Positional(2)
		if id == "" {
			return fmt.Errorf("usage: history delete ID")
		}
		if err := app.Archive.Delete(id); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("[OK]") + " Deleted")
		return nil

	case "clear":
		if err := app.Archive.Clear(); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("[OK]") + " History cleared")
		return nil

	default:
		return fmt.Errorf("unknown history subcommand: %s", args.Positional(1))
	}
}

// =============================================================================
// STATS
// =============================================================================

// HandleStatsCommand shows or resets usage statistics.
func HandleStatsCommand(app *App, args *ArgParser) error {
	if args.Positional(1) == "reset" {
		if err := app.Tracker.Reset(); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("[OK]") + " Statistics reset")
		return nil
	}

	if args.BoolFlag("json") {
		return outputJSON(app.Tracker.Snapshot())
	}
	printStats(app)
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// HandleExportCommand renders archived conversations. With --format or
// --out the entry is written to a file through the export package;
// otherwise the plain-text transcript goes to stdout.
func HandleExportCommand(app *App, args *ArgParser) error {
	format := args.Flag("format")
	outDir := args.Flag("out")
	id := args.Positional(1)

	if format != "" || outDir != "" {
		if id == "" {
			return fmt.Errorf("usage: export ID --format text|markdown|json [--out DIR]")
		}
		entry, err := app.Archive.Get(id)
		if err != nil {
			return err
		}

		opts := export.DefaultOptions()
		if outDir != "" {
			opts.OutputDir = outDir
		}
		exporter, err := export.ForFormat(format, opts)
		if err != nil {
			return err
		}

		path, err := export.WriteFile(entry, exporter, opts)
		if err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("[OK]") + " Exported to " + path)
		return nil
	}

	if id != "" {
		entry, err := app.Archive.Get(id)
		if err != nil {
			return err
		}
		fmt.Println(entry.ExportText())
		return nil
	}

	if app.Archive.Len() == 0 {
		fmt.Println(DimStyle.Render("[No archived conversations]"))
		return nil
	}
	fmt.Println(app.Archive.ExportAll())
	return nil
}

// =============================================================================
// CONFIG
// =============================================================================

// HandleConfigCommand shows or changes settings.
//
// Subcommands:
//
//	config             Show current settings
//	config set K V     Change a setting
//	config reset       Restore defaults
func HandleConfigCommand(app *App, args *ArgParser) error {
	switch args.Positional(1) {
	case "", "show":
		settings := app.Config.Settings()
		if args.BoolFlag("json") {
			return outputJSON(settings)
		}
		printSettings(settings)
		return nil

	case "set":
		key := args.Positional(2)
		value := args.Positional(3)
		if key == "" || value == "" {
			return fmt.Errorf("usage: config set KEY VALUE")
		}
		if err := applySetting(app, key, value); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("[OK]") + " Setting saved")
		return nil

	case "reset":
		if err := app.Config.Update(func(s *config.Settings) {
			*s = config.Default()
		}); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("[OK]") + " Settings restored to defaults")
		return nil

	default:
		return fmt.Errorf("unknown config subcommand: %s", args.Positional(1))
	}
}

// printSettings prints the current settings with the key masked.
func printSettings(s config.Settings) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Settings"))
	fmt.Println(RenderSeparator(20))
	fmt.Println()

	rows := []struct {
		key   string
		value string
	}{
		{"url", s.URL},
		{"key", "****"},
		{"streaming", strconv.FormatBool(s.Streaming)},
		{"temperature", strconv.FormatFloat(s.Temperature, 'f', -1, 64)},
		{"maxTokens", strconv.Itoa(s.MaxTokens)},
		{"frequencyPenalty", strconv.FormatFloat(s.FrequencyPenalty, 'f', -1, 64)},
		{"markdown", strconv.FormatBool(s.MarkdownRender)},
		{"autoSave", strconv.FormatBool(s.AutoSave)},
		{"timestamps", strconv.FormatBool(s.ShowTimestamps)},
		{"sound", strconv.FormatBool(s.SoundEnabled)},
		{"theme", s.Theme},
	}
	for _, r := range rows {
		fmt.Printf("  %s %s\n", LabelStyle.Render(r.key+":"), ValueStyle.Render(r.value))
	}
	fmt.Println()
}

var settingKeys = map[string]bool{
	"url": true, "key": true, "streaming": true, "temperature": true,
	"maxTokens": true, "frequencyPenalty": true, "markdown": true,
	"autoSave": true, "timestamps": true, "sound": true, "theme": true,
}

// applySetting changes one setting by name. Validation happens inside
// Update; a rejected value is never persisted.
func applySetting(app *App, key, value string) error {
	if !settingKeys[key] {
		return fmt.Errorf("unknown setting: %s", key)
	}
	return app.Config.Update(func(s *config.Settings) {
		switch key {
		case "url":
			s.URL = value
		case "key":
			s.APIKey = value
		case "streaming":
			if v, err := ParseBoolString(value); err == nil {
				s.Streaming = v
			}
		case "temperature":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				s.Temperature = v
			}
		case "maxTokens":
			if v, err := strconv.Atoi(value); err == nil {
				s.MaxTokens = v
			}
		case "frequencyPenalty":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				s.FrequencyPenalty = v
			}
		case "markdown":
			if v, err := ParseBoolString(value); err == nil {
				s.MarkdownRender = v
			}
		case "autoSave":
			if v, err := ParseBoolString(value); err == nil {
				s.AutoSave = v
			}
		case "timestamps":
			if v, err := ParseBoolString(value); err == nil {
				s.ShowTimestamps = v
			}
		case "sound":
			if v, err := ParseBoolString(value); err == nil {
				s.SoundEnabled = v
			}
		case "theme":
			s.Theme = value
		}
	})
}

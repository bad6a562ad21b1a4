// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler.
//
// Handles the "chat" command: an interactive REPL conversing with the
// bridge backend over REST or streaming transport.
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /clear, /c          Clear the conversation
//   /new                Archive the conversation and start fresh
//   /save               Archive the conversation now
//   /history            List archived conversations
//   /load ID            Restore an archived conversation
//   /delete ID          Delete an archived conversation
//   /stats, /s          Show usage statistics
//   /models             List available models
//   /model [name]       Show or switch model
//   /system [prompt]    Show or set the system prompt
//   /stream [on|off]    Show or toggle streaming transport
//   /markdown [on|off]  Show or toggle markdown rendering
//   /export [ID]        Print a conversation as plain text
//   /quit, /q           Exit chat
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/config"
	"github.com/aztr0nutzs/perplexity-bridge-pro/internal/session"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with persistent input history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dataDir, err := config.DataDir()
	if err != nil {
		dataDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dataDir, "input_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureDataDir(); err != nil {
		return
	}

	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand runs the interactive chat REPL.
func HandleChatCommand(app *App, args *ArgParser) error {
	if model := args.Flag("model"); model != "" {
		app.Ctrl.SetModel(model)
	}
	if system := args.Flag("system"); system != "" {
		app.Ctrl.SetSystemPrompt(system)
	}
	quiet := args.BoolFlag("quiet") || args.BoolFlag("q")

	input := NewChatCLI()
	defer input.Close()

	// One value per terminal exchange state; drained before each send.
	done := make(chan struct{}, 1)
	app.Ctrl.WithOnComplete(func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	app.Ctrl.WithNotify(func(text string) {
		fmt.Fprintf(os.Stderr, "%s %s\n", WarningStyle.Render("[!]"), text)
	})

	if !quiet {
		printWelcome(app)
	}

	start := time.Now()
	exchanges := 0

	for {
		line, err := input.ReadInput(PromptStyle.Render("bridge> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				continue
			}
			// EOF (Ctrl+D) exits gracefully
			fmt.Println()
			printExitSummary(app, start, exchanges)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			keepGoing, err := handleSlashCommand(app, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				printExitSummary(app, start, exchanges)
				return nil
			}
			continue
		}

		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			printExitSummary(app, start, exchanges)
			return nil
		}

		if err := runExchange(app, done, line); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
		exchanges++
	}
}

// runExchange sends one prompt and prints the assistant response. With
// markdown rendering active the response prints once at the end;
// otherwise streamed tokens print as they arrive.
func runExchange(app *App, done chan struct{}, prompt string) error {
	settings := app.Config.Settings()
	useMarkdown := settings.MarkdownRender && IsStdoutTTY()

	// Drop any stale completion signal from a failed prior exchange
	select {
	case <-done:
	default:
	}

	if settings.Streaming && !useMarkdown {
		app.Ctrl.WithOnDelta(func(delta string) {
			fmt.Print(delta)
		})
	} else {
		app.Ctrl.WithOnDelta(nil)
	}

	fmt.Println()
	before := app.Ctrl.Conversation().Len()

	if err := app.Ctrl.Send(context.Background(), prompt); err != nil {
		// A paired error response was appended unless the send was
		// rejected outright
		if app.Ctrl.Conversation().Len() > before {
			printLastResponse(app, false)
		}
		return err
	}

	if settings.Streaming {
		<-done
		if useMarkdown {
			printLastResponse(app, true)
		} else {
			fmt.Println()
		}
	} else {
		printLastResponse(app, useMarkdown)
	}

	if settings.SoundEnabled {
		fmt.Print("\a")
	}
	fmt.Println()
	return nil
}

// printLastResponse prints the most recent assistant message.
func printLastResponse(app *App, markdown bool) {
	content := app.Ctrl.Conversation().LastContent()
	displayResponse(content, markdown)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes one slash command. Returns keepGoing=false
// to exit the REPL.
func handleSlashCommand(app *App, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		printChatHelp()
		return true, nil

	case "/clear", "/c":
		app.Ctrl.Clear()
		fmt.Println(CommandStyle.Render("[Conversation cleared]"))
		return true, nil

	case "/new":
		if err := app.Ctrl.NewConversation(); err != nil {
			return true, err
		}
		fmt.Println(CommandStyle.Render("[Started new conversation]"))
		return true, nil

	case "/save":
		entry, saved, err := app.Ctrl.SaveConversation()
		if err != nil {
			return true, err
		}
		if !saved {
			fmt.Println(DimStyle.Render("[Nothing to save]"))
			return true, nil
		}
		fmt.Printf("%s %s\n", CommandStyle.Render("[Saved]"), DimStyle.Render(entry.ID))
		return true, nil

	case "/history":
		printArchive(app)
		return true, nil

	case "/load":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /load ID")
		}
		if err := app.Ctrl.LoadConversation(args[0]); err != nil {
			return true, err
		}
		fmt.Println(CommandStyle.Render("[Conversation restored]"))
		printConversation(app)
		return true, nil

	case "/delete":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /delete ID")
		}
		if err := app.Archive.Delete(args[0]); err != nil {
			return true, err
		}
		fmt.Println(CommandStyle.Render("[Deleted]"))
		return true, nil

	case "/stats", "/s":
		printStats(app)
		return true, nil

	case "/models":
		return true, printModels(app)

	case "/model", "/m":
		if len(args) == 0 {
			fmt.Printf("%s %s\n",
				DimStyle.Render("Current model:"),
				CommandStyle.Render(app.Ctrl.Model()))
			return true, nil
		}
		app.Ctrl.SetModel(args[0])
		fmt.Printf("%s Switched to model: %s\n", CommandStyle.Render("[OK]"), args[0])
		return true, nil

	case "/system":
		if len(args) == 0 {
			current := app.Ctrl.SystemPrompt()
			if current == "" {
				fmt.Println(DimStyle.Render("No system prompt set"))
			} else {
				fmt.Printf("%s %s\n", DimStyle.Render("System prompt:"), current)
			}
			return true, nil
		}
		app.Ctrl.SetSystemPrompt(strings.Join(args, " "))
		fmt.Println(CommandStyle.Render("[System prompt set]"))
		return true, nil

	case "/stream":
		return true, toggleSetting(app, "Streaming", args, func(s *config.Settings, v bool) {
			s.Streaming = v
		}, func(s config.Settings) bool { return s.Streaming })

	case "/markdown":
		return true, toggleSetting(app, "Markdown rendering", args, func(s *config.Settings, v bool) {
			s.MarkdownRender = v
		}, func(s config.Settings) bool { return s.MarkdownRender })

	case "/export":
		if len(args) == 0 {
			entry, saved, err := app.Ctrl.SaveConversation()
			if err != nil {
				return true, err
			}
			if !saved {
				fmt.Println(DimStyle.Render("[Nothing to export]"))
				return true, nil
			}
			fmt.Println(entry.ExportText())
			return true, nil
		}
		entry, err := app.Archive.Get(args[0])
		if err != nil {
			return true, err
		}
		fmt.Println(entry.ExportText())
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// toggleSetting shows or changes a boolean setting.
func toggleSetting(app *App, label string, args []string, set func(*config.Settings, bool), get func(config.Settings) bool) error {
	if len(args) == 0 {
		fmt.Printf("%s %s\n", DimStyle.Render(label+":"), onOff(get(app.Config.Settings())))
		return nil
	}

	value, err := ParseBoolString(args[0])
	if err != nil {
		return err
	}
	if err := app.Config.Update(func(s *config.Settings) {
		set(s, value)
	}); err != nil {
		return err
	}

	fmt.Printf("%s %s %s\n", CommandStyle.Render("[OK]"), label, onOff(value))
	return nil
}

func onOff(v bool) string {
	if v {
		return CommandStyle.Render("on")
	}
	return DimStyle.Render("off")
}

// =============================================================================
// DISPLAY
// =============================================================================

// printWelcome prints the welcome banner.
func printWelcome(app *App) {
	settings := app.Config.Settings()

	fmt.Println()
	fmt.Println(TitleStyle.Render("perplexity-bridge chat"))
	fmt.Println(RenderSeparator(30))
	fmt.Printf("%s %s\n",
		DimStyle.Render("Backend:"),
		ValueStyle.Render(settings.URL))
	fmt.Printf("%s %s\n",
		DimStyle.Render("Model:"),
		CommandStyle.Render(app.Ctrl.Model()))

	transport := "REST"
	if settings.Streaming {
		transport = "WebSocket streaming"
	}
	fmt.Printf("%s %s\n",
		DimStyle.Render("Transport:"),
		CommandStyle.Render(transport))

	if !settings.IsConfigured() {
		fmt.Println(WarningStyle.Render("Connection not configured; set url and key first"))
	}

	fmt.Println()
	fmt.Println(DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printChatHelp prints the REPL command list.
func printChatHelp() {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Available Commands"))
	fmt.Println(RenderSeparator(20))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Clear the conversation"},
		{"/new", "Archive and start a new conversation"},
		{"/save", "Archive the conversation now"},
		{"/history", "List archived conversations"},
		{"/load ID", "Restore an archived conversation"},
		{"/delete ID", "Delete an archived conversation"},
		{"/stats, /s", "Show usage statistics"},
		{"/models", "List available models"},
		{"/model [name]", "Show or switch model"},
		{"/system [text]", "Show or set the system prompt"},
		{"/stream [on|off]", "Show or toggle streaming transport"},
		{"/markdown [on|off]", "Show or toggle markdown rendering"},
		{"/export [ID]", "Print a conversation as plain text"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			CommandStyle.Render(fmt.Sprintf("%-19s", c.cmd)),
			DimStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(DimStyle.Render("Tip: Ctrl+D exits"))
	fmt.Println()
}

// printConversation prints the active conversation.
func printConversation(app *App) {
	settings := app.Config.Settings()
	for _, msg := range app.Ctrl.Conversation().Messages() {
		fmt.Println(renderTranscriptLine(msg, settings.ShowTimestamps))
	}
	fmt.Println()
}

// renderTranscriptLine renders one message for transcript display.
func renderTranscriptLine(msg session.Message, showTimestamps bool) string {
	var role string
	switch msg.Role {
	case session.RoleUser:
		role = PromptStyle.Render("You")
	case session.RoleAssistant:
		role = CommandStyle.Render("Assistant")
	case session.RoleSystem:
		role = WarningStyle.Render("System")
	default:
		role = string(msg.Role)
	}

	if showTimestamps {
		ts := DimStyle.Render(msg.Timestamp.Format("15:04:05"))
		return fmt.Sprintf("%s %s: %s", ts, role, msg.Content)
	}
	return fmt.Sprintf("%s: %s", role, msg.Content)
}

// printArchive lists archived conversations newest first.
func printArchive(app *App) {
	entries := app.Archive.List()
	if len(entries) == 0 {
		fmt.Println(DimStyle.Render("[No archived conversations]"))
		return
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Archived Conversations"))
	fmt.Println(RenderSeparator(25))
	fmt.Println()

	width := GetTerminalWidth() - 40
	if width < 20 {
		width = 20
	}
	for _, e := range entries {
		fmt.Printf("  %s  %s  %s\n",
			CommandStyle.Render(e.ID),
			DimStyle.Render(e.CreatedAt.Format("2006-01-02 15:04")),
			e.Preview(width))
	}
	fmt.Println()
}

// printStats prints aggregated usage statistics.
func printStats(app *App) {
	snap := app.Tracker.Snapshot()

	fmt.Println()
	fmt.Println(TitleStyle.Render("Usage Statistics"))
	fmt.Println(RenderSeparator(20))
	fmt.Println()

	fmt.Printf("  %s %s\n", LabelStyle.Render("Requests:"), formatNumber(snap.TotalRequests))
	fmt.Printf("  %s %s\n", LabelStyle.Render("Messages:"), formatNumber(snap.TotalMessages))
	fmt.Printf("  %s %s\n", LabelStyle.Render("Tokens (est):"), formatNumber(snap.TotalTokens))
	fmt.Printf("  %s %.1fs\n", LabelStyle.Render("Total time:"), snap.TotalTime)

	if len(snap.Activities) > 0 {
		fmt.Println()
		fmt.Println(DimStyle.Render("Recent activity:"))
		limit := len(snap.Activities)
		if limit > 10 {
			limit = 10
		}
		for _, a := range snap.Activities[:limit] {
			fmt.Printf("  %s  %.2fs  %d tokens\n",
				DimStyle.Render(a.Time.Format("15:04:05")),
				a.ResponseTime,
				a.Tokens)
		}
	}
	fmt.Println()
}

// printModels lists the models the backend exposes.
func printModels(app *App) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := app.Ctrl.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Available Models"))
	fmt.Println(RenderSeparator(20))
	fmt.Println()

	current := app.Ctrl.Model()
	for _, m := range models {
		marker := "  "
		if m.ID == current {
			marker = CommandStyle.Render("* ")
		}
		fmt.Printf("%s%s  %s\n", marker, ValueStyle.Render(m.ID), DimStyle.Render(m.Description))
	}
	fmt.Println()
	return nil
}

// printExitSummary prints the session summary on exit.
func printExitSummary(app *App, start time.Time, exchanges int) {
	if exchanges == 0 {
		fmt.Println(DimStyle.Render("Goodbye!"))
		return
	}

	elapsed := time.Since(start).Round(time.Second)

	fmt.Println()
	fmt.Println(TitleStyle.Render("Session Summary"))
	fmt.Println(RenderSeparator(15))
	fmt.Printf("  %s %d\n", DimStyle.Render("Exchanges:"), exchanges)
	fmt.Printf("  %s %s\n", DimStyle.Render("Duration:"), elapsed.String())
	fmt.Println()
	fmt.Println(DimStyle.Render("Goodbye!"))
}

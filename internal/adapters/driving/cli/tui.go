package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bruncanepa/murmur-brain/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [chat-id]",
	Short: "Open the interactive chat interface",
	Long: `Opens a terminal chat session. With a chat ID, resumes that
conversation; without one, starts a new chat over all ingested documents.

Controls:
  Enter  - Send message
  Ctrl+C - Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ctx := context.Background()

	chatID := ""
	if len(args) > 0 {
		chatID = args[0]
	} else {
		if documentService == nil {
			return errors.New("document service not configured")
		}
		docs, err := documentService.ListDocuments(ctx)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if len(docs) == 0 {
			return errors.New("no documents ingested yet; run 'brain document add' first")
		}
		docIDs := make([]string, 0, len(docs))
		for i := range docs {
			docIDs = append(docIDs, docs[i].ID)
		}
		chat, err := chatService.CreateChat(ctx, "", docIDs)
		if err != nil {
			return fmt.Errorf("failed to create chat: %w", err)
		}
		chatID = chat.ID
	}

	model, err := tui.New(tui.Ports{Chat: chatService, Document: documentService}, chatID)
	if err != nil {
		return fmt.Errorf("failed to open chat: %w", err)
	}
	model = model.WithContext(ctx)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

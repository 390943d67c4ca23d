package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
)

var (
	askModel string
	askDocs  []string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your documents",
	Long: `Without a subcommand, opens the interactive chat interface.
Subcommands create, list, inspect, or delete conversation threads.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

var chatNewCmd = &cobra.Command{
	Use:   "new [doc-id...]",
	Short: "Create a chat scoped to the given documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChatNew,
}

var chatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chats",
	Args:  cobra.NoArgs,
	RunE:  runChatList,
}

var chatShowCmd = &cobra.Command{
	Use:   "show [chat-id]",
	Short: "Print a chat transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatShow,
}

var chatDeleteCmd = &cobra.Command{
	Use:   "delete [chat-id]",
	Short: "Delete a chat and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatDelete,
}

var chatSendCmd = &cobra.Command{
	Use:   "send [chat-id] [message]",
	Short: "Send a message and print the grounded reply",
	Args:  cobra.ExactArgs(2),
	RunE:  runChatSend,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question against your documents",
	Long: `Retrieves relevant chunks, generates a grounded answer with
citations, and discards the conversation afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "override the chat model")
	askCmd.Flags().StringSliceVar(&askDocs, "docs", nil, "restrict to the given document IDs")
	chatSendCmd.Flags().StringVarP(&askModel, "model", "m", "", "override the chat model")

	chatCmd.AddCommand(chatNewCmd)
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatShowCmd)
	chatCmd.AddCommand(chatDeleteCmd)
	chatCmd.AddCommand(chatSendCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
}

func runChatNew(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	ctx := context.Background()
	chat, err := chatService.CreateChat(ctx, "", args)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	cmd.Printf("Created chat %s with %d documents\n", chat.ID, len(args))
	return nil
}

func runChatList(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	ctx := context.Background()
	chats, err := chatService.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}

	if len(chats) == 0 {
		cmd.Println("No chats yet.")
		return nil
	}

	cmd.Println("Chats:")
	cmd.Println()
	for i := range chats {
		title := chats[i].Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("  %s  %s\n", chats[i].ID, title)
		cmd.Printf("      Updated: %s\n", chats[i].UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runChatShow(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	ctx := context.Background()
	chat, messages, err := chatService.GetChat(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get chat: %w", err)
	}

	title := chat.Title
	if title == "" {
		title = "(untitled)"
	}
	cmd.Printf("Chat: %s\n\n", title)

	for i := range messages {
		cmd.Printf("[%s] %s\n", messages[i].Role, messages[i].Content)
		printSources(cmd, messages[i].Sources)
		cmd.Println()
	}
	return nil
}

func runChatDelete(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	ctx := context.Background()
	if err := chatService.DeleteChat(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	cmd.Printf("Deleted chat %s\n", args[0])
	return nil
}

func runChatSend(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	ctx := context.Background()
	turn, err := chatService.GenerateResponse(ctx, args[0], args[1], askModel)
	if err != nil {
		return describeChatError(err)
	}

	cmd.Println(turn.Response)
	printSources(cmd, turn.Sources)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := context.Background()

	docIDs := askDocs
	if len(docIDs) == 0 {
		docs, err := documentService.ListDocuments(ctx)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if len(docs) == 0 {
			return errors.New("no documents ingested yet")
		}
		for i := range docs {
			docIDs = append(docIDs, docs[i].ID)
		}
	}

	chat, err := chatService.CreateChat(ctx, "", docIDs)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	defer func() {
		_ = chatService.DeleteChat(ctx, chat.ID)
	}()

	turn, err := chatService.GenerateResponse(ctx, chat.ID, args[0], askModel)
	if err != nil {
		return describeChatError(err)
	}

	cmd.Println(turn.Response)
	printSources(cmd, turn.Sources)
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.ChatSource) {
	if len(sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i := range sources {
		cmd.Printf("  [%d] %s (%.0f%%)\n", i+1, sources[i].FileName, sources[i].Similarity*100)
	}
}

func describeChatError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNoRelevantContext):
		return errors.New("no relevant content found in the linked documents")
	case errors.Is(err, domain.ErrLLMUnavailable):
		return errors.New("language model unavailable; is Ollama running?")
	default:
		return fmt.Errorf("failed to generate response: %w", err)
	}
}

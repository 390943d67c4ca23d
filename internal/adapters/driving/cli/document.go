package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"documents"},
	Short:   "Manage ingested documents",
	Long:    `Ingest, list, or delete documents.`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest a file",
	Long:  `Shorthand for "document add".`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentAdd,
}

var documentAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Ingest a file",
	Long:  `Reads a .txt or .md file, splits it into chunks, embeds them, and indexes them.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentAdd,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document",
	Long:  `Removes a document, its chunks, and its index vectors.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from stored chunks",
	Args:  cobra.NoArgs,
	RunE:  runReindex,
}

func init() {
	documentCmd.AddCommand(documentAddCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reindexCmd)
}

func runDocumentAdd(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := context.Background()
	doc, err := documentService.IngestFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to ingest: %w", err)
	}

	cmd.Printf("Ingested %s (%s, %d bytes)\n", doc.FileName, doc.ID, doc.SizeBytes)
	return nil
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := context.Background()
	docs, err := documentService.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested yet.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    File:     %s\n", docs[i].FileName)
		cmd.Printf("    Size:     %d bytes\n", docs[i].SizeBytes)
		cmd.Printf("    Ingested: %s\n", docs[i].CreatedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := context.Background()
	if err := documentService.DeleteDocument(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted document %s\n", args[0])
	return nil
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := context.Background()
	if err := documentService.Reindex(ctx); err != nil {
		return fmt.Errorf("failed to reindex: %w", err)
	}

	cmd.Println("Index rebuilt.")
	return nil
}

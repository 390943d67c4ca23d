package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bruncanepa/murmur-brain/internal/core/ports/driven"
)

var modelsCategory string

var modelsCmd = &cobra.Command{
	Use:   "models [query]",
	Short: "List models available on the local Ollama server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModels,
}

func init() {
	modelsCmd.Flags().StringVarP(&modelsCategory, "category", "c", "",
		"filter by category (chat or embedding)")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	if modelCatalog == nil {
		return errors.New("model catalog not configured")
	}

	query := ""
	if len(args) > 0 {
		query = args[0]
	}
	if modelsCategory != "" &&
		modelsCategory != driven.ModelCategoryChat &&
		modelsCategory != driven.ModelCategoryEmbedding {
		return fmt.Errorf("unknown category %q", modelsCategory)
	}

	ctx := context.Background()
	models, err := modelCatalog.Search(ctx, query, modelsCategory)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if len(models) == 0 {
		cmd.Println("No models found. Pull one with: ollama pull llama3.2")
		return nil
	}

	cmd.Println("Models:")
	cmd.Println()
	for i := range models {
		cmd.Printf("  %-40s %-10s", models[i].Name, models[i].Category)
		if models[i].ParameterSize != "" {
			cmd.Printf(" %s", models[i].ParameterSize)
		}
		cmd.Println()
	}
	return nil
}

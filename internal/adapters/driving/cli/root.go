// Package cli implements the command-line interface. Commands are thin
// adapters over the driving ports; wiring happens in cmd/brain.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/bruncanepa/murmur-brain/internal/core/ports/driven"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driving"
	"github.com/bruncanepa/murmur-brain/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	documentService driving.DocumentService
	searchService   driving.SearchService
	chatService     driving.ChatService
	modelCatalog    driven.ModelCatalog
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "brain",
	Short: "Local-first document Q&A",
	Long: `Murmur Brain ingests your documents, indexes them with local
embeddings, and answers questions grounded in their content. Everything
runs on your machine; nothing leaves it.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Services groups the driving ports the commands depend on.
type Services struct {
	Document driving.DocumentService
	Search   driving.SearchService
	Chat     driving.ChatService
	Catalog  driven.ModelCatalog
}

// SetServices injects the application services into the commands.
func SetServices(s Services) {
	documentService = s.Document
	searchService = s.Search
	chatService = s.Chat
	modelCatalog = s.Catalog
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

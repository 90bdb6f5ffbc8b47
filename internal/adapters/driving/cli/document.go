package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"documents", "doc"},
	Short:   "Manage indexed documents",
	Long:    `List, inspect or delete indexed documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "Print the chunks of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document from the index",
	Long: `Removes a document's metadata and vectors.
Use --filename to delete by the name it was ingested under.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocumentDelete,
}

var (
	documentListJSON bool
	deleteFilename   string
)

func init() {
	documentListCmd.Flags().BoolVar(&documentListJSON, "json", false, "output documents as JSON")
	documentDeleteCmd.Flags().StringVarP(&deleteFilename, "filename", "f", "", "delete the document ingested under this filename")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentChunksCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	docs, err := ingestionService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentListJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    File:     %s\n", docs[i].Filename)
		cmd.Printf("    Chunks:   %d\n", docs[i].ChunkCount)
		cmd.Printf("    Uploaded: %s\n", docs[i].UploadedAt.Local().Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	doc, err := ingestionService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  File:     %s\n", doc.Filename)
	cmd.Printf("  Version:  %s\n", doc.Version)
	cmd.Printf("  Chunks:   %d\n", doc.ChunkCount)
	cmd.Printf("  Uploaded: %s\n", doc.UploadedAt.Local().Format("2006-01-02 15:04:05"))

	if len(doc.Metadata) > 0 {
		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cmd.Println("\n  Metadata:")
		for _, k := range keys {
			cmd.Printf("    %s: %s\n", k, snippet(doc.Metadata[k], 80))
		}
	}

	return nil
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	doc, err := ingestionService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	for _, c := range doc.Chunks {
		cmd.Printf("--- chunk %d [%d:%d] ---\n", c.Index, c.Start, c.End)
		cmd.Println(c.Content)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := commandContext(cmd)
	switch {
	case deleteFilename != "" && len(args) > 0:
		return errors.New("pass a document id or --filename, not both")
	case deleteFilename != "":
		if err := ingestionService.DeleteByFilename(ctx, deleteFilename); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		cmd.Printf("Document %s deleted.\n", deleteFilename)
	case len(args) == 1:
		if err := ingestionService.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		cmd.Printf("Document %s deleted.\n", args[0])
	default:
		return errors.New("a document id or --filename is required")
	}
	return nil
}

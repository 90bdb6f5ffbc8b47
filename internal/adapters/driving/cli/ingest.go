package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	ingestText string
	ingestName string
	ingestID   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index files, directories or inline text",
	Long: `Index documents so they can be used to answer questions.

Directories are walked recursively; hidden files and unsupported formats
are skipped. Re-ingesting a file replaces its previous version.

Examples:
  sercha-rag ingest handbook.pdf notes.md
  sercha-rag ingest ./docs
  sercha-rag ingest --name faq.txt --text "Refunds take 5 days."`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "ingest this text instead of files")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "filename for --text")
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "explicit document id for --text")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := commandContext(cmd)

	if ingestText != "" {
		if len(args) > 0 {
			return errors.New("--text cannot be combined with paths")
		}
		if ingestName == "" {
			return errors.New("--name is required with --text")
		}
		doc, err := ingestionService.Ingest(ctx, domain.IngestRequest{
			ID:       ingestID,
			Filename: ingestName,
			Text:     ingestText,
		})
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		printIngested(cmd, doc)
		return nil
	}

	if len(args) == 0 {
		return errors.New("nothing to ingest: pass paths or --text")
	}

	var total, failed int
	for _, path := range args {
		n, f, err := ingestPath(ctx, cmd, path)
		total += n
		failed += f
		if err != nil {
			return err
		}
	}

	if total > 1 {
		cmd.Printf("\nIngested %d of %d files\n", total-failed, total)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, total)
	}
	return nil
}

// ingestPath ingests one file or every eligible file under a directory.
// It returns how many files were attempted and how many failed.
func ingestPath(ctx context.Context, cmd *cobra.Command, path string) (int, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 1, 1, fmt.Errorf("cannot read %s: %w", path, err)
	}

	if !info.IsDir() {
		raw, err := filesystem.ReadFile(path)
		if err != nil {
			return 1, 1, err
		}
		if !ingestRaw(ctx, cmd, raw) {
			return 1, 1, nil
		}
		return 1, 0, nil
	}

	var total, failed int
	docs, errs := filesystem.New(path, supportedExtensions).Scan(ctx)
	for raw := range docs {
		total++
		if !ingestRaw(ctx, cmd, &raw) {
			failed++
		}
	}
	if err := <-errs; err != nil {
		return total, failed, fmt.Errorf("scan %s: %w", path, err)
	}
	if total == 0 {
		cmd.Printf("No supported files found in %s\n", path)
	}
	return total, failed, nil
}

// ingestRaw ingests one file and reports the outcome.
func ingestRaw(ctx context.Context, cmd *cobra.Command, raw *domain.RawDocument) bool {
	doc, err := ingestionService.IngestFile(ctx, raw)
	if err != nil {
		cmd.PrintErrf("Failed %s: %v\n", raw.Filename, err)
		return false
	}
	printIngested(cmd, doc)
	return true
}

func printIngested(cmd *cobra.Command, doc *domain.Document) {
	cmd.Printf("Ingested %s (%d chunks, id %s)\n", doc.Filename, doc.ChunkCount, doc.ID)
}

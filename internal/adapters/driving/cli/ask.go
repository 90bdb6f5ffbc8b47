package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	askDebug bool
	askTopK  int
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieves the passages most similar to the question, sends them to the
language model and prints the answer with the files it was drawn from.

Use --debug to see the retrieved chunks, their scores and the exact prompt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askDebug, "debug", false, "show retrieved chunks and the full prompt")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "chunks to retrieve (0 uses retrieval.top_k)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer message as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}
	if askTopK < 0 {
		return errors.New("--top-k must not be negative")
	}

	question := strings.Join(args, " ")
	msg, err := answerService.Answer(commandContext(cmd), question, domain.AnswerOptions{
		Debug: askDebug,
		TopK:  askTopK,
	})
	if err != nil {
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(msg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printAnswer(cmd, msg)
	return nil
}

// printAnswer writes an assistant message in human readable form.
func printAnswer(cmd *cobra.Command, msg *domain.Message) {
	cmd.Println(msg.Text)
	if len(msg.Sources) > 0 {
		cmd.Println()
		cmd.Printf("Sources: %s\n", strings.Join(msg.Sources, ", "))
	}
	if msg.Debug != nil {
		printTrace(cmd, msg.Debug)
	}
}

// printTrace writes the retrieval and prompt details of an answer.
func printTrace(cmd *cobra.Command, trace *domain.DebugTrace) {
	cmd.Println()
	cmd.Println("Retrieved chunks:")
	if len(trace.RelevantChunks) == 0 {
		cmd.Println("  (none)")
	}
	for _, c := range trace.RelevantChunks {
		marker := fmt.Sprintf("[Source %d]", c.Citation)
		if c.Dropped {
			marker = "[dropped]"
		}
		cmd.Printf("  %s %s #%d (%.3f)\n", marker, c.Metadata.Filename, c.Metadata.ChunkIndex, c.Score)
		cmd.Printf("      %s\n", snippet(c.Content, 100))
	}
	cmd.Println()
	cmd.Println("Prompt:")
	cmd.Println(trace.FullPrompt)
}

// snippet shortens text to at most n runes on a single line.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

package cli

import (
	"bufio"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var chatDebug bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long: `Starts a line-based session: type a question and press Enter.
Each question is answered on its own from the indexed documents.

Commands:
  /debug    toggle retrieval details
  /history  show this session's questions and answers
  /quit     leave (Ctrl-D works too)`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatDebug, "debug", false, "start with retrieval details on")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	ctx := commandContext(cmd)
	in := cmd.InOrStdin()
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	debug := chatDebug
	var conversation domain.Conversation
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if interactive {
		cmd.Println("Ask a question, or /quit to leave.")
	}
	for {
		if interactive {
			cmd.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/debug":
			debug = !debug
			if debug {
				cmd.Println("Debug on")
			} else {
				cmd.Println("Debug off")
			}
			continue
		case "/history":
			printHistory(cmd, &conversation)
			continue
		}

		conversation.Append(domain.Message{Role: domain.RoleUser, Text: line, CreatedAt: time.Now()})
		msg, err := answerService.Answer(ctx, line, domain.AnswerOptions{Debug: debug})
		if err != nil {
			cmd.PrintErrf("Error: %v\n", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		conversation.Append(*msg)
		printAnswer(cmd, msg)
		cmd.Println()
	}
	return scanner.Err()
}

func printHistory(cmd *cobra.Command, conversation *domain.Conversation) {
	if conversation.Len() == 0 {
		cmd.Println("No questions yet.")
		return
	}
	for _, m := range conversation.Messages {
		prefix := "You"
		if m.Role == domain.RoleAssistant {
			prefix = "Answer"
		}
		cmd.Printf("%s: %s\n", prefix, snippet(m.Text, 120))
	}
}

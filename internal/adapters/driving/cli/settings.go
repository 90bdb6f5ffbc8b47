package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change chunking, retrieval, provider and storage settings.

Values are saved to config.toml. Environment variables named
SERCHA_RAG_<KEY> (dots become underscores) take precedence.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings and where they come from",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a single setting. Secret keys prompt for their value when it is
omitted so it does not end up in shell history.

Examples:
  sercha-rag settings set retrieval.top_k 8
  sercha-rag settings set llm.provider anthropic
  sercha-rag settings set llm.api_key`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive provider setup",
	Long:  `Choose the embedding and LLM providers step by step.`,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	values, err := settingsService.Describe()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")

	section := ""
	for _, v := range values {
		if s, _, _ := strings.Cut(v.Key, "."); s != section {
			section = s
			cmd.Printf("\n[%s]\n", section)
		}
		value := v.Value
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("  %-28s %-32s %s\n", v.Key, value, v.Origin)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sercha-rag settings wizard' to fix provider configuration.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		if !isSecretKey(key) {
			return fmt.Errorf("a value is required for %s", key)
		}
		cmd.Printf("Enter %s: ", key)
		value = readPassword(cmd.InOrStdin(), nil)
		cmd.Println()
	}

	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if isSecretKey(key) {
		cmd.Printf("Saved %s\n", key)
	} else {
		cmd.Printf("Saved %s = %s\n", key, value)
	}
	return nil
}

// isSecretKey reports whether key holds a credential.
func isSecretKey(key string) bool {
	values, err := settingsService.Describe()
	if err != nil {
		return false
	}
	for _, v := range values {
		if v.Key == key {
			return v.Secret
		}
	}
	return false
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("sercha-rag Settings Wizard")
	cmd.Println("==========================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureProvider(cmd, reader, "embedding",
		domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels()); err != nil {
		return err
	}
	checkConnection(cmd, "embedding", settingsService.ValidateEmbeddingConfig)

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	if err := configureProvider(cmd, reader, "llm",
		domain.AllLLMProviders(), domain.DefaultLLMModels()); err != nil {
		return err
	}
	checkConnection(cmd, "llm", settingsService.ValidateLLMConfig)

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}
	return nil
}

// configureProvider prompts for provider, model and API key of one section.
func configureProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	section string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) error {
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := defaults[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.Set(section+".provider", string(selected)); err != nil {
		return fmt.Errorf("failed to set %s provider: %w", section, err)
	}
	if err := settingsService.Set(section+".model", model); err != nil {
		return fmt.Errorf("failed to set %s model: %w", section, err)
	}
	if apiKey != "" {
		if err := settingsService.Set(section+".api_key", apiKey); err != nil {
			return fmt.Errorf("failed to set %s API key: %w", section, err)
		}
	}

	cmd.Printf("%s provider configured: %s (%s)\n\n", section, selected.Description(), model)
	return nil
}

// checkConnection pings a freshly configured provider. Failures are reported
// but the settings stay saved so an offline server can be started later.
func checkConnection(cmd *cobra.Command, section string, validate func() error) {
	cmd.Printf("Checking %s connection... ", section)
	if err := validate(); err != nil {
		cmd.Println("failed")
		cmd.Printf("Warning: %v\n\n", err)
		return
	}
	cmd.Println("ok")
	cmd.Println()
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a line without echo when in is a terminal, otherwise
// from reader (or a new reader over in).
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	if reader == nil {
		reader = bufio.NewReader(in)
	}
	return readLine(reader)
}

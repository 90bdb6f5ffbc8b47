package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the configured pipeline",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sercha-rag version %s\n", resolvedVersion())
		fmt.Fprintf(out, "  go:           %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		printPipeline(out)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// resolvedVersion falls back to the module version for go-installed builds.
func resolvedVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

// printPipeline lists the providers and stores answers are produced with.
// Nothing is printed when settings are unavailable.
func printPipeline(out io.Writer) {
	if settingsService == nil {
		return
	}
	s, err := settingsService.Get()
	if err != nil {
		return
	}
	fmt.Fprintf(out, "  embedding:    %s/%s (%d dims)\n", s.Embedding.Provider, s.Embedding.Model, s.Embedding.Dimensions)
	fmt.Fprintf(out, "  llm:          %s/%s\n", s.LLM.Provider, s.LLM.Model)
	fmt.Fprintf(out, "  vector store: %s (collection %q)\n", s.VectorStore.Backend, s.VectorStore.Collection)
}

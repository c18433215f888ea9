package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zephyrtronium/calculette/internal/explain"
)

var explainProvider string

var explainCmd = &cobra.Command{
	Use:   "explain <concept>",
	Short: "Explain a math concept",
	Long: `Ask the configured provider for a short explanation of a math concept and
print it. The simulated provider answers with placeholder text; the ollama
provider asks a local Ollama server.`,
	Example: `  calculette explain dérivée
  calculette explain --provider ollama "nombre premier"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().StringVar(&explainProvider, "provider", "", "Provider: simulated or ollama (default from config)")
}

func runExplain(cmd *cobra.Command, args []string) error {
	ecfg := cfg.Explain
	if explainProvider != "" {
		ecfg.Provider = explainProvider
	}
	p, err := explain.New(ecfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	log := newLogger(cmd.ErrOrStderr())
	concept := strings.Join(args, " ")
	log.Debug("explaining", "provider", ecfg.Provider, "concept", concept)
	text, err := p.Explain(ctx, concept)
	if err != nil {
		return fmt.Errorf("explaining %q: %w", concept, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

// commandContext returns the context of cmd, or a background context when
// the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

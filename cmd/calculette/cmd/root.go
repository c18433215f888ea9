// Package cmd implements the calculette command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zephyrtronium/calculette/internal/config"
	"github.com/zephyrtronium/calculette/internal/explain"
	"github.com/zephyrtronium/calculette/internal/tui"
)

var (
	cfgFile string
	verbose bool

	// cfg is loaded before any command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "calculette",
	Short: "Calculatrice avec explications de concepts mathématiques",
	Long: `calculette est une calculatrice en mode terminal.

Sans sous-commande, elle ouvre l'interface interactive :

  chiffres, + - * / . ( ) %   saisir l'expression
  Entrée                      évaluer
  Retour arrière              effacer le dernier caractère
  Échap                       tout effacer
  flèches, Espace             choisir et appuyer sur une touche
  Tab                         saisir un concept à expliquer
  Ctrl+C                      quitter`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runTUI,
}

// Execute runs the command named by the program arguments.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: $"+config.EnvVar+", ./calculette.toml, or the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var path string
	var err error
	if cfgFile != "" {
		path = cfgFile
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, path, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}
	if path != "" && verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "using config %s\n", path)
	}
	return nil
}

// newLogger creates the logger for commands writing to w.
func newLogger(w io.Writer) *slog.Logger {
	level := cfg.Log.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the UI, so logs go to a file or nowhere.
	log := slog.New(slog.DiscardHandler)
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		log = newLogger(f)
	}

	p, err := explain.New(cfg.Explain)
	if err != nil {
		return err
	}
	log.Info("starting", "provider", cfg.Explain.Provider)
	return tui.Run(p, log)
}

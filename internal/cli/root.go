// Package cli wires configuration, providers and user interfaces into the
// pdfrag command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pdfrag/internal/config"
	"pdfrag/internal/logger"
)

// AppTitle is shown in both user interfaces.
const AppTitle = "Nvidia NIM Q&A - RAG Application"

var (
	cfgPath   string
	sourceDir string
	verbose   bool
	logFile   string

	// appConfig is loaded and validated before any subcommand runs.
	appConfig *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "pdfrag",
	Short: "Ask questions about a directory of PDFs",
	Long: `pdfrag answers questions about a folder of PDF documents.

The documents are split into overlapping chunks, embedded with a hosted
embedding model and indexed per session. Each question retrieves the most
similar chunks and a hosted chat model answers from that context only.

Without a subcommand the terminal UI is started.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
	RunE:              runTUI,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "path to YAML config file (default ./config.yaml, then ~/.config/pdfrag/config.yaml)")
	flags.StringVar(&sourceDir, "source-dir", "", "directory of PDFs to index (overrides source_dir)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadSettings(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if sourceDir != "" {
		cfg.SourceDir = sourceDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	appConfig = cfg
	return nil
}

// setupLogging installs the process logger. Logs go to --log-file when
// set, otherwise to fallback. The returned func closes the log file.
func setupLogging(fallback io.Writer) (*slog.Logger, func(), error) {
	if logFile == "" {
		return logger.Setup(fallback, verbose), func() {}, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return logger.Setup(f, verbose), func() { _ = f.Close() }, nil
}

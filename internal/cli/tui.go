package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pdfrag/internal/session"
	"pdfrag/internal/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal UI.

Controls:
  Enter    - Embed the docs (first time) & fetch the answer
  ctrl+b   - Embed the docs only
  tab      - Toggle the Document Similarity Search passages
  ↑/↓      - Scroll
  ctrl+c   - Quit

Logs are discarded unless --log-file is set.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("tui panic: %v", r)
		}
	}()

	logger, closeLog, err := setupLogging(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pipeline, release, err := pipelineFactory(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer release()

	s := session.New(uuid.NewString(), pipeline)
	defer func() { _ = s.Close() }()
	startWatcher(ctx, appConfig, s.MarkStale, logger)

	m := tui.New(ctx, s, AppTitle)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

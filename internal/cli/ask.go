package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pdfrag/internal/domain"
	"pdfrag/internal/session"
	"pdfrag/internal/tui"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Embed the documents and answer one question",
	Long: `Embeds the source documents, answers one question from the
retrieved passages and prints the answer, the response time and the
passages used.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

type askOutput struct {
	Question  string          `json:"question"`
	Answer    string          `json:"answer"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Passages  []passageOutput `json:"passages"`
}

type passageOutput struct {
	Source string  `json:"source"`
	Page   int     `json:"page,omitempty"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := setupLogging(cmd.ErrOrStderr())
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

	report, err := s.Build(ctx)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	logger.Info("vector store is ready",
		"documents", report.Documents,
		"chunks", report.Chunks,
		"elapsed", report.Elapsed)

	ans, err := s.Ask(ctx, args[0])
	if err != nil {
		return fmt.Errorf("answer: %w", err)
	}
	if askJSON {
		return outputAskJSON(cmd, ans)
	}
	outputAskText(cmd, ans)
	return nil
}

func outputAskJSON(cmd *cobra.Command, ans *domain.Answer) error {
	out := askOutput{
		Question:  ans.Question,
		Answer:    ans.Text,
		ElapsedMS: ans.Elapsed.Milliseconds(),
		Passages:  make([]passageOutput, 0, len(ans.Context)),
	}
	for _, r := range ans.Context {
		out.Passages = append(out.Passages, passageOutput{
			Source: filepath.Base(r.Chunk.Source),
			Page:   r.Chunk.Page,
			Score:  r.Score,
			Text:   r.Chunk.Text,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputAskText(cmd *cobra.Command, ans *domain.Answer) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, ans.Text)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Response time: %.2f seconds\n", ans.Elapsed.Seconds())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Document Similarity Search:")
	for _, r := range ans.Context {
		source := filepath.Base(r.Chunk.Source)
		if r.Chunk.Page > 0 {
			source = fmt.Sprintf("%s p.%d", source, r.Chunk.Page)
		}
		fmt.Fprintf(w, "[%s] score=%.3f\n", source, r.Score)
		fmt.Fprintln(w, r.Chunk.Text)
		fmt.Fprintln(w, tui.PassageRule)
	}
}

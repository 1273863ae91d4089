package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pdfrag/internal/session"
	"pdfrag/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser UI and JSON API",
	Long: `Serve the question-answering page and a JSON API.

Every browser gets its own session bound to a cookie; each session embeds
the documents once and keeps its index until the server stops.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := setupLogging(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, release, err := pipelineFactory(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer release()

	sessions := session.NewManager(pipeline)
	defer func() {
		if err := sessions.Close(); err != nil {
			logger.Warn("close sessions", "error", err)
		}
	}()
	startWatcher(ctx, appConfig, sessions.MarkAllStale, logger)

	addr := appConfig.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	handler := web.NewHandler(sessions, AppTitle, logger)
	return web.Serve(ctx, addr, web.NewRouter(handler), logger)
}

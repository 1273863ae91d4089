package cli

import (
	"context"
	"log/slog"

	"pdfrag/internal/config"
	"pdfrag/internal/watcher"
)

// startWatcher marks indexes stale when PDFs under the source directory
// change. It is a no-op unless watch is enabled.
func startWatcher(ctx context.Context, cfg *config.AppConfig, onChange func(), logger *slog.Logger) {
	if !cfg.Watch {
		return
	}
	w, err := watcher.New(cfg.SourceDir, func() {
		logger.Info("source documents changed", "dir", cfg.SourceDir)
		onChange()
	}, logger)
	if err != nil {
		logger.Warn("source watching disabled", "error", err)
		return
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Warn("source watcher stopped", "error", err)
		}
	}()
}

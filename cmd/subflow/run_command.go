package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"subflow/internal/history"
	"subflow/internal/logging"
	"subflow/internal/pipeline"
	"subflow/internal/preflight"
	"subflow/internal/resume"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var resumeFlag bool
	var modelFlag string

	cmd := &cobra.Command{
		Use:   "run [videos...]",
		Short: "Recognize speech and translate the resulting subtitles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if modelFlag != "" {
				cfg.Translator.Model = modelFlag
			}

			videos := append([]string(nil), args...)
			if resumeFlag {
				pending, err := resume.Load(cfg.ResumeMarkerPath())
				if err != nil {
					return fmt.Errorf("load resume marker: %w", err)
				}
				videos = append(videos, pending...)
			}
			if len(videos) == 0 {
				return errors.New("no input videos (pass paths or use --resume)")
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			printPreflight(cmd.ErrOrStderr(), results)
			if !preflight.Passed(results) {
				return errors.New("preflight checks failed")
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var opts []pipeline.Option
			if cfg.History.Enabled {
				store, err := history.Open(cfg.HistoryDBPath())
				if err != nil {
					logger.Warn("history disabled", logging.Error(err))
				} else {
					defer store.Close()
					opts = append(opts, pipeline.WithRecorder(store))
				}
			}

			notifier := newConsoleNotifier(logger, cmd.OutOrStdout())
			opts = append(opts, pipeline.WithNotifier(notifier))
			ctrl := pipeline.New(cfg, logger, opts...)

			if err := ctrl.Start(videos); err != nil {
				ctrl.Shutdown()
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-notifier.idle:
				logger.Info("pipeline drained")
			case sig := <-sigCh:
				logger.Info("signal received, shutting down", logging.String("signal", sig.String()))
			case <-cmd.Context().Done():
			}
			ctrl.Shutdown()
			return nil
		},
	}

	cmd.Flags().BoolVar(&resumeFlag, "resume", false, "Include videos left unfinished by a previous run")
	cmd.Flags().StringVar(&modelFlag, "model", "", "Override the translation model for this run")
	return cmd
}

// consoleNotifier renders pipeline signals as structured logs, plus inline
// progress when stdout is a terminal.
type consoleNotifier struct {
	recognition *slog.Logger
	translation *slog.Logger
	out         io.Writer
	tty         bool

	idleOnce sync.Once
	idle     chan struct{}
}

func newConsoleNotifier(logger *slog.Logger, out io.Writer) *consoleNotifier {
	tty := false
	if file, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
	}
	return &consoleNotifier{
		recognition: logging.NewComponentLogger(logger, "recognition"),
		translation: logging.NewComponentLogger(logger, "translation"),
		out:         out,
		tty:         tty,
		idle:        make(chan struct{}),
	}
}

func (n *consoleNotifier) Log(line string) {
	n.recognition.Info(line)
}

func (n *consoleNotifier) TranslationLog(line string) {
	n.translation.Info(line)
}

func (n *consoleNotifier) RecognitionProgress(text string) {
	if !n.tty {
		return
	}
	fmt.Fprintf(n.out, "\r%s\x1b[K", text)
	if text == "" {
		fmt.Fprint(n.out, "\r")
	}
}

func (n *consoleNotifier) TranslationProgress(done, total int) {
	if !n.tty {
		return
	}
	if done == 0 && total == 0 {
		fmt.Fprint(n.out, "\r\x1b[K")
		return
	}
	fmt.Fprintf(n.out, "\rtranslating %d/%d\x1b[K", done, total)
}

func (n *consoleNotifier) BusyChanged(busy bool) {
	n.recognition.Debug("busy state changed", logging.Bool("busy", busy))
}

func (n *consoleNotifier) FileCompleted(video string) {
	if n.tty {
		fmt.Fprint(n.out, "\r\x1b[K")
	}
	n.translation.Info("subtitle translated", logging.String(logging.FieldVideo, video))
}

func (n *consoleNotifier) Idle() {
	n.idleOnce.Do(func() { close(n.idle) })
}

var _ pipeline.Notifier = (*consoleNotifier)(nil)

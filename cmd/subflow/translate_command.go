package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subflow/internal/language"
	"subflow/internal/logging"
	"subflow/internal/pipeline"
	"subflow/internal/translate"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <subtitle.srt>",
		Short: "Translate a single subtitle file in place",
		Long: "Translate a single subtitle file and replace it with the translated " +
			"version. Progress is reported on stdout as \"[PROGRESS] done/total\" " +
			"lines so a parent process can track it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			client := translate.NewClient(translate.ClientConfig{
				APIKey:         cfg.Translator.APIKey,
				BaseURL:        cfg.Translator.BaseURL,
				Model:          cfg.Translator.Model,
				Temperature:    cfg.Translator.Temperature,
				TimeoutSeconds: cfg.Translator.TimeoutSeconds,
				RetryAttempts:  cfg.Translator.RetryAttempts,
				RetryBase:      cfg.RetryBase(),
			})
			engine := translate.NewEngine(client, translate.EngineConfig{
				SourceLanguage: language.DisplayName(cfg.Translator.SourceLanguage),
				TargetLanguage: language.DisplayName(cfg.Translator.TargetLanguage),
				BatchSize:      cfg.Translator.BatchSize,
				MaxTokensBatch: cfg.Translator.MaxTokensBatch,
				MaxTokensLine:  cfg.Translator.MaxTokensLine,
				OutputSuffix:   cfg.Translator.OutputSuffix,
			}, logger)

			out := cmd.OutOrStdout()
			result, err := engine.TranslateFile(cmd.Context(), args[0], func(done, total int) {
				fmt.Fprintln(out, pipeline.FormatProgress(done, total))
			})
			if err != nil {
				return err
			}
			logger.Info("subtitle translated", logging.String(logging.FieldSubtitle, result))
			return nil
		},
	}
}

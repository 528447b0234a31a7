package translate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"subflow/internal/fileutil"
	"subflow/internal/logging"
	"subflow/internal/services"
	"subflow/internal/srt"
)

// Non-dialogue cues such as sound effect annotations and music marks are
// copied through untranslated.
var skipPattern = regexp.MustCompile(`^\s*(\[.*?\]|\(.*?\)|（.*?）|♪.*)\s*$`)

// Completer issues one chat completion. Satisfied by Client.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// EngineConfig controls chunking and output naming.
type EngineConfig struct {
	// SourceLanguage and TargetLanguage are human-readable names used in
	// prompts, e.g. "Japanese" and "Simplified Chinese".
	SourceLanguage string
	TargetLanguage string
	BatchSize      int
	MaxTokensBatch int
	MaxTokensLine  int
	// OutputSuffix names the intermediate sibling file, e.g. "chs" yields
	// movie.chs.srt before the rename over the original.
	OutputSuffix string
}

// ProgressFunc receives candidate-line counts as translation advances.
type ProgressFunc func(done, total int)

// position addresses one text line inside a parsed subtitle.
type position struct {
	entry int
	line  int
}

// Engine translates subtitle files chunk by chunk. A structurally invalid
// batch response falls back to per-line requests; a per-line request that
// exhausts its retries fails the whole file.
type Engine struct {
	client Completer
	cfg    EngineConfig
	logger *slog.Logger
}

// NewEngine constructs an Engine. A nil logger disables logging.
func NewEngine(client Completer, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxTokensBatch <= 0 {
		cfg.MaxTokensBatch = 1024
	}
	if cfg.MaxTokensLine <= 0 {
		cfg.MaxTokensLine = 256
	}
	if cfg.OutputSuffix == "" {
		cfg.OutputSuffix = "chs"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{client: client, cfg: cfg, logger: logger}
}

// TranslateFile translates the subtitle at path in place: the result is
// written to a suffixed sibling, the original is removed, and the sibling is
// renamed over the original path, which is returned. Blank lines and
// non-dialogue cues keep their source text and do not count toward progress.
func (e *Engine) TranslateFile(ctx context.Context, path string, progress ProgressFunc) (string, error) {
	entries, err := srt.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "translate", "read subtitle", path, err)
	}

	var positions []position
	var sources []string
	for i, entry := range entries {
		for j, line := range entry.Lines {
			if strings.TrimSpace(line) == "" || skipPattern.MatchString(line) {
				continue
			}
			positions = append(positions, position{entry: i, line: j})
			sources = append(sources, line)
		}
	}

	total := len(sources)
	done := 0
	report := func(n int) {
		done += n
		if progress != nil {
			progress(done, total)
		}
	}
	// Announce the total up front so observers can size their display
	// before the first chunk returns.
	if total > 0 {
		report(0)
	}

	translated := make([]string, 0, total)
	for start := 0; start < total; start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > total {
			end = total
		}
		chunk, err := e.translateChunk(ctx, sources[start:end], report)
		if err != nil {
			return "", err
		}
		translated = append(translated, chunk...)
	}

	for k, pos := range positions {
		entries[pos.entry].Lines[pos.line] = translated[k]
	}
	return e.writeResult(path, entries)
}

// translateChunk returns one translation per source line. A failed or
// structurally invalid batch response degrades to per-line requests; a
// per-line failure is returned to the caller.
func (e *Engine) translateChunk(ctx context.Context, sources []string, report func(n int)) ([]string, error) {
	batchPrompt := BatchSystemPrompt(e.cfg.SourceLanguage, e.cfg.TargetLanguage)
	content, err := e.client.Complete(ctx, batchPrompt, FormatBatch(sources), e.cfg.MaxTokensBatch)
	if err != nil {
		e.logger.Warn("batch request failed, falling back to line requests", logging.Error(err))
	} else {
		translated, parseErr := ParseTagged(content, len(sources))
		if parseErr == nil {
			report(len(sources))
			return e.substituteEmpty(translated, sources), nil
		}
		e.logger.Warn("batch response invalid, falling back to line requests",
			logging.Error(parseErr), logging.Int(logging.FieldChunk, len(sources)))
	}

	linePrompt := LineSystemPrompt(e.cfg.SourceLanguage, e.cfg.TargetLanguage)
	translated := make([]string, len(sources))
	for i, source := range sources {
		line, err := e.client.Complete(ctx, linePrompt, source, e.cfg.MaxTokensLine)
		if err != nil {
			return nil, err
		}
		translated[i] = strings.TrimSpace(line)
		report(1)
	}
	return e.substituteEmpty(translated, sources), nil
}

func (e *Engine) substituteEmpty(translated, sources []string) []string {
	for i := range translated {
		if strings.TrimSpace(translated[i]) == "" {
			translated[i] = sources[i]
		}
	}
	return translated
}

// ParseTagged validates and strips tags from a batch response. The response
// must contain exactly count non-empty lines, and line i must carry the tag
// <Li>; anything else invalidates the whole batch.
func ParseTagged(content string, count int) ([]string, error) {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) != count {
		return nil, fmt.Errorf("expected %d tagged lines, got %d", count, len(lines))
	}
	translated := make([]string, count)
	for i, line := range lines {
		tag := fmt.Sprintf("<L%d>", i+1)
		if !strings.HasPrefix(line, tag) {
			return nil, fmt.Errorf("line %d missing tag %s", i+1, tag)
		}
		translated[i] = strings.TrimSpace(strings.TrimPrefix(line, tag))
	}
	return translated, nil
}

// writeResult serializes to the suffixed sibling, removes the original, and
// renames the sibling over the original path. Removal failure is fatal for
// the file; the sibling is cleaned up before returning.
func (e *Engine) writeResult(path string, entries []srt.Entry) (string, error) {
	sibling := fileutil.SiblingWithSuffix(path, e.cfg.OutputSuffix)

	if err := srt.WriteFile(sibling, entries); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "translate", "write output", sibling, err)
	}
	if err := os.Remove(path); err != nil {
		_ = os.Remove(sibling)
		return "", services.Wrap(services.ErrExternalTool, "translate", "remove original", path, err)
	}
	if err := os.Rename(sibling, path); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "translate", "rename output", path, err)
	}
	return path, nil
}

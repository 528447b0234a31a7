package translate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"subflow/internal/srt"
	"subflow/internal/translate"
)

type fakeCompleter struct {
	batchResponse string
	batchErr      error
	lineResponse  func(source string) (string, error)

	batchCalls  int
	lineCalls   int
	batchInputs []string
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, userPrompt string, maxTokens int) (string, error) {
	if maxTokens == 1024 {
		f.batchCalls++
		f.batchInputs = append(f.batchInputs, userPrompt)
		return f.batchResponse, f.batchErr
	}
	f.lineCalls++
	if f.lineResponse != nil {
		return f.lineResponse(userPrompt)
	}
	return "line:" + userPrompt, nil
}

func engineConfig() translate.EngineConfig {
	return translate.EngineConfig{
		SourceLanguage: "Japanese",
		TargetLanguage: "Simplified Chinese",
		BatchSize:      20,
		MaxTokensBatch: 1024,
		MaxTokensLine:  256,
		OutputSuffix:   "chs",
	}
}

func writeSubtitle(t *testing.T, lines []string) string {
	t.Helper()
	entries := make([]srt.Entry, len(lines))
	for i, line := range lines {
		entries[i] = srt.Entry{
			Index: i + 1,
			Start: "00:00:01,000",
			End:   "00:00:02,000",
			Lines: []string{line},
		}
	}
	path := filepath.Join(t.TempDir(), "movie.srt")
	if err := srt.WriteFile(path, entries); err != nil {
		t.Fatalf("write subtitle: %v", err)
	}
	return path
}

func TestTranslateFileBatchSuccess(t *testing.T) {
	path := writeSubtitle(t, []string{"こんにちは", "ありがとう", "さようなら"})
	completer := &fakeCompleter{batchResponse: "<L1>你好\n<L2>谢谢\n<L3>再见"}
	engine := translate.NewEngine(completer, engineConfig(), nil)

	var progress [][2]int
	output, err := engine.TranslateFile(context.Background(), path, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("TranslateFile: %v", err)
	}
	if output != path {
		t.Errorf("output path = %q, expected original path %q", output, path)
	}
	sibling := strings.TrimSuffix(path, ".srt") + ".chs.srt"
	if _, err := os.Stat(sibling); !os.IsNotExist(err) {
		t.Error("intermediate sibling should be gone after rename")
	}

	entries, err := srt.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := []string{"你好", "谢谢", "再见"}
	for i, entry := range entries {
		if entry.Lines[0] != want[i] {
			t.Errorf("entry %d = %q, expected %q", i, entry.Lines[0], want[i])
		}
		if entry.Start != "00:00:01,000" || entry.End != "00:00:02,000" {
			t.Errorf("entry %d timing changed: %s --> %s", i, entry.Start, entry.End)
		}
	}
	if completer.batchCalls != 1 || completer.lineCalls != 0 {
		t.Errorf("calls batch=%d line=%d", completer.batchCalls, completer.lineCalls)
	}
	wantProgress := [][2]int{{0, 3}, {3, 3}}
	if !reflect.DeepEqual(progress, wantProgress) {
		t.Errorf("unexpected progress %v, want %v", progress, wantProgress)
	}
}

func TestTranslateFileInvalidBatchFallsBackPerLine(t *testing.T) {
	path := writeSubtitle(t, []string{"一行目", "二行目", "三行目"})
	completer := &fakeCompleter{batchResponse: "sorry, I cannot use tags"}
	engine := translate.NewEngine(completer, engineConfig(), nil)

	var progress [][2]int
	output, err := engine.TranslateFile(context.Background(), path, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("TranslateFile: %v", err)
	}
	if completer.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", completer.batchCalls)
	}
	if completer.lineCalls != 3 {
		t.Errorf("expected 3 line calls, got %d", completer.lineCalls)
	}
	want := [][2]int{{0, 3}, {1, 3}, {2, 3}, {3, 3}}
	if !reflect.DeepEqual(progress, want) {
		t.Fatalf("expected per-line progress %v, got %v", want, progress)
	}

	entries, err := srt.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	for i, entry := range entries {
		if !strings.HasPrefix(entry.Lines[0], "line:") {
			t.Errorf("entry %d = %q, expected per-line translation", i, entry.Lines[0])
		}
	}
}

func TestTranslateFileBatchErrorFallsBackPerLine(t *testing.T) {
	path := writeSubtitle(t, []string{"一行目", "二行目"})
	completer := &fakeCompleter{batchErr: errors.New("endpoint down")}
	engine := translate.NewEngine(completer, engineConfig(), nil)

	if _, err := engine.TranslateFile(context.Background(), path, nil); err != nil {
		t.Fatalf("TranslateFile: %v", err)
	}
	if completer.lineCalls != 2 {
		t.Errorf("expected 2 line calls, got %d", completer.lineCalls)
	}
}

func TestTranslateFileLineFailureIsFatal(t *testing.T) {
	path := writeSubtitle(t, []string{"翻訳不能"})
	lineErr := errors.New("endpoint exhausted")
	completer := &fakeCompleter{
		batchResponse: "garbage without tags at all, two lines\nso the batch is discarded",
		lineResponse:  func(string) (string, error) { return "", lineErr },
	}
	engine := translate.NewEngine(completer, engineConfig(), nil)

	_, err := engine.TranslateFile(context.Background(), path, nil)
	if !errors.Is(err, lineErr) {
		t.Fatalf("expected line failure to propagate, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("original subtitle must survive a failed translation: %v", statErr)
	}
}

func TestTranslateFileSubstitutesSourceForEmptyTranslation(t *testing.T) {
	path := writeSubtitle(t, []string{"空になる", "普通の行"})
	completer := &fakeCompleter{batchResponse: "<L1>\n<L2>翻译"}
	engine := translate.NewEngine(completer, engineConfig(), nil)

	output, err := engine.TranslateFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("TranslateFile: %v", err)
	}
	entries, err := srt.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if entries[0].Lines[0] != "空になる" {
		t.Errorf("empty translation should keep source, got %q", entries[0].Lines[0])
	}
	if entries[1].Lines[0] != "翻译" {
		t.Errorf("entry 1 = %q", entries[1].Lines[0])
	}
}

func TestTranslateFileSkipsNonDialogueCues(t *testing.T) {
	path := writeSubtitle(t, []string{"[拍手]", "♪ テーマ曲", "(ため息)", "本物の台詞"})
	completer := &fakeCompleter{batchResponse: "<L1>真正的台词"}
	engine := translate.NewEngine(completer, engineConfig(), nil)

	var progress [][2]int
	output, err := engine.TranslateFile(context.Background(), path, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("TranslateFile: %v", err)
	}
	if len(completer.batchInputs) != 1 || !strings.Contains(completer.batchInputs[0], "本物の台詞") {
		t.Fatalf("unexpected batch input %v", completer.batchInputs)
	}
	if strings.Contains(completer.batchInputs[0], "拍手") {
		t.Error("non-dialogue cue was sent for translation")
	}
	if !reflect.DeepEqual(progress, [][2]int{{0, 1}, {1, 1}}) {
		t.Errorf("skipped cues must not count toward progress, got %v", progress)
	}

	entries, err := srt.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := []string{"[拍手]", "♪ テーマ曲", "(ため息)", "真正的台词"}
	for i, entry := range entries {
		if entry.Lines[0] != want[i] {
			t.Errorf("entry %d = %q, expected %q", i, entry.Lines[0], want[i])
		}
	}
}

func TestTranslateFileHandlesMultiLineEntries(t *testing.T) {
	entries := []srt.Entry{
		{Index: 1, Start: "00:00:01,000", End: "00:00:02,000", Lines: []string{"一行目", "(咳)"}},
		{Index: 2, Start: "00:00:03,000", End: "00:00:04,000", Lines: []string{"二行目"}},
	}
	path := filepath.Join(t.TempDir(), "movie.srt")
	if err := srt.WriteFile(path, entries); err != nil {
		t.Fatalf("write subtitle: %v", err)
	}

	completer := &fakeCompleter{batchResponse: "<L1>第一行\n<L2>第二行"}
	engine := translate.NewEngine(completer, engineConfig(), nil)

	output, err := engine.TranslateFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("TranslateFile: %v", err)
	}
	got, err := srt.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got[0].Lines[0] != "第一行" || got[0].Lines[1] != "(咳)" {
		t.Errorf("entry 0 lines = %v", got[0].Lines)
	}
	if got[1].Lines[0] != "第二行" {
		t.Errorf("entry 1 lines = %v", got[1].Lines)
	}
}

func TestParseTagged(t *testing.T) {
	cases := []struct {
		name    string
		content string
		count   int
		want    []string
		wantErr bool
	}{
		{"complete", "<L1>a\n<L2>b", 2, []string{"a", "b"}, false},
		{"blank lines tolerated", "\n<L1>a\n\n<L2>b\n", 2, []string{"a", "b"}, false},
		{"count mismatch", "<L1>a", 2, nil, true},
		{"stray prose", "Sure!\n<L1>a", 1, nil, true},
		{"out of order", "<L2>b\n<L1>a", 2, nil, true},
		{"wrong tag", "<L1>a\n<L3>c", 2, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := translate.ParseTagged(tc.content, tc.count)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTagged: %v", err)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("index %d = %q, expected %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

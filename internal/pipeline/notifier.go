package pipeline

// Notifier receives pipeline signals. Implementations must be cheap: every
// method is invoked from the controller's event loop.
type Notifier interface {
	// Log receives recognition log lines and pipeline status text.
	Log(line string)
	// TranslationLog receives non-progress output of the translation
	// subprocess.
	TranslationLog(line string)
	// RecognitionProgress receives ephemeral progress text that replaces
	// the previous one. An empty string resets the display.
	RecognitionProgress(text string)
	// TranslationProgress receives done/total counts for the running
	// translation job. (0, 0) resets the display.
	TranslationProgress(done, total int)
	// BusyChanged fires on every transition of the pipeline busy flag.
	BusyChanged(busy bool)
	// FileCompleted fires when a video's subtitle finished translation.
	FileCompleted(video string)
	// Idle fires when all work is drained and nothing is pending.
	Idle()
}

// NopNotifier discards all signals. Embed it to implement a subset.
type NopNotifier struct{}

func (NopNotifier) Log(string) {}

func (NopNotifier) TranslationLog(string) {}

func (NopNotifier) RecognitionProgress(string) {}

func (NopNotifier) TranslationProgress(int, int) {}

func (NopNotifier) BusyChanged(bool) {}

func (NopNotifier) FileCompleted(string) {}

func (NopNotifier) Idle() {}

var _ Notifier = NopNotifier{}

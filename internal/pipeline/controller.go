// Package pipeline coordinates recognition and translation around a single
// cooperative event loop.
//
// One goroutine owns all controller state. The public API, subprocess
// callbacks, and timers communicate with it exclusively by posting closures
// onto its dispatch channel, so no state is guarded by locks.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"subflow/internal/config"
	"subflow/internal/fileutil"
	"subflow/internal/history"
	"subflow/internal/logging"
	"subflow/internal/process"
	"subflow/internal/recognize"
	"subflow/internal/resume"
	"subflow/internal/services"
)

// Handle is the controller's view of a running subprocess.
type Handle interface {
	Terminate()
	Running() bool
}

// Launcher starts supervised subprocesses. The default implementation wraps
// process.Supervisor; tests substitute fakes.
type Launcher interface {
	Launch(ctx context.Context, spec process.Spec) (Handle, error)
}

type supervisorLauncher struct {
	sup *process.Supervisor
}

func (l supervisorLauncher) Launch(ctx context.Context, spec process.Spec) (Handle, error) {
	handle, err := l.sup.Launch(ctx, spec)
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Recorder persists job transitions. Satisfied by *history.Store; a nil
// recorder disables history.
type Recorder interface {
	Add(ctx context.Context, sessionID, videoPath, subtitlePath string, status history.Status) (int64, error)
	SetStatus(ctx context.Context, id int64, status history.Status, errorMessage string) error
}

// Controller owns the full video-to-translated-subtitle pipeline.
type Controller struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier Notifier
	recorder Recorder
	launcher Launcher
	exists   func(path string) bool

	tasks   chan func()
	stopped chan struct{}

	// Everything below is owned by the event loop goroutine.
	sessionID   string
	lock        *flock.Flock
	busy        bool
	timers      map[*time.Timer]struct{}
	recognition recognitionState
	queue       queueState
}

type recognitionState struct {
	handle   Handle
	active   bool
	splitter recognize.Splitter
	tracker  recognize.Tracker
}

// Option customizes a Controller.
type Option func(*Controller)

// WithNotifier installs the signal consumer.
func WithNotifier(notifier Notifier) Option {
	return func(c *Controller) {
		if notifier != nil {
			c.notifier = notifier
		}
	}
}

// WithRecorder installs a job-history recorder.
func WithRecorder(recorder Recorder) Option {
	return func(c *Controller) {
		c.recorder = recorder
	}
}

// WithLauncher overrides how subprocesses are started (useful for tests).
func WithLauncher(launcher Launcher) Option {
	return func(c *Controller) {
		if launcher != nil {
			c.launcher = launcher
		}
	}
}

// WithExistenceCheck overrides the subtitle existence probe (useful for tests).
func WithExistenceCheck(exists func(path string) bool) Option {
	return func(c *Controller) {
		if exists != nil {
			c.exists = exists
		}
	}
}

// New constructs a Controller and starts its event loop.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Controller{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		notifier: NopNotifier{},
		launcher: supervisorLauncher{sup: process.New(process.WithTerminateGrace(cfg.TerminateGrace()))},
		exists:   fileutil.PathExists,
		tasks:    make(chan func(), 64),
		stopped:  make(chan struct{}),
		timers:   make(map[*time.Timer]struct{}),
	}
	c.queue.jobIDs = make(map[string]int64)
	c.queue.videoBySubtitle = make(map[string]string)
	for _, opt := range opts {
		opt(c)
	}
	go c.loop()
	return c
}

func (c *Controller) loop() {
	for {
		select {
		case fn := <-c.tasks:
			fn()
		case <-c.stopped:
			return
		}
	}
}

// post queues a mutation onto the event loop. Posts after shutdown are
// dropped.
func (c *Controller) post(fn func()) {
	select {
	case c.tasks <- fn:
	case <-c.stopped:
	}
}

// call posts fn and waits for it to run. It reports false when the
// controller is already shut down.
func (c *Controller) call(fn func()) bool {
	done := make(chan struct{})
	c.post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return true
	case <-c.stopped:
		return false
	}
}

// schedule arms a timer that posts fn back onto the loop. Must be called
// from the loop.
func (c *Controller) schedule(delay time.Duration, fn func()) {
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		c.post(func() {
			delete(c.timers, timer)
			fn()
		})
	})
	c.timers[timer] = struct{}{}
}

func (c *Controller) cancelTimers() {
	for timer := range c.timers {
		timer.Stop()
		delete(c.timers, timer)
	}
}

// Start launches a recognition run over the given videos. Missing files are
// skipped with a log line; a run that is already active is refused.
func (c *Controller) Start(videos []string) error {
	var err error
	if !c.call(func() { err = c.startLocked(videos) }) {
		return services.Wrap(services.ErrConfiguration, "pipeline", "start", "controller is shut down", nil)
	}
	return err
}

func (c *Controller) startLocked(videos []string) error {
	if c.recognition.active {
		return services.Wrap(services.ErrConfiguration, "pipeline", "start", "recognition already running", nil)
	}
	if err := c.cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "start", "prepare state directory", err)
	}
	if err := c.acquireLock(); err != nil {
		return err
	}

	accepted := make([]string, 0, len(videos))
	for _, video := range videos {
		normalized, err := fileutil.NormalizePath(video)
		if err != nil || !c.exists(normalized) {
			c.notifier.Log(fmt.Sprintf("skipping missing input: %s", video))
			c.logger.Warn("skipping missing input", logging.String(logging.FieldVideo, video))
			continue
		}
		accepted = append(accepted, normalized)
	}
	if len(accepted) == 0 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "start", "no usable input videos", nil)
	}

	c.sessionID = uuid.NewString()
	sessionLogger := c.logger.With(logging.String(logging.FieldSessionID, c.sessionID))

	if err := resume.Write(c.cfg.ResumeMarkerPath(), accepted); err != nil {
		sessionLogger.Warn("write resume marker", logging.Error(err))
	}

	args := make([]string, 0, len(accepted)+4+len(c.cfg.Recognition.ExtraArgs))
	if c.cfg.Recognition.Model != "" {
		args = append(args, "--model", c.cfg.Recognition.Model)
	}
	if c.cfg.Recognition.Language != "" {
		args = append(args, "--language", c.cfg.Recognition.Language)
	}
	args = append(args, c.cfg.Recognition.ExtraArgs...)
	args = append(args, accepted...)

	handle, err := c.launcher.Launch(context.Background(), process.Spec{
		Program: c.cfg.Recognition.Binary,
		Args:    args,
		Callbacks: process.Callbacks{
			OnOutput: func(chunk []byte) {
				c.post(func() { c.handleRecognitionChunk(chunk) })
			},
			OnFinished: func(exitCode int, normal bool) {
				c.post(func() { c.handleRecognitionFinished(exitCode, normal) })
			},
			OnError: func(err error) {
				c.post(func() { c.handleRecognitionError(err) })
			},
		},
	})
	if err != nil {
		sessionLogger.Error("launch recognition", logging.Error(err))
		return err
	}

	c.recognition.handle = handle
	c.recognition.active = true
	c.recognition.splitter = recognize.Splitter{}
	c.recognition.tracker.Start(accepted)
	sessionLogger.Info("recognition started",
		logging.Int(logging.FieldTotalCount, len(accepted)),
		logging.String("binary", c.cfg.Recognition.Binary))
	c.recomputeBusy()
	return nil
}

func (c *Controller) acquireLock() error {
	if c.lock != nil {
		return nil
	}
	lock := flock.New(c.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "lock", "acquire run lock", err)
	}
	if !locked {
		return services.Wrap(services.ErrConfiguration, "pipeline", "lock", "another instance is running", nil)
	}
	c.lock = lock
	return nil
}

func (c *Controller) handleRecognitionChunk(chunk []byte) {
	for _, token := range c.recognition.splitter.Feed(chunk) {
		c.handleRecognitionToken(token)
	}
}

func (c *Controller) handleRecognitionToken(token recognize.Token) {
	if token.Kind == recognize.TokenProgress {
		c.notifier.RecognitionProgress(token.Text)
		return
	}
	c.notifier.Log(token.Text)
	video, ok := recognize.ParseMarker(token.Text)
	if !ok {
		return
	}
	completed, had := c.recognition.tracker.ObserveMarker(video)
	if current, ok := c.recognition.tracker.Current(); ok {
		c.logger.Info("recognizing", logging.String(logging.FieldVideo, current))
	}
	if !had {
		return
	}
	c.logger.Info("recognition completed", logging.String(logging.FieldVideo, completed))
	c.schedule(c.cfg.EnqueueDelay(), func() {
		c.enqueueForVideoLocked(completed)
	})
}

func (c *Controller) handleRecognitionFinished(exitCode int, normal bool) {
	c.recognition.handle = nil
	c.recognition.active = false

	for _, token := range c.recognition.splitter.Flush() {
		c.handleRecognitionToken(token)
	}

	if normal && exitCode == 0 {
		c.logger.Info("recognition finished")
	} else if c.isIgnorableExit(exitCode) {
		c.logger.Info("recognition finished with ignorable exit code",
			logging.Int(logging.FieldExitCode, exitCode))
	} else {
		c.notifier.Log(fmt.Sprintf("recognition exited abnormally (code %d)", exitCode))
		c.logger.Error("recognition crashed", logging.Int(logging.FieldExitCode, exitCode))
	}

	c.flushInProgress()
	c.notifier.RecognitionProgress("")
	c.recomputeBusy()
}

func (c *Controller) handleRecognitionError(err error) {
	c.logger.Error("recognition stream error", logging.Error(err))
	c.flushInProgress()
	c.recomputeBusy()
}

// flushInProgress schedules the file the recognition tool was working on for
// translation, through the same enqueue delay as marker-driven completions.
// The tracker guarantees at most one flush per run, so a finish following a
// stream error does not enqueue twice.
func (c *Controller) flushInProgress() {
	if video, ok := c.recognition.tracker.Flush(); ok {
		c.logger.Info("flushing in-progress file", logging.String(logging.FieldVideo, video))
		c.schedule(c.cfg.EnqueueDelay(), func() {
			c.enqueueForVideoLocked(video)
		})
	}
}

func (c *Controller) isIgnorableExit(exitCode int) bool {
	for _, code := range c.cfg.Recognition.IgnorableExitCodes {
		if code == exitCode {
			return true
		}
	}
	return false
}

// EnqueueSubtitles adds subtitle files directly to the translation queue.
func (c *Controller) EnqueueSubtitles(paths []string) {
	c.post(func() {
		for _, path := range paths {
			c.enqueueLocked(path)
		}
	})
}

// EnqueueForVideo enqueues the subtitle the recognition tool is expected to
// produce for the given video.
func (c *Controller) EnqueueForVideo(video string) {
	c.post(func() { c.enqueueForVideoLocked(video) })
}

// Busy reports whether any stage holds work.
func (c *Controller) Busy() bool {
	var busy bool
	c.call(func() { busy = c.busyLocked() })
	return busy
}

func (c *Controller) busyLocked() bool {
	return c.recognition.active ||
		c.queue.running != "" ||
		c.queue.waiting != "" ||
		len(c.queue.pending) > 0
}

// recomputeBusy re-evaluates the busy flag and the idle condition after
// every mutation. BusyChanged fires only on transitions; Idle is checked
// eagerly so a mutation that never flips the flag (a job failing to launch
// while the pipeline was already quiet) still drains to an idle signal.
func (c *Controller) recomputeBusy() {
	busy := c.busyLocked()
	if busy != c.busy {
		c.busy = busy
		c.notifier.BusyChanged(busy)
	}
	if busy {
		return
	}
	if _, inProgress := c.recognition.tracker.Current(); inProgress {
		return
	}
	if c.recognition.tracker.PendingCount() > 0 || len(c.timers) > 0 {
		return
	}
	c.notifier.Idle()
}

// Shutdown stops both subprocesses in order, cancels timers, clears queue
// state, and releases the run lock. It is synchronous and idempotent.
func (c *Controller) Shutdown() {
	c.call(func() {
		if c.recognition.handle != nil {
			c.logger.Info("terminating recognition")
			c.recognition.handle.Terminate()
			c.recognition.handle = nil
			c.recognition.active = false
		}
		if c.queue.handle != nil {
			c.logger.Info("terminating translation")
			c.queue.handle.Terminate()
			c.queue.handle = nil
		}
		c.cancelTimers()
		c.queue.pending = nil
		c.queue.waiting = ""
		c.queue.running = ""
		c.queue.waitAttempt = 0
		c.recognition.tracker = recognize.Tracker{}
		c.notifier.RecognitionProgress("")
		c.notifier.TranslationProgress(0, 0)
		c.recomputeBusy()
		if c.lock != nil {
			if err := c.lock.Unlock(); err != nil {
				c.logger.Warn("release run lock", logging.Error(err))
			}
			c.lock = nil
		}
		close(c.stopped)
	})
}

// translatorCommand resolves the translation subprocess program and args.
func (c *Controller) translatorCommand(subtitle string) (string, []string, error) {
	if binary := c.cfg.Translator.Binary; binary != "" {
		return binary, []string{subtitle}, nil
	}
	self, err := os.Executable()
	if err != nil {
		return "", nil, fmt.Errorf("resolve own executable: %w", err)
	}
	return self, []string{"translate", subtitle}, nil
}

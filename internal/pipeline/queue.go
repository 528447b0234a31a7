package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"subflow/internal/fileutil"
	"subflow/internal/history"
	"subflow/internal/logging"
	"subflow/internal/process"
	"subflow/internal/resume"
	"subflow/internal/services"
)

// queueState holds the translation queue. One job at a time moves through
// Queued -> Waiting -> Running; every field is owned by the event loop.
type queueState struct {
	pending     []string
	waiting     string
	waitAttempt int
	running     string
	handle      Handle
	lineBuf     []byte

	// jobIDs maps subtitle paths to their history record ids.
	jobIDs map[string]int64
	// videoBySubtitle resolves a finished subtitle back to its video.
	videoBySubtitle map[string]string
}

// enqueueForVideoLocked maps a video to its expected subtitle sibling and
// enqueues it. Both paths are normalized first so the completion lookup and
// the queue agree on a key even for un-clean caller-supplied paths.
func (c *Controller) enqueueForVideoLocked(video string) {
	normalized, err := fileutil.NormalizePath(video)
	if err != nil {
		c.logger.Warn("rejecting unusable video path",
			logging.String(logging.FieldVideo, video), logging.Error(err))
		return
	}
	subtitle := fileutil.SubtitlePathFor(normalized)
	c.queue.videoBySubtitle[subtitle] = normalized
	c.enqueueLocked(subtitle)
}

// enqueueLocked adds a subtitle to the queue unless it is already queued,
// waiting, or running.
func (c *Controller) enqueueLocked(path string) {
	normalized, err := fileutil.NormalizePath(path)
	if err != nil {
		c.logger.Warn("rejecting unusable queue entry",
			logging.String(logging.FieldSubtitle, path), logging.Error(err))
		return
	}
	if normalized == c.queue.waiting || normalized == c.queue.running {
		return
	}
	for _, queued := range c.queue.pending {
		if queued == normalized {
			return
		}
	}

	c.queue.pending = append(c.queue.pending, normalized)
	c.recordJob(normalized, history.StatusQueued, "")
	c.logger.Info("queued for translation",
		logging.String(logging.FieldSubtitle, normalized),
		logging.Int(logging.FieldQueueDepth, len(c.queue.pending)))
	c.startNextLocked()
	c.recomputeBusy()
}

// startNextLocked promotes the queue head into the waiting slot. A job that
// is already waiting or running keeps the queue serialized.
func (c *Controller) startNextLocked() {
	if c.queue.waiting != "" || c.queue.running != "" {
		return
	}
	if len(c.queue.pending) == 0 {
		return
	}
	c.queue.waiting = c.queue.pending[0]
	c.queue.pending = c.queue.pending[1:]
	c.queue.waitAttempt = 0
	c.setJobStatus(c.queue.waiting, history.StatusWaiting, "")
	c.checkWaitingLocked()
}

// checkWaitingLocked polls for the waiting subtitle. The first check runs
// immediately; WaitAttempts bounds the total number of checks.
func (c *Controller) checkWaitingLocked() {
	if c.queue.waiting == "" {
		return
	}
	c.queue.waitAttempt++

	if c.exists(c.queue.waiting) {
		subtitle := c.queue.waiting
		c.queue.waiting = ""
		c.startJobLocked(subtitle)
		return
	}

	if c.queue.waitAttempt >= c.cfg.Workflow.WaitAttempts {
		subtitle := c.queue.waiting
		c.queue.waiting = ""
		c.notifier.Log(fmt.Sprintf("subtitle never appeared, skipping: %s", subtitle))
		c.logger.Warn("subtitle never appeared",
			logging.String(logging.FieldSubtitle, subtitle),
			logging.Int(logging.FieldAttempt, c.queue.waitAttempt))
		c.setJobStatus(subtitle, history.StatusSkipped, "subtitle file never appeared")
		delete(c.queue.videoBySubtitle, subtitle)
		c.startNextLocked()
		c.recomputeBusy()
		return
	}

	c.schedule(c.cfg.WaitInterval(), c.checkWaitingLocked)
}

func (c *Controller) startJobLocked(subtitle string) {
	program, args, err := c.translatorCommand(subtitle)
	if err != nil {
		c.failJobLocked(subtitle, err)
		return
	}

	handle, err := c.launcher.Launch(context.Background(), process.Spec{
		Program: program,
		Args:    args,
		Callbacks: process.Callbacks{
			OnOutput: func(chunk []byte) {
				c.post(func() { c.handleTranslationChunk(chunk) })
			},
			OnFinished: func(exitCode int, normal bool) {
				c.post(func() { c.handleTranslationFinished(exitCode, normal) })
			},
			OnError: func(err error) {
				c.post(func() {
					c.logger.Error("translation stream error", logging.Error(err))
				})
			},
		},
	})
	if err != nil {
		c.failJobLocked(subtitle, services.Wrap(services.ErrLaunch, "pipeline", "translate", subtitle, err))
		return
	}

	c.queue.running = subtitle
	c.queue.handle = handle
	c.queue.lineBuf = nil
	c.setJobStatus(subtitle, history.StatusRunning, "")
	c.logger.Info("translation started", logging.String(logging.FieldSubtitle, subtitle))
	c.recomputeBusy()
}

// failJobLocked records a job that never started and moves on.
func (c *Controller) failJobLocked(subtitle string, err error) {
	c.notifier.Log(fmt.Sprintf("translation failed to start for %s: %v", subtitle, err))
	c.logger.Error("translation launch failed",
		logging.String(logging.FieldSubtitle, subtitle), logging.Error(err))
	c.setJobStatus(subtitle, history.StatusFailed, err.Error())
	delete(c.queue.videoBySubtitle, subtitle)
	c.startNextLocked()
	c.recomputeBusy()
}

// handleTranslationChunk splits subprocess stdout into lines and routes
// progress lines to the progress signal.
func (c *Controller) handleTranslationChunk(chunk []byte) {
	c.queue.lineBuf = append(c.queue.lineBuf, chunk...)
	for {
		idx := bytes.IndexByte(c.queue.lineBuf, '\n')
		if idx < 0 {
			return
		}
		line := strings.TrimRight(string(c.queue.lineBuf[:idx]), "\r")
		c.queue.lineBuf = c.queue.lineBuf[idx+1:]
		c.handleTranslationLine(line)
	}
}

func (c *Controller) handleTranslationLine(line string) {
	if done, total, ok := ParseProgress(line); ok {
		c.notifier.TranslationProgress(done, total)
		return
	}
	if strings.TrimSpace(line) == "" {
		return
	}
	c.notifier.TranslationLog(line)
}

func (c *Controller) handleTranslationFinished(exitCode int, normal bool) {
	subtitle := c.queue.running
	c.queue.running = ""
	c.queue.handle = nil
	c.queue.lineBuf = nil
	if subtitle == "" {
		return
	}

	if normal && exitCode == 0 {
		c.completeJobLocked(subtitle)
	} else {
		message := fmt.Sprintf("translation exited abnormally (code %d)", exitCode)
		c.notifier.Log(fmt.Sprintf("%s: %s", message, subtitle))
		c.logger.Error("translation failed",
			logging.String(logging.FieldSubtitle, subtitle),
			logging.Int(logging.FieldExitCode, exitCode))
		c.setJobStatus(subtitle, history.StatusFailed, message)
		delete(c.queue.videoBySubtitle, subtitle)
	}

	c.notifier.TranslationProgress(0, 0)
	c.startNextLocked()
	c.recomputeBusy()
}

func (c *Controller) completeJobLocked(subtitle string) {
	c.setJobStatus(subtitle, history.StatusCompleted, "")
	c.logger.Info("translation completed", logging.String(logging.FieldSubtitle, subtitle))

	video, ok := c.queue.videoBySubtitle[subtitle]
	if !ok {
		return
	}
	delete(c.queue.videoBySubtitle, subtitle)
	c.notifier.FileCompleted(video)
	if err := resume.Prune(c.cfg.ResumeMarkerPath(), video); err != nil {
		c.logger.Warn("prune resume marker", logging.Error(err))
	}
}

func (c *Controller) recordJob(subtitle string, status history.Status, message string) {
	if c.recorder == nil {
		return
	}
	video := c.queue.videoBySubtitle[subtitle]
	id, err := c.recorder.Add(context.Background(), c.sessionID, video, subtitle, status)
	if err != nil {
		c.logger.Warn("record history job", logging.Error(err))
		return
	}
	c.queue.jobIDs[subtitle] = id
	if message != "" {
		c.setJobStatus(subtitle, status, message)
	}
}

func (c *Controller) setJobStatus(subtitle string, status history.Status, message string) {
	if c.recorder == nil {
		return
	}
	id, ok := c.queue.jobIDs[subtitle]
	if !ok {
		return
	}
	if status == history.StatusCompleted || status == history.StatusFailed || status == history.StatusSkipped {
		delete(c.queue.jobIDs, subtitle)
	}
	if err := c.recorder.SetStatus(context.Background(), id, status, message); err != nil {
		c.logger.Warn("update history job", logging.Error(err))
	}
}

// ParseProgress decodes a "[PROGRESS] done/total" line of the translation
// subprocess protocol.
func ParseProgress(line string) (done, total int, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(line), "[PROGRESS] ")
	if !found {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(rest, "%d/%d", &done, &total); err != nil {
		return 0, 0, false
	}
	return done, total, true
}

// FormatProgress renders a progress line for the subprocess protocol.
func FormatProgress(done, total int) string {
	return fmt.Sprintf("[PROGRESS] %d/%d", done, total)
}

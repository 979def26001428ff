package runner

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"profilesync/pkg/audit"
	"profilesync/pkg/config"
	"profilesync/pkg/engine"
	"profilesync/pkg/logger"
	"profilesync/pkg/profile"
	"profilesync/pkg/targets"
	"profilesync/pkg/ui"
)

// batchPause is how long the runner idles between batches
const batchPause = 5 * time.Second

// remarkFieldLimit caps how many changed field names a queue remark lists
const remarkFieldLimit = 5

// Source yields the targets a run should process
type Source interface {
	Pending() ([]targets.Target, error)
}

// StatusUpdater writes target status transitions back to the queue tab
type StatusUpdater interface {
	MarkProcessing(t targets.Target) error
	MarkCompleted(t targets.Target, note string) error
	MarkFailed(t targets.Target, reason string) error
}

// ProfileFetcher retrieves raw profile data for one nickname
type ProfileFetcher interface {
	Fetch(nickname string) (map[string]string, error)
	ResetSession(username, password string) error
}

// MetricsSink records the end-of-run dashboard row
type MetricsSink interface {
	LogChange(identity string, kind audit.ChangeKind, changedFields []string, before, after map[string]string)
	RecordRun(m audit.RunMetrics) error
}

// Runner drives one synchronization run: fetch, reconcile, report, one
// record at a time. It owns the pacing between records; the fetch and
// write layers own their own rate limits.
type Runner struct {
	cfg     *config.Config
	fetcher ProfileFetcher
	engine  *engine.SyncContext
	sink    MetricsSink
	queue   StatusUpdater
	tags    map[string]string
	logger  logger.Logger
	sleep   func(time.Duration)
	jitter  func(min, max time.Duration) time.Duration
}

// New creates a runner. queue may be nil when the source has no status
// side channel (the online sweep).
func New(cfg *config.Config, fetcher ProfileFetcher, eng *engine.SyncContext, sink MetricsSink, queue StatusUpdater, tags map[string]string, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	if tags == nil {
		tags = map[string]string{}
	}
	return &Runner{
		cfg:     cfg,
		fetcher: fetcher,
		engine:  eng,
		sink:    sink,
		queue:   queue,
		tags:    tags,
		logger:  log,
		sleep:   time.Sleep,
		jitter:  randomDelay,
	}
}

// Result summarizes one completed run
type Result struct {
	Processed int
	Success   int
	Failed    int
	New       int
	Updated   int
	Unchanged int
}

// Run processes every pending target from the source. Cancellation stops
// the run between records; the record in flight always completes. The
// dashboard row is written even for a cancelled or empty run.
func (r *Runner) Run(ctx context.Context, source Source, mode string) (Result, error) {
	pending, err := source.Pending()
	if err != nil {
		return Result{}, fmt.Errorf("collecting targets: %w", err)
	}

	var result Result
	if len(pending) == 0 {
		ui.PrintWarning("no pending targets found")
		r.logger.WithField("mode", mode).Info("nothing to process")
		return result, r.recordRun(result)
	}

	ui.PrintInfo("mode", mode)
	ui.PrintInfo("targets", fmt.Sprintf("%d", len(pending)))
	r.logger.WithField("mode", mode).WithField("count", len(pending)).Info("run started")

	tracker := ui.NewRunTracker(len(pending))

	for i, target := range pending {
		if ctx.Err() != nil {
			ui.PrintWarning("interrupted, stopping before next record")
			break
		}

		tracker.PrintRecord(i+1, target.Nickname, target.Source)
		r.markProcessing(target)

		outcome := r.processOne(target)
		result.Processed++

		switch outcome.Kind {
		case engine.OutcomeNew:
			result.Success++
			result.New++
			tracker.RecordSuccess()
			r.markCompleted(target, "New profile added")
		case engine.OutcomeUpdated:
			result.Success++
			result.Updated++
			tracker.RecordSuccess()
			r.markCompleted(target, updateRemark(outcome.ChangedFields))
		case engine.OutcomeUnchanged:
			result.Success++
			result.Unchanged++
			tracker.RecordSuccess()
			r.markCompleted(target, "No data changes")
		default:
			result.Failed++
			tracker.RecordFailure()
			reason := "processing failed"
			if outcome.Err != nil {
				reason = outcome.Err.Error()
			}
			r.markFailed(target, reason)
			ui.PrintError("failed: " + target.Nickname)
		}

		logger.LogSyncProgress(mode, result.Processed, len(pending))

		if i == len(pending)-1 {
			break
		}
		if r.cfg.Sync.BatchSize > 0 && (i+1)%r.cfg.Sync.BatchSize == 0 {
			r.logger.WithField("processed", i+1).Info("batch pause")
			r.sleep(batchPause)
		}
		r.sleep(r.jitter(r.cfg.Sync.MinDelay, r.cfg.Sync.MaxDelay))
	}

	r.printSummary(tracker, result)
	return result, r.recordRun(result)
}

// processOne fetches, normalizes, and reconciles a single target. A fetch
// error gets one retry behind a session reset before the record is
// declared failed.
func (r *Runner) processOne(target targets.Target) engine.Outcome {
	raw, err := r.fetcher.Fetch(target.Nickname)
	if err != nil {
		r.logger.WithError(err).WithField("nickname", target.Nickname).Warn("fetch failed, resetting session")
		if resetErr := r.fetcher.ResetSession(r.cfg.Site.Username, r.cfg.Site.Password); resetErr == nil {
			raw, err = r.fetcher.Fetch(target.Nickname)
		}
	}
	if err != nil {
		r.sink.LogChange(target.Nickname, audit.ChangeFailed, nil, map[string]string{},
			map[string]string{"error": err.Error()})
		return engine.Outcome{Kind: engine.OutcomeFailed, Identity: target.Nickname, Err: err}
	}

	raw[profile.FieldSource] = target.Source
	if tags, ok := r.tags[strings.ToLower(target.Nickname)]; ok {
		raw[profile.FieldTags] = tags
	}

	rec, err := profile.NewRecord(raw, profile.Now())
	if err != nil {
		r.sink.LogChange(target.Nickname, audit.ChangeFailed, nil, map[string]string{},
			map[string]string{"error": err.Error()})
		return engine.Outcome{Kind: engine.OutcomeFailed, Identity: target.Nickname, Err: err}
	}

	return r.engine.Reconcile(rec)
}

func (r *Runner) markProcessing(target targets.Target) {
	if r.queue == nil {
		return
	}
	if err := r.queue.MarkProcessing(target); err != nil {
		r.logger.WithError(err).WithField("nickname", target.Nickname).Warn("status update failed")
	}
}

func (r *Runner) markCompleted(target targets.Target, detail string) {
	if r.queue == nil {
		return
	}
	note := fmt.Sprintf("%s @ %s", detail, profile.Now().Format("03:04 PM"))
	if err := r.queue.MarkCompleted(target, note); err != nil {
		r.logger.WithError(err).WithField("nickname", target.Nickname).Warn("status update failed")
	}
}

func (r *Runner) markFailed(target targets.Target, reason string) {
	if r.queue == nil {
		return
	}
	note := fmt.Sprintf("Error: %s @ %s", reason, profile.Now().Format("03:04 PM"))
	if err := r.queue.MarkFailed(target, note); err != nil {
		r.logger.WithError(err).WithField("nickname", target.Nickname).Warn("status update failed")
	}
}

func (r *Runner) recordRun(result Result) error {
	err := r.sink.RecordRun(audit.RunMetrics{
		Processed: result.Processed,
		Success:   result.Success,
		Failed:    result.Failed,
		New:       result.New,
		Updated:   result.Updated,
		Unchanged: result.Unchanged,
	})
	if err != nil {
		r.logger.WithError(err).Warn("dashboard update failed")
	}
	return nil
}

func (r *Runner) printSummary(tracker *ui.RunTracker, result Result) {
	ui.PrintSuccess("run complete")
	ui.PrintInfo("success", fmt.Sprintf("%d", result.Success))
	ui.PrintInfo("failed", fmt.Sprintf("%d", result.Failed))
	if result.Processed > 0 {
		ui.PrintInfo("success rate", fmt.Sprintf("%.1f%%", tracker.SuccessRate()))
	}
	ui.PrintInfo("new", fmt.Sprintf("%d", result.New))
	ui.PrintInfo("updated", fmt.Sprintf("%d", result.Updated))
	ui.PrintInfo("unchanged", fmt.Sprintf("%d", result.Unchanged))
	ui.PrintInfo("elapsed", tracker.Elapsed().Round(time.Second).String())

	r.logger.WithFields(map[string]interface{}{
		"processed": result.Processed,
		"success":   result.Success,
		"failed":    result.Failed,
		"new":       result.New,
		"updated":   result.Updated,
		"unchanged": result.Unchanged,
	}).Info("run finished")
}

// updateRemark summarizes which fields changed, capped so remark cells
// stay readable
func updateRemark(changed []string) string {
	if len(changed) == 0 {
		return "Updated (no key changes)"
	}
	listed := changed
	suffix := ""
	if len(listed) > remarkFieldLimit {
		listed = listed[:remarkFieldLimit]
		suffix = ", …"
	}
	return "Updated: " + strings.Join(listed, ", ") + suffix
}

func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

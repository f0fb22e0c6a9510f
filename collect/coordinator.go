package collect

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/viktsys/stockcollect/models"
)

// RunStatus aggregates collector results into one verdict for the run.
type RunStatus string

const (
	RunCompleted      RunStatus = "completed"
	RunPartialFailure RunStatus = "partial_failure"
	RunFailed         RunStatus = "failed"
)

// Result is the outcome of one collector within a run.
type Result struct {
	Entity  EntityType
	Status  string // models.LogStatus*
	Stats   Stats
	Err     error
	Elapsed time.Duration
}

// Outcome summarizes a whole run.
type Outcome struct {
	RunID   string
	Status  RunStatus
	Results []Result
}

// Records sums the records committed across all collectors.
func (o Outcome) Records() int64 {
	var n int64
	for _, r := range o.Results {
		n += r.Stats.Records
	}
	return n
}

// ExitCode maps the run verdict to a process exit code so schedulers can
// distinguish a partial run from a total failure.
func (o Outcome) ExitCode() int {
	switch o.Status {
	case RunCompleted:
		return 0
	case RunPartialFailure:
		return 2
	default:
		return 1
	}
}

// Coordinator runs collectors sequentially and writes one collection log
// row per collector. One collector failing never stops the others.
type Coordinator struct {
	conn       ConnProvider
	collectors []Collector
	log        *logrus.Logger
	newRunID   func() string
	now        func() time.Time
}

func NewCoordinator(conn ConnProvider, collectors []Collector, log *logrus.Logger) *Coordinator {
	return &Coordinator{
		conn:       conn,
		collectors: collectors,
		log:        log,
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
}

// Run executes every collector in order. It only returns an error when the
// run could not start at all (no database); collector failures are folded
// into the Outcome.
func (c *Coordinator) Run(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{RunID: c.newRunID()}

	log := c.log.WithFields(logrus.Fields{"run_id": out.RunID, "mode": req.Mode})
	log.WithField("collectors", len(c.collectors)).Info("collection run starting")

	for _, col := range c.collectors {
		res := c.runOne(ctx, log, col, out.RunID, req)
		out.Results = append(out.Results, res)

		if ctx.Err() != nil {
			break
		}
	}

	out.Status = aggregate(out.Results)
	log.WithFields(logrus.Fields{
		"status":  out.Status,
		"records": out.Records(),
	}).Info("collection run finished")
	return out, nil
}

func (c *Coordinator) runOne(ctx context.Context, log *logrus.Entry, col Collector, runID string, req Request) Result {
	entity := col.Entity()
	started := c.now()
	entry := &models.CollectionLog{
		RunID:      runID,
		EntityType: string(entity),
		Status:     models.LogStatusRunning,
		StartedAt:  started,
	}
	c.persistLog(ctx, entry)

	log.WithField("entity", entity).Info("collector starting")
	stats, err := col.Collect(ctx, req)
	elapsed := c.now().Sub(started)

	status := models.LogStatusSuccess
	switch {
	case err != nil:
		status = models.LogStatusFailed
		log.WithError(err).WithField("entity", entity).Error("collector failed")
	case stats.SymbolsFailed > 0:
		status = models.LogStatusPartial
		log.WithFields(logrus.Fields{
			"entity":  entity,
			"failed":  stats.SymbolsFailed,
			"records": stats.Records,
		}).Warn("collector finished with failed symbols")
	default:
		log.WithFields(logrus.Fields{
			"entity":  entity,
			"records": stats.Records,
			"skipped": stats.SymbolsSkipped,
			"elapsed": elapsed.Round(time.Millisecond).String(),
		}).Info("collector finished")
	}

	finished := started.Add(elapsed)
	entry.Status = status
	entry.Records = stats.Records
	entry.FinishedAt = &finished
	if err != nil {
		entry.Error = err.Error()
	}
	c.persistLog(ctx, entry)

	return Result{Entity: entity, Status: status, Stats: stats, Err: err, Elapsed: elapsed}
}

// persistLog writes the collection log row best-effort: losing a log row
// must never fail a run that collected data.
func (c *Coordinator) persistLog(ctx context.Context, entry *models.CollectionLog) {
	db, err := c.conn.Acquire(ctx)
	if err == nil {
		err = db.WithContext(ctx).Save(entry).Error
	}
	if err != nil {
		c.log.WithError(err).Warn("could not persist collection log entry")
	}
}

// aggregate folds per-collector statuses into the run verdict: completed
// only when every collector fully succeeded, failed only when every
// collector failed outright, partial otherwise.
func aggregate(results []Result) RunStatus {
	if len(results) == 0 {
		return RunFailed
	}
	success, failed := 0, 0
	for _, r := range results {
		switch r.Status {
		case models.LogStatusSuccess:
			success++
		case models.LogStatusFailed:
			failed++
		}
	}
	switch {
	case success == len(results):
		return RunCompleted
	case failed == len(results):
		return RunFailed
	default:
		return RunPartialFailure
	}
}

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/karloscodes/cartridge"

	"soundpulse/internal/catalog"
	"soundpulse/internal/config"
	"soundpulse/internal/pkg/async"
	"soundpulse/internal/pkg/metrics"
	"soundpulse/internal/scoring"
	"soundpulse/internal/timerange"
)

// JobStatus is the lifecycle state of a batch recalculation job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// RecalcJob tracks one batch recalculation run.
type RecalcJob struct {
	ID         string    `json:"id"`
	TimeRange  string    `json:"time_range"`
	Status     JobStatus `json:"status"`
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Coordinator runs batch score recalculations. At most one job runs
// per time range: a trigger while one is in flight returns the running
// job instead of starting a second run over the same keys.
type Coordinator struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	cfg       *config.Config
	service   *scoring.Service

	mu     sync.Mutex
	jobs   map[string]*RecalcJob // by job ID
	active map[string]*RecalcJob // by time range, queued or running only
}

// NewCoordinator creates a coordinator using the configured worker
// count and scoring engine.
func NewCoordinator(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config) *Coordinator {
	engine := scoring.NewEngine(cfg.ScoreWeights, cfg.ScoreScales, cfg.ScoreCategories)
	return &Coordinator{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
		service:   scoring.NewService(dbManager.GetConnection(), logger, engine),
		jobs:      make(map[string]*RecalcJob),
		active:    make(map[string]*RecalcJob),
	}
}

// Trigger accepts a recalculation for a range token and runs it in the
// background. Returns the job and whether a new run was started; a
// false second value means the returned job was already in flight for
// the same range.
func (c *Coordinator) Trigger(timeRangeToken string) (RecalcJob, bool) {
	rng := timerange.ResolveNow(timeRangeToken)
	key := string(rng.Token)

	c.mu.Lock()
	if inflight, ok := c.active[key]; ok {
		snapshot := *inflight
		c.mu.Unlock()
		metrics.RecalcRuns.WithLabelValues("deduplicated").Inc()
		c.logger.Info("Recalculation already in flight, returning existing job",
			slog.String("time_range", key), slog.String("job_id", snapshot.ID))
		return snapshot, false
	}

	job := &RecalcJob{
		ID:        uuid.NewString(),
		TimeRange: key,
		Status:    JobQueued,
		StartedAt: time.Now().UTC(),
	}
	c.jobs[job.ID] = job
	c.active[key] = job
	snapshot := *job
	c.mu.Unlock()

	go c.run(job, rng)
	return snapshot, true
}

// GetJob returns a snapshot of a job by ID.
func (c *Coordinator) GetJob(jobID string) (RecalcJob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.jobs[jobID]
	if !ok {
		return RecalcJob{}, false
	}
	return *job, true
}

// Run executes a recalculation synchronously for the given range.
// Used by the scheduler's periodic refresh; HTTP triggers go through
// Trigger instead.
func (c *Coordinator) Run(timeRangeToken string) error {
	job, started := c.Trigger(timeRangeToken)
	if !started {
		return nil
	}
	// Poll until the background run settles. Intervals are short; the
	// scheduler serializes jobs anyway.
	for {
		snapshot, ok := c.GetJob(job.ID)
		if !ok {
			return nil
		}
		switch snapshot.Status {
		case JobCompleted:
			return nil
		case JobFailed:
			return fmt.Errorf("recalculation for %s failed: %s", snapshot.TimeRange, snapshot.Error)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (c *Coordinator) run(job *RecalcJob, rng timerange.Range) {
	defer func() {
		if r := recover(); r != nil {
			c.fail(job, fmt.Sprintf("panic: %v", r))
		}
		c.mu.Lock()
		delete(c.active, job.TimeRange)
		c.mu.Unlock()
	}()

	c.setStatus(job, JobRunning)
	c.logger.Info("Starting batch score recalculation",
		slog.String("job_id", job.ID), slog.String("time_range", job.TimeRange))

	db := c.dbManager.GetConnection()
	artists, err := catalog.GetScorableArtists(db)
	if err != nil {
		c.fail(job, err.Error())
		return
	}

	c.mu.Lock()
	job.Total = len(artists)
	c.mu.Unlock()

	// Phase one: gather each artist's signals with bounded fan-out so
	// the stores aren't hammered by the whole population at once.
	pool := async.NewPool(c.cfg.RecalcWorkerCount)
	tasks := make([]async.Task, 0, len(artists))
	for _, artist := range artists {
		artist := artist
		tasks = append(tasks, async.Task{
			Name: fmt.Sprintf("artist-%d", artist.ID),
			Execute: func() (interface{}, error) {
				return c.service.BuildInputs(artist, rng, 0)
			},
		})
	}
	results := pool.Execute(context.Background(), tasks)

	inputs := make([]scoring.Inputs, 0, len(results))
	for name, result := range results {
		if result.Err != nil {
			c.fail(job, fmt.Sprintf("%s: %v", name, result.Err))
			return
		}
		inputs = append(inputs, result.Data.(scoring.Inputs))
	}

	// Phase two: market position needs the whole population's play
	// volumes, then each score persists as a single atomic upsert.
	scoring.ApplyPlayPercentiles(inputs)

	calculatedAt := time.Now().UTC()
	for _, in := range inputs {
		score := c.service.Engine().Score(in)
		if err := scoring.SaveScore(db, score, job.TimeRange, calculatedAt); err != nil {
			c.fail(job, err.Error())
			return
		}
		metrics.ArtistsScored.Inc()
		c.mu.Lock()
		job.Processed++
		c.mu.Unlock()
	}

	c.mu.Lock()
	job.Status = JobCompleted
	job.FinishedAt = time.Now().UTC()
	processed := job.Processed
	c.mu.Unlock()

	metrics.RecalcRuns.WithLabelValues("completed").Inc()
	c.logger.Info("Batch score recalculation completed",
		slog.String("job_id", job.ID),
		slog.String("time_range", job.TimeRange),
		slog.Int("artists", processed))
}

func (c *Coordinator) setStatus(job *RecalcJob, status JobStatus) {
	c.mu.Lock()
	job.Status = status
	c.mu.Unlock()
}

func (c *Coordinator) fail(job *RecalcJob, msg string) {
	c.mu.Lock()
	if job.Status == JobFailed {
		c.mu.Unlock()
		return
	}
	job.Status = JobFailed
	job.Error = msg
	job.FinishedAt = time.Now().UTC()
	c.mu.Unlock()

	metrics.RecalcRuns.WithLabelValues("failed").Inc()
	c.logger.Error("Batch score recalculation failed",
		slog.String("job_id", job.ID),
		slog.String("time_range", job.TimeRange),
		slog.String("error", msg))
}

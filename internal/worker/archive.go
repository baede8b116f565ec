// Package worker implements the buffered worker pool that archives the
// full event firehose to ClickHouse. The analysis pipeline persists only
// interesting events to the key-value store; everything else would be lost
// for offline analytics without this sink. The pool decouples request
// handling from ClickHouse writes:
// - Backpressure handling via load shedding
// - Batch inserts for efficient ClickHouse writes
// - Graceful shutdown with flush guarantees
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/rustcentral/behavior-api/internal/models"
)

// Prometheus metrics
var (
	eventsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "behavior_events_archived_total",
		Help: "Total number of events written to the ClickHouse archive",
	})

	archiveFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "behavior_archive_failed_total",
		Help: "Total number of events that failed archival",
	})

	archiveQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "behavior_archive_queue_depth",
		Help: "Current depth of the archive queue",
	})

	archiveInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "behavior_archive_insert_duration_seconds",
		Help:    "Duration of batch inserts to ClickHouse",
		Buckets: prometheus.DefBuckets,
	})

	eventsLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "behavior_events_load_shed_total",
		Help: "Total number of events dropped due to load shedding",
	})
)

const insertRawEvents = `
	INSERT INTO behavior.raw_events (
		received_at, event_time, owner, player_id, event_id, session_id,
		action_type, interesting, reason, metadata
	)
`

// Job represents a unit of work for the worker pool
type Job struct {
	Event      *models.TelemetryEvent
	ReceivedAt time.Time
}

// PoolConfig configures the archive worker pool
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	ClickHouse    driver.Conn
	Logger        *zap.Logger
}

// Pool manages a pool of workers that batch-insert events into ClickHouse.
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
}

// NewPool creates a new archive pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Archive pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop gracefully shuts down the pool, flushing queued events. The queue
// is closed before the context is cancelled so workers always drain it;
// cancelling first would race the workers' select and could drop queued
// jobs.
func (p *Pool) Stop() {
	p.logger.Info("Stopping archive pool...")
	close(p.jobQueue)
	p.wg.Wait()
	p.cancel()
	p.logger.Info("Archive pool stopped")
}

// Enqueue adds an event to the queue. A full queue sheds the event rather
// than blocking the ingest path on ClickHouse health.
func (p *Pool) Enqueue(evt *models.TelemetryEvent) bool {
	job := Job{Event: evt, ReceivedAt: time.Now()}

	// Protect against sending on closed channel
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue event (pool stopped)", "error", r)
		}
	}()

	select {
	case p.jobQueue <- job:
		return true
	default:
		eventsLoadShed.Inc()
		return false
	}
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// worker processes jobs from the queue in batches
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]Job, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		start := time.Now()
		if err := p.insertBatch(batch); err != nil {
			p.logger.Errorw("Archive batch failed",
				"worker", id,
				"batchSize", len(batch),
				"error", err,
			)
			archiveFailed.Add(float64(len(batch)))
		} else {
			eventsArchived.Add(float64(len(batch)))
		}
		archiveInsertDuration.Observe(time.Since(start).Seconds())

		batch = batch[:0]
	}

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}

			batch = append(batch, job)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-p.ctx.Done():
			// External cancellation. Drain whatever is already queued
			// before exiting; new enqueues are shed once the queue closes.
			for {
				select {
				case job, ok := <-p.jobQueue:
					if !ok {
						flush()
						return
					}
					batch = append(batch, job)
					if len(batch) >= p.config.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// insertBatch writes one batch to ClickHouse.
func (p *Pool) insertBatch(batch []Job) error {
	ctx := context.Background()

	chBatch, err := p.config.ClickHouse.PrepareBatch(ctx, insertRawEvents)
	if err != nil {
		return err
	}

	for _, job := range batch {
		evt := job.Event
		err := chBatch.Append(
			job.ReceivedAt,
			time.UnixMilli(evt.Timestamp),
			evt.Owner,
			evt.PlayerID,
			evt.EventID,
			evt.SessionID,
			string(evt.ActionType),
			evt.Interesting,
			evt.InterestingReason,
			evt.Metadata.Encode(),
		)
		if err != nil {
			p.logger.Warnw("Failed to append event to archive batch", "error", err, "actionType", evt.ActionType)
			continue
		}
	}

	return chBatch.Send()
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			archiveQueueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}

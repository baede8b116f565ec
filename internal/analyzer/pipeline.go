package analyzer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustcentral/behavior-api/internal/config"
	"github.com/rustcentral/behavior-api/internal/models"
	"github.com/rustcentral/behavior-api/internal/store"
)

// Prometheus metrics
var (
	eventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "behavior_events_received_total",
		Help: "Total number of telemetry events received",
	})

	eventsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "behavior_events_stored_total",
		Help: "Total number of interesting events persisted",
	})

	eventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "behavior_events_skipped_total",
		Help: "Total number of routine events not persisted",
	})

	detectionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "behavior_detections_created_total",
		Help: "Total number of anomaly detections persisted",
	})

	playerUpdatesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "behavior_player_updates_failed_total",
		Help: "Total number of per-player state updates skipped due to store errors",
	})

	tenantMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "behavior_tenant_mismatch_total",
		Help: "Total number of events whose owner differed from the batch tenant",
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "behavior_batch_duration_seconds",
		Help:    "Duration of batch pipeline runs",
		Buckets: prometheus.DefBuckets,
	})
)

// Archiver receives every accepted event for asynchronous analytics
// archival, independent of the interestingness filter.
type Archiver interface {
	Enqueue(evt *models.TelemetryEvent) bool
}

// Summary carries the per-request counters for the response.
type Summary struct {
	EventsReceived    int
	EventsStored      int
	EventsSkipped     int
	PlayersUpdated    int
	DetectionsCreated int
}

// Pipeline runs one request batch end to end: partition by player, merge
// features, persist player state, detect anomalies, persist interesting
// events and detections.
type Pipeline struct {
	cfg     *config.Config
	store   store.Store
	archive Archiver // optional
	logger  *zap.SugaredLogger

	// now is swappable for tests.
	now func() time.Time
}

func NewPipeline(cfg *config.Config, st store.Store, archive Archiver, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   st,
		archive: archive,
		logger:  logger.Sugar(),
		now:     time.Now,
	}
}

// Process runs the batch pipeline. Per-event and per-player problems are
// recovered locally; a returned error means the request as a whole failed.
func (p *Pipeline) Process(ctx context.Context, events []*models.TelemetryEvent) (Summary, error) {
	start := p.now()
	defer func() {
		batchDuration.Observe(time.Since(start).Seconds())
	}()

	// The decoder drops null entries, but Process is callable directly;
	// never dereference a nil event.
	n := 0
	for _, evt := range events {
		if evt != nil {
			events[n] = evt
			n++
		}
	}
	events = events[:n]

	summary := Summary{EventsReceived: len(events)}
	if len(events) == 0 {
		return summary, nil
	}
	eventsReceived.Add(float64(len(events)))

	nowMs := start.UnixMilli()

	// The batch tenant is the first event's owner. Stray owners on later
	// events are coerced to the batch tenant (every key is derived from
	// it), so cross-tenant writes cannot happen; the coercion is counted.
	owner := events[0].Owner
	if owner == "" {
		owner = "unknown"
	}

	for _, evt := range events {
		if evt.PlayerID == "" {
			evt.PlayerID = "unknown"
		}
		if evt.EventID == "" {
			evt.EventID = uuid.NewString()
		}
		if evt.Timestamp == 0 {
			evt.Timestamp = nowMs
		}
		if evt.Owner != "" && evt.Owner != owner {
			tenantMismatches.Inc()
		}
	}

	// Partition by player, preserving arrival order within each partition.
	byPlayer := make(map[string][]*models.TelemetryEvent)
	var playerOrder []string
	for _, evt := range events {
		if _, seen := byPlayer[evt.PlayerID]; !seen {
			playerOrder = append(playerOrder, evt.PlayerID)
		}
		byPlayer[evt.PlayerID] = append(byPlayer[evt.PlayerID], evt)
	}

	// Per-player read-compute-write. Partitions are independent, so the
	// fan-out is bounded parallelism across distinct players.
	var (
		mu      sync.Mutex
		updates = make(map[string]*models.PlayerFeatures, len(byPlayer))
	)

	g, gctx := errgroup.WithContext(ctx)
	limit := p.cfg.PlayerConcurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, playerID := range playerOrder {
		playerID := playerID
		g.Go(func() error {
			features, ok := p.updatePlayer(gctx, owner, playerID, byPlayer[playerID], nowMs)
			if ok {
				mu.Lock()
				updates[playerID] = features
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	// Detection over every updated feature vector.
	detections := RunDetection(p.cfg, owner, updates)

	// Feedback loop: a detection makes all of that player's events in this
	// batch worth keeping, including routine ones.
	if len(detections) > 0 {
		detected := make(map[string]bool, len(detections))
		for _, d := range detections {
			detected[d.PlayerID] = true
		}
		for _, evt := range events {
			if detected[evt.PlayerID] {
				evt.Interesting = true
			}
		}
	}

	// Assemble the retained list in input order from the tag marks. The
	// archive gets every event regardless, with its final tagging.
	var interesting []*models.TelemetryEvent
	for _, evt := range events {
		if evt.Interesting {
			interesting = append(interesting, evt)
		}
		if p.archive != nil {
			p.archive.Enqueue(evt)
		}
	}

	ttl := start.Unix() + int64(p.cfg.EventTTLDays)*86400

	if len(interesting) > 0 {
		records := make([]store.Record, 0, len(interesting))
		for _, evt := range interesting {
			records = append(records, store.EncodeEvent(evt, owner, ttl))
		}
		stored, err := p.store.PutBatch(ctx, p.cfg.EventsTable, records)
		if err != nil {
			p.logger.Errorw("Failed to store interesting events", "owner", owner, "error", err)
		}
		summary.EventsStored = stored
	}

	if len(detections) > 0 {
		records := make([]store.Record, 0, len(detections))
		for _, d := range detections {
			d.DetectionID = uuid.NewString()
			d.Status = models.DetectionOpen
			d.CreatedAt = nowMs
			records = append(records, store.EncodeDetection(d, ttl))
		}
		stored, err := p.store.PutBatch(ctx, p.cfg.DetectionsTable, records)
		if err != nil {
			p.logger.Errorw("Failed to store detections", "owner", owner, "error", err)
		}
		summary.DetectionsCreated = stored
	}

	summary.EventsSkipped = summary.EventsReceived - len(interesting)
	summary.PlayersUpdated = len(updates)

	eventsStored.Add(float64(summary.EventsStored))
	eventsSkipped.Add(float64(summary.EventsSkipped))
	detectionsCreated.Add(float64(summary.DetectionsCreated))

	p.logger.Infow("Batch processed",
		"owner", owner,
		"received", summary.EventsReceived,
		"stored", summary.EventsStored,
		"skipped", summary.EventsSkipped,
		"players", summary.PlayersUpdated,
		"detections", summary.DetectionsCreated,
	)

	return summary, nil
}

// updatePlayer runs one player's read-compute-write. A store failure skips
// the player for this batch and reports ok=false; the rest of the batch
// continues.
func (p *Pipeline) updatePlayer(ctx context.Context, owner, playerID string, events []*models.TelemetryEvent, nowMs int64) (*models.PlayerFeatures, bool) {
	pk := store.PlayerKey(owner, playerID)

	profileAttrs, err := p.store.Get(ctx, p.cfg.PlayerStateTable, pk, store.ProfileSortKey)
	if err != nil {
		p.logger.Warnw("Failed to load player profile", "player", playerID, "error", err)
		playerUpdatesFailed.Inc()
		return nil, false
	}
	featureAttrs, err := p.store.Get(ctx, p.cfg.PlayerStateTable, pk, store.FeaturesSortKey)
	if err != nil {
		p.logger.Warnw("Failed to load player features", "player", playerID, "error", err)
		playerUpdatesFailed.Inc()
		return nil, false
	}

	// Absent records decode to empty prior state.
	prior := store.DecodeFeatures(owner, playerID, featureAttrs)
	existing := store.DecodeProfile(owner, playerID, profileAttrs)

	features := ExtractFeatures(p.cfg, events, prior)
	features.Owner = owner
	features.PlayerID = playerID
	features.UpdatedAt = nowMs

	profile := &models.PlayerProfile{
		Owner:      owner,
		PlayerID:   playerID,
		FirstSeen:  existing.FirstSeen,
		LastSeen:   nowMs,
		EventCount: existing.EventCount + int64(len(events)),
		RiskScore:  RiskScore(p.cfg, features),
		Status:     existing.Status,
	}
	if profile.FirstSeen == 0 {
		profile.FirstSeen = nowMs
	}
	if profile.Status == "" {
		profile.Status = models.StatusMonitor
	}

	records := []store.Record{
		store.EncodeProfile(profile),
		store.EncodeFeatures(features),
	}
	stored, err := p.store.PutBatch(ctx, p.cfg.PlayerStateTable, records)
	if err != nil || stored < len(records) {
		p.logger.Warnw("Failed to persist player state", "player", playerID, "stored", stored, "error", err)
		playerUpdatesFailed.Inc()
		return nil, false
	}

	return features, true
}

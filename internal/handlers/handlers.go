package handlers

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rustcentral/behavior-api/internal/analyzer"
	"github.com/rustcentral/behavior-api/internal/models"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// Processor runs one telemetry batch through the analysis pipeline.
type Processor interface {
	Process(ctx context.Context, events []*models.TelemetryEvent) (analyzer.Summary, error)
}

// ArchiveQueue exposes the archive worker pool's backlog for readiness
// reporting.
type ArchiveQueue interface {
	QueueDepth() int
}

type Config struct {
	Processor  Processor
	Archive    ArchiveQueue
	Postgres   *pgxpool.Pool
	Redis      *redis.Client
	ClickHouse driver.Conn
	Logger     *zap.Logger
}

type Handler struct {
	processor Processor
	archive   ArchiveQueue
	pg        *pgxpool.Pool
	redis     *redis.Client
	ch        driver.Conn
	logger    *zap.SugaredLogger
}

func New(cfg Config) *Handler {
	return &Handler{
		processor: cfg.Processor,
		archive:   cfg.Archive,
		pg:        cfg.Postgres,
		redis:     cfg.Redis,
		ch:        cfg.ClickHouse,
		logger:    cfg.Logger.Sugar(),
	}
}

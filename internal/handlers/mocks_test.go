package handlers

import (
	"context"

	"github.com/rustcentral/behavior-api/internal/analyzer"
	"github.com/rustcentral/behavior-api/internal/models"
)

// MockProcessor records the events it receives and returns a canned
// summary. ProcessFunc overrides the default behavior.
type MockProcessor struct {
	ProcessFunc func(ctx context.Context, events []*models.TelemetryEvent) (analyzer.Summary, error)

	Received [][]*models.TelemetryEvent
	Summary  analyzer.Summary
	Err      error
}

func (m *MockProcessor) Process(ctx context.Context, events []*models.TelemetryEvent) (analyzer.Summary, error) {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, events)
	}
	m.Received = append(m.Received, events)
	if m.Err != nil {
		return analyzer.Summary{}, m.Err
	}
	sum := m.Summary
	sum.EventsReceived = len(events)
	return sum, nil
}

// MockArchiveQueue reports a fixed backlog.
type MockArchiveQueue struct {
	Depth int
}

func (m *MockArchiveQueue) QueueDepth() int { return m.Depth }

// Package notifier announces finished test batches to external systems.
package notifier

import (
	"context"
	"time"

	"github.com/newthinker/risklab/internal/core"
	"github.com/newthinker/risklab/internal/report"
)

// EventBatchCompleted is the type of every BatchEvent.
const EventBatchCompleted = "batch_completed"

// BatchEvent describes a batch that reached a terminal status.
type BatchEvent struct {
	BatchID     int64             `json:"batch_id"`
	StrategyID  int64             `json:"strategy_id"`
	Name        string            `json:"name"`
	Status      core.BatchStatus  `json:"status"`
	Statistics  report.Statistics `json:"statistics"`
	ReportPath  string            `json:"report_path,omitempty"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Notifier delivers batch events.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Notify delivers a single event
	Notify(ctx context.Context, event BatchEvent) error
}

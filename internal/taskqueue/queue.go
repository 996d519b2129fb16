// Package taskqueue provides asynchronous task dispatch between the API
// surface and the analysis worker.
package taskqueue

import "context"

// Task names understood by the worker.
const (
	// TaskAnalysisRun starts the analysis pipeline for a paid order.
	// Args: order_id.
	TaskAnalysisRun = "analysis.run"
)

// Queue dispatches named tasks with string arguments. Delivery is
// at-least-once; handlers must be idempotent.
type Queue interface {
	Enqueue(ctx context.Context, task string, args map[string]string) error
}

// Handler processes a single task invocation.
type Handler func(ctx context.Context, args map[string]string) error

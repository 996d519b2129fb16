package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"cryptotax/internal/artifacts"
	"cryptotax/internal/domain"
	"cryptotax/internal/dune"
	"cryptotax/internal/observability"
	"cryptotax/internal/storage"
	"cryptotax/internal/taskqueue"
)

// Polling defaults.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultMaxWait      = 30 * time.Minute
)

// Coordinator runs the analysis pipeline for a paid order: it creates one
// query job per configured query, drives each execution to a terminal state
// and stores the results as report artifacts.
type Coordinator struct {
	orders    storage.OrderStore
	jobs      storage.QueryJobStore
	reports   storage.ReportStore
	client    dune.Client
	artifacts artifacts.Store
	queue     taskqueue.Queue
	logger    *log.Logger

	queries      []QuerySpec
	pollInterval time.Duration
	maxWait      time.Duration
	now          func() time.Time
}

// Options for creating a Coordinator.
type Options struct {
	Orders    storage.OrderStore
	Jobs      storage.QueryJobStore
	Reports   storage.ReportStore
	Client    dune.Client
	Artifacts artifacts.Store
	Queue     taskqueue.Queue
	Logger    *log.Logger

	// Queries defaults to DefaultQueries() when nil.
	Queries []QuerySpec

	// PollInterval and MaxWait default to DefaultPollInterval/DefaultMaxWait
	// when zero.
	PollInterval time.Duration
	MaxWait      time.Duration
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts Options) *Coordinator {
	c := &Coordinator{
		orders:       opts.Orders,
		jobs:         opts.Jobs,
		reports:      opts.Reports,
		client:       opts.Client,
		artifacts:    opts.Artifacts,
		queue:        opts.Queue,
		logger:       opts.Logger,
		queries:      opts.Queries,
		pollInterval: opts.PollInterval,
		maxWait:      opts.MaxWait,
		now:          time.Now,
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.queries == nil {
		c.queries = DefaultQueries()
	}
	if c.pollInterval == 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.maxWait == 0 {
		c.maxWait = DefaultMaxWait
	}
	return c
}

// HandleTask adapts Run to the task queue handler signature.
func (c *Coordinator) HandleTask(ctx context.Context, args map[string]string) error {
	orderID := args["order_id"]
	if orderID == "" {
		return fmt.Errorf("analysis task missing order_id")
	}
	return c.Run(ctx, orderID)
}

// Run executes the full pipeline for an order. Job-level failures are
// recorded on the job rows and reflected in the final order status; the
// returned error is non-nil only when the run itself could not proceed
// (unknown order, no configured queries, storage failures).
func (c *Coordinator) Run(ctx context.Context, orderID string) error {
	order, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}

	if len(c.queries) == 0 {
		c.failOrder(ctx, orderID)
		observability.RecordAnalysisRun("failed")
		return fmt.Errorf("no queries configured for order %s", orderID)
	}

	if err := c.orders.UpdateStatus(ctx, orderID, domain.OrderStatusProcessing); err != nil {
		return fmt.Errorf("mark order %s processing: %w", orderID, err)
	}

	jobs, err := c.createJobs(ctx, orderID)
	if err != nil {
		c.failOrder(ctx, orderID)
		observability.RecordAnalysisRun("failed")
		return fmt.Errorf("create jobs for order %s: %w", orderID, err)
	}

	timedOut := false
	for _, job := range jobs {
		if timedOut {
			// A timeout ate the run's budget; leave the rest queued.
			break
		}
		if err := c.runJob(ctx, order, job); err != nil {
			var te *timeoutError
			if errors.As(err, &te) {
				timedOut = true
				continue
			}
			// Storage or context failure; the order cannot finish cleanly.
			c.failOrder(ctx, orderID)
			observability.RecordAnalysisRun("failed")
			return fmt.Errorf("run job %s: %w", job.QueryName, err)
		}
	}

	return c.finishOrder(ctx, orderID)
}

// Retry deletes every job of the order, recreates a fresh queued set with
// bumped retry counts and requeues the analysis run. Used by the admin
// surface after reviewing failed orders.
func (c *Coordinator) Retry(ctx context.Context, orderID string) error {
	if _, err := c.orders.GetByID(ctx, orderID); err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}

	previous, err := c.jobs.ListByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list jobs for order %s: %w", orderID, err)
	}
	retries := make(map[string]int, len(previous))
	for _, job := range previous {
		retries[job.QueryName] = job.RetryCount + 1
	}

	if err := c.jobs.DeleteByOrder(ctx, orderID); err != nil {
		return fmt.Errorf("delete jobs for order %s: %w", orderID, err)
	}

	now := c.now().UTC()
	for _, spec := range c.queries {
		job := &domain.QueryJob{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			QueryName:  spec.Name,
			QueryID:    spec.QueryID,
			Status:     domain.QueryJobStatusQueued,
			RetryCount: retries[spec.Name],
			CreatedAt:  now,
		}
		if err := c.jobs.Insert(ctx, job); err != nil {
			return fmt.Errorf("recreate job %s: %w", spec.Name, err)
		}
	}

	if err := c.orders.UpdateStatus(ctx, orderID, domain.OrderStatusProcessing); err != nil {
		return fmt.Errorf("mark order %s processing: %w", orderID, err)
	}

	return c.queue.Enqueue(ctx, taskqueue.TaskAnalysisRun, map[string]string{"order_id": orderID})
}

// createJobs inserts one queued job per configured query. A duplicate from
// an earlier interrupted run wipes the order's jobs and recreates the set.
func (c *Coordinator) createJobs(ctx context.Context, orderID string) ([]*domain.QueryJob, error) {
	for attempt := 0; attempt < 2; attempt++ {
		now := c.now().UTC()
		jobs := make([]*domain.QueryJob, 0, len(c.queries))

		var dup bool
		for _, spec := range c.queries {
			job := &domain.QueryJob{
				ID:        uuid.NewString(),
				OrderID:   orderID,
				QueryName: spec.Name,
				QueryID:   spec.QueryID,
				Status:    domain.QueryJobStatusQueued,
				CreatedAt: now,
			}
			err := c.jobs.Insert(ctx, job)
			if errors.Is(err, storage.ErrDuplicateKey) {
				dup = true
				break
			}
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job)
		}

		if !dup {
			return jobs, nil
		}

		c.logger.Printf("analysis: stale jobs for order %s, recreating", orderID)
		if err := c.jobs.DeleteByOrder(ctx, orderID); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("job set for order %s keeps conflicting", orderID)
}

// timeoutError marks a job failure that exhausted the polling budget.
type timeoutError struct {
	queryName string
	waited    time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for query %s results after %s", e.queryName, e.waited)
}

// runJob drives one query execution to a terminal state. Query-level
// failures are recorded on the job and return nil (except timeouts, which
// return *timeoutError so the caller stops the run); only storage and
// context errors propagate.
func (c *Coordinator) runJob(ctx context.Context, order *domain.Order, job *domain.QueryJob) error {
	spec, ok := c.specFor(job.QueryName)
	if !ok {
		return fmt.Errorf("no spec for query %s", job.QueryName)
	}

	started := c.now().UTC()
	job.Status = domain.QueryJobStatusRunning
	job.StartedAt = &started
	if err := c.jobs.Update(ctx, job); err != nil {
		return err
	}

	execID, err := c.client.Submit(ctx, spec.QueryID, spec.BuildParams(order.WalletAddress, started))
	if err != nil {
		return c.failJob(ctx, job, err.Error())
	}

	// Record the execution id before polling so an interrupted worker
	// leaves a traceable row behind.
	job.ExecutionID = &execID
	if err := c.jobs.Update(ctx, job); err != nil {
		return err
	}

	deadline := started.Add(c.maxWait)
	for {
		state, err := c.client.PollStatus(ctx, execID)
		if err != nil {
			return c.failJob(ctx, job, err.Error())
		}

		if state == dune.StateCompleted {
			break
		}
		if state.Terminal() {
			return c.failJob(ctx, job, fmt.Sprintf("query execution ended in state %s", state))
		}

		if c.now().After(deadline) {
			te := &timeoutError{queryName: job.QueryName, waited: c.maxWait}
			if err := c.failJob(ctx, job, te.Error()); err != nil {
				return err
			}
			return te
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	data, err := c.client.FetchResultCSV(ctx, execID)
	if err != nil {
		return c.failJob(ctx, job, err.Error())
	}

	path := fmt.Sprintf("reports/%s/%s/%s.csv", order.UserID, order.ID, spec.Name)
	size, err := c.artifacts.Write(path, data)
	if err != nil {
		return c.failJob(ctx, job, err.Error())
	}

	artifact := &domain.ReportArtifact{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		FileName:  spec.Name + ".csv",
		FilePath:  path,
		FileType:  spec.Name,
		FileSize:  size,
		CreatedAt: c.now().UTC(),
	}
	if err := c.reports.Insert(ctx, artifact); err != nil {
		return err
	}

	completed := c.now().UTC()
	job.Status = domain.QueryJobStatusCompleted
	job.CompletedAt = &completed
	if err := c.jobs.Update(ctx, job); err != nil {
		return err
	}

	observability.RecordQueryJob(string(domain.QueryJobStatusCompleted))
	c.logger.Printf("analysis: query %s completed for order %s (%d bytes)", spec.Name, order.ID, size)
	return nil
}

// failJob records a classified failure on the job. Non-retryable error
// types park the job for manual review.
func (c *Coordinator) failJob(ctx context.Context, job *domain.QueryJob, msg string) error {
	errType := ClassifyError(msg)
	truncated := truncateError(msg)
	completed := c.now().UTC()

	job.Status = domain.QueryJobStatusFailed
	if !errType.Retryable() {
		job.Status = domain.QueryJobStatusFailedNeedsReview
	}
	job.ErrorType = &errType
	job.ErrorMessage = &truncated
	job.CompletedAt = &completed

	if err := c.jobs.Update(ctx, job); err != nil {
		return err
	}

	observability.RecordQueryJob(string(job.Status))
	observability.RecordQueryJobError(string(errType))
	c.logger.Printf("analysis: query %s failed for order %s: %s (%s)", job.QueryName, job.OrderID, truncated, errType)
	return nil
}

// finishOrder recounts the live job rows and sets the final order status:
// all completed, some completed or none completed.
func (c *Coordinator) finishOrder(ctx context.Context, orderID string) error {
	jobs, err := c.jobs.ListByOrder(ctx, orderID)
	if err != nil {
		c.failOrder(ctx, orderID)
		observability.RecordAnalysisRun("failed")
		return fmt.Errorf("recount jobs for order %s: %w", orderID, err)
	}

	completed := 0
	for _, job := range jobs {
		if job.IsComplete() {
			completed++
		}
	}

	var status domain.OrderStatus
	switch {
	case completed == len(jobs) && len(jobs) > 0:
		status = domain.OrderStatusCompleted
	case completed > 0:
		status = domain.OrderStatusPartialComplete
	default:
		status = domain.OrderStatusFailed
	}

	if err := c.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return fmt.Errorf("finish order %s: %w", orderID, err)
	}

	observability.RecordAnalysisRun(string(status))
	c.logger.Printf("analysis: order %s finished %s (%d/%d queries)", orderID, status, completed, len(jobs))
	return nil
}

// failOrder best-effort flips the order to failed.
func (c *Coordinator) failOrder(ctx context.Context, orderID string) {
	if err := c.orders.UpdateStatus(ctx, orderID, domain.OrderStatusFailed); err != nil {
		c.logger.Printf("analysis: mark order %s failed: %v", orderID, err)
	}
}

func (c *Coordinator) specFor(name string) (QuerySpec, bool) {
	for _, spec := range c.queries {
		if spec.Name == name {
			return spec, true
		}
	}
	return QuerySpec{}, false
}

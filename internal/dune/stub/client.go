// Package stub provides a scriptable dune.Client for testing.
package stub

import (
	"context"
	"fmt"
	"sync"

	"cryptotax/internal/dune"
)

// Submission records one Submit call.
type Submission struct {
	QueryID     int64
	Params      []dune.Parameter
	ExecutionID string
}

// Client implements dune.Client with behavior scripted per query id.
type Client struct {
	mu sync.Mutex

	// SubmitErrs fails Submit for a query id.
	SubmitErrs map[int64]error

	// StateSeqs scripts the sequence of states returned by PollStatus for
	// executions of a query id; the last state repeats once exhausted.
	// Unscripted queries complete immediately.
	StateSeqs map[int64][]dune.State

	// PollErrs fails PollStatus for executions of a query id.
	PollErrs map[int64]error

	// Results holds the CSV payload per query id.
	Results map[int64][]byte

	// ResultErrs fails FetchResultCSV for a query id.
	ResultErrs map[int64]error

	// Submissions records every Submit call in order.
	Submissions []Submission

	polls   map[int64]int
	counter int
}

// NewClient creates an empty scriptable client.
func NewClient() *Client {
	return &Client{
		SubmitErrs: make(map[int64]error),
		StateSeqs:  make(map[int64][]dune.State),
		PollErrs:   make(map[int64]error),
		Results:    make(map[int64][]byte),
		ResultErrs: make(map[int64]error),
		polls:      make(map[int64]int),
	}
}

// Submit records the call and returns a synthetic execution id encoding the
// query id.
func (c *Client) Submit(_ context.Context, queryID int64, params []dune.Parameter) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.SubmitErrs[queryID]; err != nil {
		return "", err
	}

	c.counter++
	execID := fmt.Sprintf("exec-%d-%d", queryID, c.counter)
	c.Submissions = append(c.Submissions, Submission{QueryID: queryID, Params: params, ExecutionID: execID})
	return execID, nil
}

// PollStatus steps through the scripted state sequence for the execution's
// query id.
func (c *Client) PollStatus(_ context.Context, executionID string) (dune.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	queryID, err := queryIDOf(executionID)
	if err != nil {
		return "", err
	}

	if err := c.PollErrs[queryID]; err != nil {
		return "", err
	}

	seq, ok := c.StateSeqs[queryID]
	if !ok || len(seq) == 0 {
		return dune.StateCompleted, nil
	}

	i := c.polls[queryID]
	if i >= len(seq) {
		i = len(seq) - 1
	}
	c.polls[queryID]++
	return seq[i], nil
}

// FetchResultCSV returns the scripted payload for the execution's query id.
func (c *Client) FetchResultCSV(_ context.Context, executionID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	queryID, err := queryIDOf(executionID)
	if err != nil {
		return nil, err
	}

	if err := c.ResultErrs[queryID]; err != nil {
		return nil, err
	}

	if data, ok := c.Results[queryID]; ok {
		return data, nil
	}
	return []byte("col_a,col_b\n1,2\n"), nil
}

func queryIDOf(executionID string) (int64, error) {
	var queryID int64
	var seq int
	if _, err := fmt.Sscanf(executionID, "exec-%d-%d", &queryID, &seq); err != nil {
		return 0, fmt.Errorf("malformed execution id %q", executionID)
	}
	return queryID, nil
}

// Verify interface compliance at compile time.
var _ dune.Client = (*Client)(nil)

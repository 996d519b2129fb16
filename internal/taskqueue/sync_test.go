package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestSync_Dispatch(t *testing.T) {
	q := NewSync()
	ctx := context.Background()

	var got map[string]string
	q.Handle(TaskAnalysisRun, func(_ context.Context, args map[string]string) error {
		got = args
		return nil
	})

	err := q.Enqueue(ctx, TaskAnalysisRun, map[string]string{"order_id": "order-1"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if got["order_id"] != "order-1" {
		t.Errorf("Handler did not receive args: %v", got)
	}
}

func TestSync_MissingHandler(t *testing.T) {
	q := NewSync()

	err := q.Enqueue(context.Background(), "unknown.task", nil)
	if err == nil {
		t.Fatal("Expected error for unregistered task")
	}
}

func TestSync_HandlerError(t *testing.T) {
	q := NewSync()
	wantErr := errors.New("boom")

	q.Handle(TaskAnalysisRun, func(context.Context, map[string]string) error {
		return wantErr
	})

	err := q.Enqueue(context.Background(), TaskAnalysisRun, nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected handler error, got %v", err)
	}
}

func TestMessage_RoundTrip(t *testing.T) {
	in := message{Task: TaskAnalysisRun, Args: map[string]string{"order_id": "order-1"}}

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out message
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.Task != in.Task || out.Args["order_id"] != "order-1" {
		t.Errorf("Round trip mismatch: %+v", out)
	}
}

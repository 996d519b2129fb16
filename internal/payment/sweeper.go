package payment

import (
	"context"
	"log"
	"time"

	"cryptotax/internal/observability"
	"cryptotax/internal/solana"
	"cryptotax/internal/storage"
)

// Sweeper default intervals.
const (
	DefaultSweepInterval = 30 * time.Second
	DefaultGracePeriod   = 2 * time.Minute
)

// Sweeper periodically re-checks pending payments whose wallet flow never
// reached the verify endpoint (closed tab, mobile wallet, network drop).
// It looks up the newest transaction referencing each payment's reference
// key and funnels it through the same confirmation state machine.
type Sweeper struct {
	payments storage.PaymentStore
	reader   solana.ChainReader
	machine  *StateMachine
	logger   *log.Logger

	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval sets the cycle interval.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.interval = d }
}

// WithGracePeriod sets how old a pending payment must be before it is swept.
func WithGracePeriod(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.grace = d }
}

// NewSweeper creates a sweeper.
func NewSweeper(payments storage.PaymentStore, reader solana.ChainReader, machine *StateMachine, logger *log.Logger, opts ...SweeperOption) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	s := &Sweeper{
		payments: payments,
		reader:   reader,
		machine:  machine,
		logger:   logger,
		interval: DefaultSweepInterval,
		grace:    DefaultGracePeriod,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps on a ticker until ctx is cancelled. Errors within a cycle are
// logged and retried on the next cycle.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cycle: list pending payments older than the grace window
// and try to confirm each. Returns the number of payments confirmed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	observability.RecordSweeperRun()

	cutoff := s.now().Add(-s.grace)
	pending, err := s.payments.ListPendingBefore(ctx, cutoff)
	if err != nil {
		s.logger.Printf("sweeper: list pending payments: %v", err)
		return 0
	}

	confirmed := 0
	for _, p := range pending {
		sigs, err := s.reader.GetSignaturesForAddress(ctx, p.Reference, 1)
		if err != nil {
			s.logger.Printf("sweeper: signatures for reference %s: %v", p.Reference, err)
			continue
		}
		if len(sigs) == 0 {
			continue
		}

		result, err := s.machine.Confirm(ctx, p.OrderID, sigs[0].Signature)
		if err != nil {
			s.logger.Printf("sweeper: confirm order %s: %v", p.OrderID, err)
			continue
		}
		if result.Confirmed && !result.AlreadyConfirmed {
			confirmed++
			observability.RecordSweeperConfirmed()
			s.logger.Printf("sweeper: confirmed order %s via %s", p.OrderID, sigs[0].Signature)
		}
	}

	return confirmed
}

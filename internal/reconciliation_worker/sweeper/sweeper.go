// Package sweeper finalizes pending transactions whose callback never arrived by asking the
// provider for their status.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mpesa-stk-gateway/internal/config"
	"github.com/mpesa-stk-gateway/internal/domain/callback"
	"github.com/mpesa-stk-gateway/internal/domain/payment"
	"github.com/mpesa-stk-gateway/internal/metrics"
	"github.com/mpesa-stk-gateway/internal/platform/mpesa"
	"github.com/mpesa-stk-gateway/internal/stk"
)

// StatusQuerier is the subset of the Daraja client the sweeper needs
type StatusQuerier interface {
	AccessToken(ctx context.Context) (string, error)
	STKQuery(ctx context.Context, token, checkoutRequestID string) (*mpesa.STKQueryResponse, []byte, error)
}

// Result tallies one sweep
type Result struct {
	Checked      int
	Finalized    int
	Duplicate    int
	StillPending int
	Failed       int
}

type checkOutcome string

const (
	outcomeFinalized    checkOutcome = "finalized"
	outcomeDuplicate    checkOutcome = "duplicate"
	outcomeStillPending checkOutcome = "still_pending"
	outcomeFailed       checkOutcome = "query_failed"
)

func (r *Result) add(o checkOutcome) {
	r.Checked++
	switch o {
	case outcomeFinalized:
		r.Finalized++
	case outcomeDuplicate:
		r.Duplicate++
	case outcomeStillPending:
		r.StillPending++
	default:
		r.Failed++
	}
}

type Sweeper struct {
	txRepo     payment.Repository
	querier    StatusQuerier
	reconciler stk.Reconciler
	pool       *WorkerPool
	logger     *slog.Logger
	interval   time.Duration
	pendingAge time.Duration
	batchSize  int
	now        func() time.Time
}

func NewSweeper(
	cfg *config.SweeperConfig,
	txRepo payment.Repository,
	querier StatusQuerier,
	reconciler stk.Reconciler,
	pool *WorkerPool,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		txRepo:     txRepo,
		querier:    querier,
		reconciler: reconciler,
		pool:       pool,
		logger:     logger,
		interval:   cfg.Interval,
		pendingAge: cfg.PendingAge,
		batchSize:  cfg.BatchSize,
		now:        time.Now,
	}
}

// Start sweeps on every tick until ctx is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting stale pending sweeper",
		"interval", s.interval.String(),
		"pending_age", s.pendingAge.String(),
		"batch_size", s.batchSize,
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stale pending sweeper stopping")
			return
		case <-ticker.C:
			result, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("Sweep failed", "error", err)
				continue
			}
			if result.Checked > 0 {
				s.logger.Info("Sweep completed",
					"checked", result.Checked,
					"finalized", result.Finalized,
					"duplicate", result.Duplicate,
					"still_pending", result.StillPending,
					"failed", result.Failed,
				)
			}
		}
	}
}

// Sweep queries the provider for every pending transaction older than the configured age
// and finalizes the ones that have a result.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var result Result

	cutoff := s.now().UTC().Add(-s.pendingAge)
	stale, err := s.txRepo.ListStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list stale pending transactions: %w", err)
	}
	if len(stale) == 0 {
		return result, nil
	}

	token, err := s.querier.AccessToken(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to obtain access token for status queries: %w", err)
	}

	var mu sync.Mutex
	record := func(o checkOutcome) {
		metrics.SweeperChecks.WithLabelValues(string(o)).Inc()
		mu.Lock()
		result.add(o)
		mu.Unlock()
	}

	for _, txn := range stale {
		if ctx.Err() != nil {
			break
		}
		if err := s.pool.Go(func() { record(s.check(ctx, token, txn)) }); err != nil {
			record(outcomeFailed)
		}
	}
	s.pool.Wait()

	return result, nil
}

func (s *Sweeper) check(ctx context.Context, token string, txn *payment.Transaction) checkOutcome {
	logger := s.logger.With("checkout_request_id", txn.CheckoutRequestID, "business_id", txn.BusinessID)

	res, raw, err := s.querier.STKQuery(ctx, token, txn.CheckoutRequestID)
	if err != nil {
		var apiErr *mpesa.APIError
		if errors.As(err, &apiErr) {
			logger.Debug("Provider has no result yet", "code", apiErr.Code, "message", apiErr.Message)
			return outcomeStillPending
		}
		logger.Warn("Status query failed", "error", err)
		return outcomeFailed
	}

	cb, ok := res.Callback()
	if !ok {
		return outcomeStillPending
	}
	if cb.CheckoutRequestID == "" {
		cb.CheckoutRequestID = txn.CheckoutRequestID
	}

	finalized, err := s.reconciler.Finalize(ctx, cb, raw, callback.SourceStatusQuery)
	if err != nil {
		return outcomeFailed
	}
	if !finalized.Applied {
		return outcomeDuplicate
	}

	logger.Info("Stale pending transaction finalized from status query",
		"status", string(finalized.Transaction.Status),
		"result_code", cb.ResultCode,
	)
	return outcomeFinalized
}

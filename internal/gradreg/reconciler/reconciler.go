package reconciler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gradreg/internal/gradreg/data"
	"gradreg/pkg/logging"
	"gradreg/pkg/threadsafe"
)

// Reconciler catches orders whose webhook never arrived: it periodically
// re-queries the gateway for orders stuck in pending past a threshold and
// feeds the results through the payment state machine.

type OrdersRepository interface {
	GetPendingOrdersOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]data.Order, error)
}

type Payments interface {
	CheckOrder(ctx context.Context, orderID string) (updated bool, err error)
}

type Config struct {
	TickPeriod          time.Duration
	OlderThan           time.Duration
	MaxConcurrentChecks int
	BatchLimit          int
}

type Summary struct {
	Checked int
	Updated int
	Failed  int
}

type Reconciler struct {
	cfg            Config
	repository     OrdersRepository
	payments       Payments
	inFlightOrders *threadsafe.HashSet[string]
	logger         *logging.ZapLogger
	done           chan struct{}
}

func New(
	cfg Config,
	repository OrdersRepository,
	payments Payments,
	logger *logging.ZapLogger,
) *Reconciler {
	return &Reconciler{
		cfg:            cfg,
		repository:     repository,
		payments:       payments,
		inFlightOrders: threadsafe.NewHashSet[string](),
		logger:         logger,
		done:           make(chan struct{}),
	}
}

func (r *Reconciler) Run() {
	ticker := time.NewTicker(r.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			summary, err := r.Sweep(context.Background(), r.cfg.OlderThan)
			if err != nil {
				r.logger.ErrorCtx(context.Background(), "reconciliation sweep failed", zap.Error(err))
				continue
			}
			if summary.Checked > 0 {
				r.logger.InfoCtx(context.Background(), "reconciliation sweep finished",
					zap.Int("checked", summary.Checked),
					zap.Int("updated", summary.Updated),
					zap.Int("failed", summary.Failed))
			}
		}
	}
}

func (r *Reconciler) Stop() {
	close(r.done)
}

// Sweep checks every pending order created before now-olderThan. Per-order
// failures are counted, never propagated: one stuck gateway call must not
// abort the rest of the sweep. Orders already being checked by an
// overlapping sweep are skipped.
func (r *Reconciler) Sweep(ctx context.Context, olderThan time.Duration) (Summary, error) {
	cutoff := time.Now().Add(-olderThan)
	orders, err := r.repository.GetPendingOrdersOlderThan(ctx, cutoff, r.cfg.BatchLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to get pending orders: %w", err)
	}
	if len(orders) == 0 {
		return Summary{}, nil
	}

	var checked, updated, failed atomic.Int64

	g := &errgroup.Group{}
	g.SetLimit(r.cfg.MaxConcurrentChecks)
	for _, order := range orders {
		orderID := order.OrderID
		if !r.inFlightOrders.Add(orderID) {
			continue
		}
		checked.Add(1)
		g.Go(func() error {
			defer r.inFlightOrders.Remove(orderID)

			applied, err := r.payments.CheckOrder(ctx, orderID)
			if err != nil {
				failed.Add(1)
				r.logger.ErrorCtx(ctx, "failed to reconcile order",
					zap.String("orderid", orderID),
					zap.Error(err))
				return nil
			}
			if applied {
				updated.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Summary{
		Checked: int(checked.Load()),
		Updated: int(updated.Load()),
		Failed:  int(failed.Load()),
	}, nil
}

package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/service"
)

// AutoCloseWorker periodically closes tickets that have sat in RESOLVED
// beyond the configured grace period. One failing ticket never stops the
// rest of the sweep.
type AutoCloseWorker struct {
	tickets  *service.TicketService
	logger   *zap.Logger
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewAutoCloseWorker builds the worker.
func NewAutoCloseWorker(tickets *service.TicketService, logger *zap.Logger, interval time.Duration) *AutoCloseWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &AutoCloseWorker{
		tickets:  tickets,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. One sweep runs immediately so a restart
// does not delay overdue closures by a full interval.
func (w *AutoCloseWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)

		w.sweep(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.sweep(ctx)
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (w *AutoCloseWorker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *AutoCloseWorker) sweep(ctx context.Context) {
	candidates, err := w.tickets.ListAutoCloseCandidates(ctx)
	if err != nil {
		w.logger.Error("auto-close sweep: listing candidates failed", zap.Error(err))
		return
	}
	if len(candidates) == 0 {
		return
	}

	closed := 0
	for _, ticket := range candidates {
		if err := w.tickets.AutoClose(ctx, ticket.ID); err != nil {
			w.logger.Warn("auto-close failed for ticket",
				zap.String("ticket_id", ticket.ID),
				zap.String("ticket_key", ticket.ExternalKey),
				zap.Error(err))
			continue
		}
		closed++
	}
	w.logger.Info("auto-close sweep finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("closed", closed))
}

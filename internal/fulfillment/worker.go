package fulfillment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v82"

	"gatepass/internal/logger"
)

// jobTimeout bounds one fulfillment run. Matches the historical 60s webhook
// processing ceiling.
const jobTimeout = 60 * time.Second

// Worker runs fulfillment off the webhook request path so the provider gets
// its ack immediately. One goroutine consumes a buffered queue; after the
// ack there is no response channel left, so every failure here is logged
// durably instead of returned.
type Worker struct {
	service *Service
	logger  *logger.Logger

	jobs chan *stripe.CheckoutSession
	wg   sync.WaitGroup
}

func NewWorker(service *Service, log *logger.Logger) *Worker {
	return &Worker{
		service: service,
		logger:  log,
		jobs:    make(chan *stripe.CheckoutSession, 64),
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
	w.logger.Info("WORKER", "Fulfillment worker started")
}

func (w *Worker) run() {
	defer w.wg.Done()
	for session := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		if err := w.service.FulfillSession(ctx, session); err != nil {
			w.logger.Error("WORKER", fmt.Sprintf("Deferred fulfillment of session %s failed: %v", session.ID, err))
		}
		cancel()
	}
}

// Enqueue hands a session to the worker. Returns false when the queue is
// full; the caller should fail the webhook so the provider redelivers.
func (w *Worker) Enqueue(session *stripe.CheckoutSession) bool {
	select {
	case w.jobs <- session:
		return true
	default:
		w.logger.Error("WORKER", fmt.Sprintf("Fulfillment queue full, rejecting session %s", session.ID))
		return false
	}
}

// Stop drains the queue and waits for in-flight work.
func (w *Worker) Stop() {
	close(w.jobs)
	w.wg.Wait()
	w.logger.Info("WORKER", "Fulfillment worker stopped")
}

package export

import (
	"context"
	"sync"
	"time"

	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/observability"
)

// Dispatcher feeds a Sink from a bounded queue with a fixed worker pool.
type Dispatcher struct {
	jobs    chan domain.Registration
	sink    Sink
	workers int
	timeout time.Duration
	logger  observability.Logger
}

func NewDispatcher(sink Sink, queueSize, workers int, logger observability.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		jobs:    make(chan domain.Registration, queueSize),
		sink:    sink,
		workers: workers,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

// Enqueue never blocks. It reports false when the queue is full.
func (d *Dispatcher) Enqueue(reg domain.Registration) bool {
	select {
	case d.jobs <- reg:
		return true
	default:
		observability.ExportJobs.WithLabelValues("dropped").Inc()
		return false
	}
}

// Run blocks until ctx is cancelled, then drains what is already queued.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Export dispatcher started")

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	wg.Wait()

	d.logger.Info("Export dispatcher stopped")
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			return
		case reg := <-d.jobs:
			d.handle(ctx, reg)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case reg := <-d.jobs:
			d.handle(ctx, reg)
		default:
			return
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, reg domain.Registration) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sink.Export(ctx, reg); err != nil {
		observability.ExportJobs.WithLabelValues("failed").Inc()
		d.logger.WithError(err).WithField("ticket_id", reg.TicketID).Error("export failed")
		return
	}
	observability.ExportJobs.WithLabelValues("ok").Inc()
}

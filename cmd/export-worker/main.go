package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/event-registrations/internal/adapters/rabbit"
	"github.com/robertarktes/event-registrations/internal/config"
	"github.com/robertarktes/event-registrations/internal/export"
	"github.com/robertarktes/event-registrations/internal/observability"
)

const queueName = "registrations.export"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.RabbitURL == "" {
		log.Fatal("RABBIT_URL is required")
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "event-registrations-export-worker")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, queueName, rabbit.KeyRegistrationPaid, cfg.ExportWorkers)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	worker := NewExportWorker(export.NewFileSink(cfg.ExportFile), logger)
	worker.Run(ctx, deliveries)
	logger.Info("Shutdown export worker")
}

type ExportWorker struct {
	sink   export.Sink
	logger observability.Logger
}

func NewExportWorker(sink export.Sink, logger observability.Logger) *ExportWorker {
	return &ExportWorker{sink: sink, logger: logger}
}

func (w *ExportWorker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Export worker started")
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				w.logger.Warn("delivery channel closed")
				return
			}
			w.handle(ctx, d)
		}
	}
}

// handle retries a failed export once via redelivery, then drops it.
func (w *ExportWorker) handle(ctx context.Context, d amqp.Delivery) {
	reg, err := export.Decode(d.Body)
	if err != nil {
		observability.ExportJobs.WithLabelValues("malformed").Inc()
		w.logger.WithError(err).WithField("message_id", d.MessageId).Error("malformed export job")
		_ = d.Nack(false, false)
		return
	}

	if err := w.sink.Export(ctx, reg); err != nil {
		observability.ExportJobs.WithLabelValues("failed").Inc()
		w.logger.WithError(err).WithField("ticket_id", reg.TicketID).Error("export failed")
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	observability.ExportJobs.WithLabelValues("ok").Inc()
	_ = d.Ack(false)
}

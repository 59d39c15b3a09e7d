package export

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/event-registrations/internal/adapters/rabbit"
	"github.com/robertarktes/event-registrations/internal/domain"
)

// Sink delivers one paid registration to the spreadsheet side.
type Sink interface {
	Export(ctx context.Context, reg domain.Registration) error
}

// FileSink appends rows to a local workbook. Writes are serialized.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Export(_ context.Context, reg domain.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AppendToFile(s.path, reg)
}

type Publisher interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

// RabbitSink hands the job to cmd/export-worker over the events exchange.
type RabbitSink struct {
	pub Publisher
}

func NewRabbitSink(pub Publisher) *RabbitSink {
	return &RabbitSink{pub: pub}
}

func (s *RabbitSink) Export(ctx context.Context, reg domain.Registration) error {
	body, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	return s.pub.Publish(ctx, rabbit.KeyRegistrationPaid, amqp.Publishing{
		MessageId:    reg.TicketID,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Decode reads a job published by RabbitSink.
func Decode(body []byte) (domain.Registration, error) {
	var reg domain.Registration
	err := json.Unmarshal(body, &reg)
	return reg, err
}

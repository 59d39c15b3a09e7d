package export

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func paid(ticketID string) domain.Registration {
	reg := domain.NewRegistration(ticketID, domain.Attendee{
		Name:       "Asha",
		Email:      "asha@example.com",
		Phone:      "9999999999",
		College:    "VIT",
		Department: "CSE",
		Year:       "3",
		Event:      "ALGO MASTERS",
	}, domain.StatusPaid, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC))
	reg.PaymentID = "pay_1"
	return reg
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []domain.Registration{paid("VTX-1"), paid("VTX-2")}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Ticket ID", "Name", "Email", "Phone", "College", "Department", "Year", "Event", "Date", "Payment Status"}, rows[0])
	assert.Equal(t, []string{"VTX-1", "Asha", "asha@example.com", "9999999999", "VIT", "CSE", "3", "ALGO MASTERS", "2026-03-01 10:30:00", "PAID"}, rows[1])
	assert.Equal(t, "VTX-2", rows[2][0])
}

func TestAppendToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registrations.xlsx")

	require.NoError(t, AppendToFile(path, paid("VTX-1")))
	require.NoError(t, AppendToFile(path, paid("VTX-2"), paid("VTX-3")))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Ticket ID", rows[0][0])
	assert.Equal(t, []string{"VTX-1", "VTX-2", "VTX-3"}, []string{rows[1][0], rows[2][0], rows[3][0]})
}

type fakePublisher struct {
	key string
	msg amqp.Publishing
	err error
}

func (p *fakePublisher) Publish(_ context.Context, key string, msg amqp.Publishing) error {
	p.key = key
	p.msg = msg
	return p.err
}

func TestRabbitSink(t *testing.T) {
	pub := &fakePublisher{}
	reg := paid("VTX-1")

	require.NoError(t, NewRabbitSink(pub).Export(context.Background(), reg))
	assert.Equal(t, "registration.paid", pub.key)
	assert.Equal(t, "VTX-1", pub.msg.MessageId)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)

	decoded, err := Decode(pub.msg.Body)
	require.NoError(t, err)
	assert.Equal(t, reg, decoded)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.msg.Body, &raw))
	assert.Equal(t, "VTX-1", raw["ticketId"])
}

type recordingSink struct {
	mu   sync.Mutex
	seen []string
	fail string
}

func (s *recordingSink) Export(_ context.Context, reg domain.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg.TicketID == s.fail {
		return errors.New("sink down")
	}
	s.seen = append(s.seen, reg.TicketID)
	return nil
}

func (s *recordingSink) tickets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	d := NewDispatcher(&recordingSink{}, 2, 1, observability.NewNopLogger())

	assert.True(t, d.Enqueue(paid("VTX-1")))
	assert.True(t, d.Enqueue(paid("VTX-2")))
	assert.False(t, d.Enqueue(paid("VTX-3")))
}

func TestDispatcher_DeliversAndDrainsOnShutdown(t *testing.T) {
	sink := &recordingSink{fail: "VTX-2"}
	d := NewDispatcher(sink, 10, 2, observability.NewNopLogger())
	for _, id := range []string{"VTX-1", "VTX-2", "VTX-3"} {
		require.True(t, d.Enqueue(paid(id)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	assert.ElementsMatch(t, []string{"VTX-1", "VTX-3"}, sink.tickets())
}

func TestDispatcher_RunProcessesLiveJobs(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 10, 2, observability.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.True(t, d.Enqueue(paid("VTX-1")))
	assert.Eventually(t, func() bool { return len(sink.tickets()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	sink := NewFileSink(path)

	var wg sync.WaitGroup
	for _, id := range []string{"VTX-1", "VTX-2", "VTX-3", "VTX-4"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, sink.Export(context.Background(), paid(id)))
		}()
	}
	wg.Wait()

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kendall-kelly/restaurant-pos-api/models"
	"github.com/kendall-kelly/restaurant-pos-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Write(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Write(context.Context, Event) error {
	<-s.release
	return nil
}

func TestClientMetaRoundTrip(t *testing.T) {
	meta := ClientMeta{IP: "10.0.0.7", UserAgent: "kitchen-display/1.0", RequestID: "req-1"}
	ctx := WithClientMeta(context.Background(), meta)

	assert.Equal(t, meta, ClientMetaFromContext(ctx))
	assert.Equal(t, ClientMeta{}, ClientMetaFromContext(context.Background()))

	orderID := uint(4)
	e := NewEvent(ctx, 9, &orderID, ActionOrderCreated, map[string]interface{}{"items": 2})
	assert.Equal(t, uint(9), e.ActorID)
	assert.Equal(t, meta, e.ClientMeta)
	assert.WithinDuration(t, time.Now(), e.Timestamp, time.Second)
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	d := NewDispatcher(zap.NewNop(), 8, a, b)

	d.Record(context.Background(), Event{Action: ActionOrderCreated})
	d.Record(context.Background(), Event{Action: ActionStatusChanged})
	d.Close()

	assert.Equal(t, 2, a.count())
	assert.Equal(t, 2, b.count())
}

func TestDispatcher_SinkErrorDoesNotStopDelivery(t *testing.T) {
	failing := &recordingSink{err: errors.New("disk full")}
	ok := &recordingSink{}
	d := NewDispatcher(zap.NewNop(), 8, failing, ok)

	d.Record(context.Background(), Event{Action: ActionPaymentCreated})
	d.Record(context.Background(), Event{Action: ActionOrderMarkedPaid})
	d.Close()

	assert.Equal(t, 2, failing.count())
	assert.Equal(t, 2, ok.count())
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(zap.NewNop(), 1, sink)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Record(context.Background(), Event{Action: ActionItemsAdded})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(sink.release)
	d.Close()
}

func TestDispatcher_RecordAfterCloseIsIgnored(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(zap.NewNop(), 4, sink)
	d.Close()
	d.Close()

	d.Record(context.Background(), Event{Action: ActionOrderCreated})
	assert.Zero(t, sink.count())
}

func TestDBSink_Write(t *testing.T) {
	db := testutil.OpenTestDB(t)
	sink := NewDBSink(db)

	orderID := uint(12)
	ctx := WithClientMeta(context.Background(), ClientMeta{IP: "127.0.0.1", RequestID: "abc"})
	err := sink.Write(context.Background(), NewEvent(ctx, 3, &orderID, ActionStatusChanged, map[string]interface{}{
		"from": "received",
		"to":   "in_prep",
	}))
	require.NoError(t, err)

	var logs []models.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, uint(3), logs[0].ActorID)
	assert.Equal(t, orderID, *logs[0].OrderID)
	assert.Equal(t, ActionStatusChanged, logs[0].Action)
	assert.Equal(t, "127.0.0.1", logs[0].ClientIP)
	assert.Equal(t, "abc", logs[0].RequestID)
	assert.JSONEq(t, `{"from":"received","to":"in_prep"}`, logs[0].Details)
}

func TestS3Sink_Write(t *testing.T) {
	store := NewMemoryObjectStore()
	sink := NewS3Sink(store)

	event := Event{
		ActorID:   1,
		Action:    ActionCashSessionOpened,
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, sink.Write(context.Background(), event))

	objects := store.Objects()
	require.Len(t, objects, 1)
	for key, body := range objects {
		assert.True(t, strings.HasPrefix(key, "audit/2026/03/14/"), key)
		assert.True(t, strings.HasSuffix(key, ".json"), key)

		var decoded Event
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, ActionCashSessionOpened, decoded.Action)
	}
}

func TestS3Sink_PropagatesStoreError(t *testing.T) {
	store := NewMemoryObjectStore()
	store.FailWith(errors.New("access denied"))

	err := NewS3Sink(store).Write(context.Background(), Event{Action: ActionOrderCancelled})
	assert.ErrorContains(t, err, "access denied")
}

package natshook_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/natshook"
	"github.com/xraph/licensing/types"
)

type published struct {
	subject string
	data    []byte
}

type fakeJetStream struct {
	mu       sync.Mutex
	failures int
	calls    int
	msgs     []published
}

func (f *fakeJetStream) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("nats: no response from stream")
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return &jetstream.PubAck{Stream: "LICENSING", Sequence: uint64(len(f.msgs))}, nil
}

func fastRetries(prefix string) natshook.Option {
	return natshook.WithConfig(natshook.Config{
		SubjectPrefix:   prefix,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  200 * time.Millisecond,
	})
}

func transferEvent() *event.Event {
	return &event.Event{
		ID:       id.NewEventID(),
		LedgerID: id.NewLedgerID(),
		Seq:      3,
		Type:     event.TypeTransferred,
		Issuance: event.Index(0),
		From:     types.MustParseAddress("0x00000000000000000000000000000000000000a1"),
		To:       types.MustParseAddress("0x00000000000000000000000000000000000000b2"),
		Amount:   25,
	}
}

func TestPublishesEvent(t *testing.T) {
	js := &fakeJetStream{}
	ext := natshook.New(js, fastRetries("licensing.events"))
	evt := transferEvent()

	require.NoError(t, ext.OnEvent(context.Background(), evt))

	require.Len(t, js.msgs, 1)
	assert.Equal(t, "licensing.events."+evt.LedgerID.String()+".units.transferred", js.msgs[0].subject)

	var got event.Event
	require.NoError(t, json.Unmarshal(js.msgs[0].data, &got))
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, evt.To, got.To)
	assert.Equal(t, uint64(25), got.Amount)
}

func TestRetriesTransientFailures(t *testing.T) {
	js := &fakeJetStream{failures: 2}
	ext := natshook.New(js, fastRetries("ledgers"))

	require.NoError(t, ext.OnEvent(context.Background(), transferEvent()))
	assert.Equal(t, 3, js.calls)
	require.Len(t, js.msgs, 1)
}

func TestGivesUpWhenContextEnds(t *testing.T) {
	js := &fakeJetStream{failures: 1 << 20}
	ext := natshook.New(js, fastRetries("ledgers"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := ext.OnEvent(ctx, transferEvent())
	require.Error(t, err)
	assert.Empty(t, js.msgs)
}

func TestShutdownWithoutConnection(t *testing.T) {
	ext := natshook.New(&fakeJetStream{})
	assert.Equal(t, "nats-publisher", ext.Name())
	assert.NoError(t, ext.OnShutdown(context.Background()))
}

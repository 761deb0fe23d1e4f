package plugin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/plugin"
)

type recorder struct {
	name string

	mu     sync.Mutex
	all    []event.Type
	issued int
	failed []access.Operation
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnEvent(_ context.Context, e *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, e.Type)
	return nil
}

func (r *recorder) OnIssued(context.Context, *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	return errors.New("hook errors are only logged")
}

func (r *recorder) OnOperationFailed(_ context.Context, op access.Operation, _ id.LedgerID, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, op)
	return nil
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnEvent(ctx context.Context, _ *event.Event) error {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(&recorder{name: "a"}))
	assert.Error(t, reg.Register(&recorder{name: "a"}))
	assert.Equal(t, 1, reg.Count())
	assert.NotNil(t, reg.Get("a"))
	assert.Nil(t, reg.Get("b"))
}

func TestEmitDispatchesByType(t *testing.T) {
	reg := plugin.NewRegistry()
	rec := &recorder{name: "rec"}
	require.NoError(t, reg.Register(rec))

	ctx := context.Background()
	reg.Emit(ctx, &event.Event{Type: event.TypeIssued})
	reg.Emit(ctx, &event.Event{Type: event.TypeTransferred})
	reg.EmitOperationFailed(ctx, access.OpRecall, id.NewLedgerID(), errors.New("nope"))

	assert.Equal(t, []event.Type{event.TypeIssued, event.TypeTransferred}, rec.all)
	assert.Equal(t, 1, rec.issued)
	assert.Equal(t, []access.Operation{access.OpRecall}, rec.failed)
}

func TestSlowHookTimesOut(t *testing.T) {
	reg := plugin.NewRegistry().WithTimeout(20 * time.Millisecond)
	require.NoError(t, reg.Register(slowPlugin{}))

	start := time.Now()
	reg.Emit(context.Background(), &event.Event{Type: event.TypeSigned})
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

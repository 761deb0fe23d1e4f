package audithook_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	licensing "github.com/xraph/licensing"
	audithook "github.com/xraph/licensing/audit_hook"
	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/event"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/types"
)

type captured struct {
	events []*audithook.AuditEvent
}

func (c *captured) Record(_ context.Context, e *audithook.AuditEvent) error {
	c.events = append(c.events, e)
	return nil
}

var (
	holder = types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	buyer  = types.MustParseAddress("0x00000000000000000000000000000000000000b2")
)

func TestTransferIsRecorded(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec)

	ledgerID := id.NewLedgerID()
	evt := &event.Event{
		ID:         id.NewEventID(),
		LedgerID:   ledgerID,
		Seq:        4,
		Type:       event.TypeTransferred,
		Actor:      holder,
		Issuance:   event.Index(2),
		From:       holder,
		To:         buyer,
		Amount:     30,
		Recallable: true,
		Fee:        15,
	}
	require.NoError(t, ext.OnTransferred(context.Background(), evt))

	require.Len(t, rec.events, 1)
	got := rec.events[0]
	assert.Equal(t, audithook.ActionTransferred, got.Action)
	assert.Equal(t, audithook.OutcomeSuccess, got.Outcome)
	assert.Equal(t, ledgerID.String()+"/2", got.ResourceID)
	assert.Equal(t, holder.Hex(), got.Actor)
	assert.Equal(t, uint64(30), got.Metadata["amount"])
	assert.Equal(t, true, got.Metadata["recallable"])
	assert.Equal(t, uint64(4), got.Metadata["seq"])
}

func TestLedgerEventsMapToActions(t *testing.T) {
	tests := []struct {
		typ      event.Type
		action   string
		severity string
	}{
		{event.TypeLedgerCreated, audithook.ActionLedgerCreated, audithook.SeverityInfo},
		{event.TypeSigned, audithook.ActionLedgerSigned, audithook.SeverityInfo},
		{event.TypeDisabled, audithook.ActionLedgerDisabled, audithook.SeverityWarning},
		{event.TypeManagementTakenOver, audithook.ActionManagementTakenOver, audithook.SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			rec := &captured{}
			ext := audithook.New(rec)
			evt := &event.Event{ID: id.NewEventID(), LedgerID: id.NewLedgerID(), Type: tt.typ}
			require.NoError(t, ext.OnLedgerChanged(context.Background(), evt))
			require.Len(t, rec.events, 1)
			assert.Equal(t, tt.action, rec.events[0].Action)
			assert.Equal(t, tt.severity, rec.events[0].Severity)
		})
	}
}

func TestOperationFailureSeverity(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec)
	ledgerID := id.NewLedgerID()

	denied := fmt.Errorf("licensing: issue: %w", access.ErrNotIssuer)
	require.NoError(t, ext.OnOperationFailed(context.Background(), access.OpIssue, ledgerID, denied))
	short := fmt.Errorf("licensing: transfer: %w", licensing.ErrInsufficientBalance)
	require.NoError(t, ext.OnOperationFailed(context.Background(), access.OpTransfer, ledgerID, short))

	require.Len(t, rec.events, 2)
	assert.Equal(t, audithook.SeverityWarning, rec.events[0].Severity)
	assert.Equal(t, audithook.OutcomeFailure, rec.events[0].Outcome)
	assert.Equal(t, licensing.KindUnauthorized.String(), rec.events[0].Metadata["kind"])
	assert.Equal(t, "issue", rec.events[0].Metadata["operation"])
	assert.Equal(t, audithook.SeverityError, rec.events[1].Severity)
	assert.Equal(t, short.Error(), rec.events[1].Reason)
}

func TestActionFilters(t *testing.T) {
	evt := &event.Event{ID: id.NewEventID(), LedgerID: id.NewLedgerID(), Type: event.TypeSigned}

	rec := &captured{}
	ext := audithook.New(rec, audithook.WithEnabledActions(audithook.ActionRevoked))
	require.NoError(t, ext.OnLedgerChanged(context.Background(), evt))
	assert.Empty(t, rec.events)

	rec = &captured{}
	ext = audithook.New(rec, audithook.WithDisabledActions(audithook.ActionLedgerSigned))
	require.NoError(t, ext.OnLedgerChanged(context.Background(), evt))
	assert.Empty(t, rec.events)
	require.NoError(t, ext.OnRevoked(context.Background(), &event.Event{
		ID: id.NewEventID(), LedgerID: evt.LedgerID, Type: event.TypeRevoked, Issuance: event.Index(0), Reason: "fraud",
	}))
	require.Len(t, rec.events, 1)
	assert.Equal(t, "fraud", rec.events[0].Metadata["revocation_reason"])
}

func TestRecorderErrorsAreSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))
	evt := &event.Event{ID: id.NewEventID(), LedgerID: id.NewLedgerID(), Type: event.TypeWithdrawn}
	assert.NoError(t, ext.OnWithdrawn(context.Background(), evt))
}

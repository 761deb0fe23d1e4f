package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/licensing/event"
)

func TestListOptsMatches(t *testing.T) {
	transfer := &event.Event{Seq: 5, Type: event.TypeTransferred, Issuance: event.Index(2)}
	signed := &event.Event{Seq: 1, Type: event.TypeSigned}

	tests := []struct {
		name string
		opts event.ListOpts
		ev   *event.Event
		want bool
	}{
		{"no filter", event.ListOpts{}, transfer, true},
		{"type match", event.ListOpts{Type: event.TypeTransferred}, transfer, true},
		{"type mismatch", event.ListOpts{Type: event.TypeRecalled}, transfer, false},
		{"issuance match", event.ListOpts{Issuance: event.Index(2)}, transfer, true},
		{"issuance mismatch", event.ListOpts{Issuance: event.Index(3)}, transfer, false},
		{"ledger event with issuance filter", event.ListOpts{Issuance: event.Index(0)}, signed, false},
		{"after seq excludes", event.ListOpts{AfterSeq: 5}, transfer, false},
		{"after seq includes", event.ListOpts{AfterSeq: 4}, transfer, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Matches(tt.ev))
		})
	}
}

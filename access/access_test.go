package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/licensing/access"
	"github.com/xraph/licensing/types"
)

var (
	issuer   = types.MustParseAddress("0x1000000000000000000000000000000000000001")
	root     = types.MustParseAddress("0x2000000000000000000000000000000000000002")
	manager  = types.MustParseAddress("0x3000000000000000000000000000000000000003")
	stranger = types.MustParseAddress("0x4000000000000000000000000000000000000004")
)

func TestAuthorize(t *testing.T) {
	signed := access.Control{Issuer: issuer, RootAuthority: root, Signed: true}
	unsigned := access.Control{Issuer: issuer, RootAuthority: root}
	disabled := access.Control{Issuer: issuer, RootAuthority: root, Signed: true, Disabled: true}
	managed := access.Control{Issuer: issuer, RootAuthority: root, Manager: manager, Signed: true}
	managedDisabled := managed
	managedDisabled.Disabled = true

	tests := []struct {
		name     string
		ctl      access.Control
		op       access.Operation
		caller   types.Address
		wantRole access.Role
		wantErr  error
	}{
		{"issuer signs", unsigned, access.OpSign, issuer, access.RoleIssuer, nil},
		{"stranger cannot sign", unsigned, access.OpSign, stranger, access.RoleNone, access.ErrNotIssuer},
		{"sign twice", signed, access.OpSign, issuer, access.RoleNone, access.ErrAlreadySigned},

		{"issuer issues", signed, access.OpIssue, issuer, access.RoleIssuer, nil},
		{"issue before signing", unsigned, access.OpIssue, issuer, access.RoleNone, access.ErrNotSigned},
		{"issue when disabled", disabled, access.OpIssue, issuer, access.RoleNone, access.ErrDisabled},
		{"issue when managed", managed, access.OpIssue, issuer, access.RoleNone, access.ErrManagementDelegated},
		{"manager cannot issue", managed, access.OpIssue, manager, access.RoleNone, access.ErrManagementDelegated},
		{"root cannot issue", signed, access.OpIssue, root, access.RoleNone, access.ErrNotIssuer},

		{"issuer revokes", signed, access.OpRevoke, issuer, access.RoleIssuer, nil},
		{"issuer revokes unsigned", unsigned, access.OpRevoke, issuer, access.RoleIssuer, nil},
		{"issuer cannot revoke when disabled", disabled, access.OpRevoke, issuer, access.RoleNone, access.ErrDisabled},
		{"issuer stripped by manager", managed, access.OpRevoke, issuer, access.RoleNone, access.ErrNotManager},
		{"manager revokes", managed, access.OpRevoke, manager, access.RoleManager, nil},
		{"manager revokes when disabled", managedDisabled, access.OpRevoke, manager, access.RoleManager, nil},

		{"issuer disables", signed, access.OpDisable, issuer, access.RoleIssuer, nil},
		{"disable twice", disabled, access.OpDisable, issuer, access.RoleNone, access.ErrDisabled},
		{"manager disables", managed, access.OpDisable, manager, access.RoleManager, nil},
		{"issuer cannot disable when managed", managed, access.OpDisable, issuer, access.RoleNone, access.ErrNotManager},
		{"stranger cannot disable", signed, access.OpDisable, stranger, access.RoleNone, access.ErrNotIssuer},

		{"root sets tiers", signed, access.OpSetTransferFeeTiers, root, access.RoleRootAuthority, nil},
		{"root sets fee rate", signed, access.OpSetIssuanceFeeRate, root, access.RoleRootAuthority, nil},
		{"root sets share", signed, access.OpSetIssuerFeeShare, root, access.RoleRootAuthority, nil},
		{"root withdraws", disabled, access.OpWithdraw, root, access.RoleRootAuthority, nil},
		{"root takes over", signed, access.OpTakeOverManagement, root, access.RoleRootAuthority, nil},
		{"issuer cannot set tiers", signed, access.OpSetTransferFeeTiers, issuer, access.RoleNone, access.ErrNotRootAuthority},
		{"manager cannot take over", managed, access.OpTakeOverManagement, manager, access.RoleNone, access.ErrNotRootAuthority},

		{"anyone transfers", disabled, access.OpTransfer, stranger, access.RoleNone, nil},
		{"anyone transfers with recall right", unsigned, access.OpTransferWithRecallRight, stranger, access.RoleNone, nil},
		{"anyone recalls", managed, access.OpRecall, stranger, access.RoleNone, nil},

		{"unknown operation", signed, access.Operation("mint"), issuer, access.RoleNone, access.ErrUnknownOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := tt.ctl.Authorize(tt.op, tt.caller)
			assert.Equal(t, tt.wantRole, role)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReleasingManagementRestoresIssuer(t *testing.T) {
	ctl := access.Control{Issuer: issuer, RootAuthority: root, Manager: manager, Signed: true}
	_, err := ctl.Authorize(access.OpIssue, issuer)
	assert.Error(t, err)

	ctl.Manager = types.NullAddress
	role, err := ctl.Authorize(access.OpIssue, issuer)
	assert.NoError(t, err)
	assert.Equal(t, access.RoleIssuer, role)

	_, err = ctl.Authorize(access.OpRevoke, manager)
	assert.ErrorIs(t, err, access.ErrNotIssuer)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, access.IsUnauthorized(access.ErrNotManager))
	assert.False(t, access.IsUnauthorized(access.ErrDisabled))
	assert.True(t, access.IsInvalidState(access.ErrAlreadySigned))
	assert.False(t, access.IsInvalidState(access.ErrNotIssuer))
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "manager", access.RoleManager.String())
	assert.Equal(t, "none", access.Role(42).String())
}

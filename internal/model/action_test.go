package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVhostAction_AllNames(t *testing.T) {
	for _, name := range VhostActions() {
		a, err := ParseVhostAction(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, a.String())
	}
}

func TestParseVhostAction_Unknown(t *testing.T) {
	_, err := ParseVhostAction("reboot")
	assert.Error(t, err)
}

func TestParseMailboxAction_AllNames(t *testing.T) {
	for _, name := range MailboxActions() {
		a, err := ParseMailboxAction(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, a.String())
	}
}

func TestParseMailboxAction_Unknown(t *testing.T) {
	_, err := ParseMailboxAction("purge")
	assert.Error(t, err)
}

func TestACL_IsAdmin(t *testing.T) {
	assert.True(t, ACLSuperAdmin.IsAdmin())
	assert.True(t, ACLAdministrator.IsAdmin())
	assert.False(t, ACLUser.IsAdmin())
	assert.False(t, ACLSuspended.IsAdmin())
	assert.False(t, ACLAnonymous.IsAdmin())
}

func TestACL_String(t *testing.T) {
	assert.Equal(t, "SuperAdmin", ACLSuperAdmin.String())
	assert.Equal(t, "Anonymous", ACLAnonymous.String())
	assert.Equal(t, "Unknown", ACL(5).String())
	assert.False(t, ACL(5).Valid())
}

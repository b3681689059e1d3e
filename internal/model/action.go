package model

import "fmt"

// VhostAction is an operator-triggered maintenance command for a virtual host.
type VhostAction int

const (
	VhostRestart VhostAction = iota + 1
	VhostStatus
	VhostFixPermissions
)

var vhostActionNames = map[VhostAction]string{
	VhostRestart:        "restart",
	VhostStatus:         "status",
	VhostFixPermissions: "fix_permissions",
}

func (a VhostAction) String() string { return vhostActionNames[a] }

// VhostActions lists every accepted vhost action name.
func VhostActions() []string {
	return []string{"restart", "status", "fix_permissions"}
}

// ParseVhostAction maps an action name to its VhostAction.
func ParseVhostAction(name string) (VhostAction, error) {
	for a, n := range vhostActionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown vhost action %q", name)
}

// MailboxAction is an operator-triggered maintenance command for a mailbox.
type MailboxAction int

const (
	MailboxClearSpam MailboxAction = iota + 1
	MailboxRebuild
	MailboxCheck
	MailboxQuotaReset
)

var mailboxActionNames = map[MailboxAction]string{
	MailboxClearSpam:  "clear_spam",
	MailboxRebuild:    "rebuild",
	MailboxCheck:      "check",
	MailboxQuotaReset: "quota_reset",
}

func (a MailboxAction) String() string { return mailboxActionNames[a] }

// MailboxActions lists every accepted mailbox action name.
func MailboxActions() []string {
	return []string{"clear_spam", "rebuild", "check", "quota_reset"}
}

// ParseMailboxAction maps an action name to its MailboxAction.
func ParseMailboxAction(name string) (MailboxAction, error) {
	for a, n := range mailboxActionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown mailbox action %q", name)
}

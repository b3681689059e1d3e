package provision

import (
	"fmt"
	"time"

	"github.com/edvin/vpanel/internal/model"
)

const (
	// DefaultTimeout bounds commands built without an explicit timeout.
	DefaultTimeout = 30 * time.Second

	shortTimeout = 30 * time.Second
	longTimeout  = 60 * time.Second
	hostTimeout  = 90 * time.Second
)

const (
	cmdAddVhost       = "addvhost"
	cmdRemoveVhost    = "rmvhost"
	cmdFixVhost       = "fixvhost"
	cmdSystemctl      = "systemctl"
	cmdAddMailbox     = "addmailbox"
	cmdUpdateMailbox  = "updatemailbox"
	cmdMoveMailbox    = "movemailbox"
	cmdRemoveMailbox  = "rmmailbox"
	cmdClearSpam      = "clearmailspam"
	cmdRebuildMailbox = "rebuildmailbox"
	cmdCheckMailbox   = "checkmailbox"
	cmdResetQuota     = "resetmailquota"
	cmdMailboxStats   = "mailboxstats"
	cmdAddAlias       = "addalias"
	cmdUpdateAlias    = "updatealias"
	cmdRemoveAlias    = "rmalias"

	webServerUnit = "apache2"
)

func AddVhost(domain string) Command {
	return Command{Name: cmdAddVhost, Args: []string{domain}, Timeout: longTimeout}
}

func RemoveVhost(domain string) Command {
	return Command{Name: cmdRemoveVhost, Args: []string{domain}, Timeout: hostTimeout}
}

// VhostActionCommand maps a vhost maintenance action to its command.
func VhostActionCommand(a model.VhostAction, domain string) (Command, error) {
	switch a {
	case model.VhostRestart:
		return Command{Name: cmdSystemctl, Args: []string{"restart", webServerUnit}, Timeout: longTimeout}, nil
	case model.VhostStatus:
		return Command{Name: cmdSystemctl, Args: []string{"status", webServerUnit}, Timeout: longTimeout}, nil
	case model.VhostFixPermissions:
		return Command{Name: cmdFixVhost, Args: []string{domain}, Timeout: longTimeout}, nil
	}
	return Command{}, fmt.Errorf("no command for vhost action %d", a)
}

func AddMailbox(address, password string) Command {
	return Command{Name: cmdAddMailbox, Args: []string{address, password}, Timeout: longTimeout, secret: []int{1}}
}

func UpdateMailbox(address, password string) Command {
	return Command{Name: cmdUpdateMailbox, Args: []string{address, password}, Timeout: shortTimeout, secret: []int{1}}
}

func MoveMailbox(oldAddress, newAddress string) Command {
	return Command{Name: cmdMoveMailbox, Args: []string{oldAddress, newAddress}, Timeout: longTimeout}
}

func RemoveMailbox(address string) Command {
	return Command{Name: cmdRemoveMailbox, Args: []string{address}, Timeout: shortTimeout}
}

// MailboxActionCommand maps a mailbox maintenance action to its command.
func MailboxActionCommand(a model.MailboxAction, address string) (Command, error) {
	var name string
	switch a {
	case model.MailboxClearSpam:
		name = cmdClearSpam
	case model.MailboxRebuild:
		name = cmdRebuildMailbox
	case model.MailboxCheck:
		name = cmdCheckMailbox
	case model.MailboxQuotaReset:
		name = cmdResetQuota
	default:
		return Command{}, fmt.Errorf("no command for mailbox action %d", a)
	}
	return Command{Name: name, Args: []string{address}, Timeout: longTimeout}, nil
}

func MailboxStats(address string) Command {
	return Command{Name: cmdMailboxStats, Args: []string{address}, Timeout: shortTimeout}
}

func AddAlias(source, target string) Command {
	return Command{Name: cmdAddAlias, Args: []string{source, target}, Timeout: shortTimeout}
}

func UpdateAlias(source, target string) Command {
	return Command{Name: cmdUpdateAlias, Args: []string{source, target}, Timeout: shortTimeout}
}

func RemoveAlias(source string) Command {
	return Command{Name: cmdRemoveAlias, Args: []string{source}, Timeout: shortTimeout}
}

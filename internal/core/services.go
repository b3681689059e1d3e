package core

import (
	"time"

	"github.com/edvin/vpanel/internal/provision"
)

type Services struct {
	Account *AccountService
	Vhost   *VhostService
	Mailbox *MailboxService
	Alias   *AliasService
	Session *SessionService
}

// Options configures the session side of the services.
type Options struct {
	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration
}

func NewServices(db DB, runner provision.Runner, opts Options) *Services {
	return &Services{
		Account: NewAccountService(db),
		Vhost:   NewVhostService(db, runner),
		Mailbox: NewMailboxService(db, runner),
		Alias:   NewAliasService(db, runner),
		Session: NewSessionService(opts.JWTSecret, opts.JWTIssuer, opts.SessionTTL),
	}
}

package model

import "time"

const (
	DefaultVhostUname = "sysadm"
	MinSystemID       = 1000
)

type VirtualHost struct {
	ID        int64     `json:"id" db:"id"`
	AccountID int64     `json:"aid" db:"aid"`
	Domain    string    `json:"domain" db:"domain"`
	Uname     string    `json:"uname" db:"uname"`
	UID       int       `json:"uid" db:"uid"`
	GID       int       `json:"gid" db:"gid"`
	Aliases   int       `json:"aliases" db:"aliases"`
	Mailboxes int       `json:"mailboxes" db:"mailboxes"`
	MailQuota int64     `json:"mailquota" db:"mailquota"`
	DiskQuota int64     `json:"diskquota" db:"diskquota"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Populated from vhosts_view.
	NumMailboxes int `json:"num_mailboxes" db:"num_mailboxes"`
	NumAliases   int `json:"num_aliases" db:"num_aliases"`
}

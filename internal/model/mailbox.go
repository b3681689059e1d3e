package model

import "time"

// DefaultMailboxQuota is the vmails.quota column default, in bytes.
const DefaultMailboxQuota int64 = 500000000

type Mailbox struct {
	ID         int64     `json:"id" db:"id"`
	AccountID  int64     `json:"aid" db:"aid"`
	VhostID    int64     `json:"hid" db:"hid"`
	UID        int       `json:"uid" db:"uid"`
	GID        int       `json:"gid" db:"gid"`
	SpamFilter bool      `json:"spamf" db:"spamf"`
	Active     bool      `json:"active" db:"active"`
	Quota      int64     `json:"quota" db:"quota"`
	User       string    `json:"user" db:"user"`
	Home       string    `json:"home" db:"home"`
	Password   string    `json:"-" db:"password"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	// Populated from vmails_view.
	Domain string `json:"domain,omitempty" db:"domain"`
}

// MailboxRef is the id/address pair offered as an alias target.
type MailboxRef struct {
	ID   int64  `json:"id"`
	User string `json:"user"`
}

// MailboxStats holds byte counts reported by the mail store.
type MailboxStats struct {
	Total int64 `json:"total"`
	Inbox int64 `json:"inbox"`
	Spam  int64 `json:"spam"`
	Sent  int64 `json:"sent"`
}

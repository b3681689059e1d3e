package model

import "time"

type Alias struct {
	ID        int64     `json:"id" db:"id"`
	AccountID int64     `json:"aid" db:"aid"`
	VhostID   int64     `json:"hid" db:"hid"`
	Active    bool      `json:"active" db:"active"`
	Source    string    `json:"source" db:"source"`
	Target    string    `json:"target" db:"target"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Populated from valias_view.
	Domain string `json:"domain,omitempty" db:"domain"`
}

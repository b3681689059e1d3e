package model

import "time"

// ACL is an account's access-control level.
type ACL int

const (
	ACLSuperAdmin    ACL = 0
	ACLAdministrator ACL = 1
	ACLUser          ACL = 2
	ACLSuspended     ACL = 3
	ACLAnonymous     ACL = 9
)

var aclNames = map[ACL]string{
	ACLSuperAdmin:    "SuperAdmin",
	ACLAdministrator: "Administrator",
	ACLUser:          "User",
	ACLSuspended:     "Suspended",
	ACLAnonymous:     "Anonymous",
}

func (a ACL) String() string {
	if name, ok := aclNames[a]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether a is one of the defined levels.
func (a ACL) Valid() bool {
	_, ok := aclNames[a]
	return ok
}

// IsAdmin reports whether the level grants administrator capability.
func (a ACL) IsAdmin() bool {
	return a == ACLSuperAdmin || a == ACLAdministrator
}

// Roles returns the level-to-name table shown in account forms.
func Roles() map[ACL]string {
	out := make(map[ACL]string, len(aclNames))
	for k, v := range aclNames {
		out[k] = v
	}
	return out
}

type Account struct {
	ID        int64     `json:"id" db:"id"`
	Group     int       `json:"grp" db:"grp"`
	ACL       ACL       `json:"acl" db:"acl"`
	Vhosts    int       `json:"vhosts" db:"vhosts"`
	Login     string    `json:"login" db:"login"`
	FirstName string    `json:"fname" db:"fname"`
	LastName  string    `json:"lname" db:"lname"`
	AltEmail  *string   `json:"altemail,omitempty" db:"altemail"`
	OTP       string    `json:"-" db:"otp"`
	OTPTTL    int64     `json:"-" db:"otpttl"`
	Cookie    string    `json:"-" db:"cookie"`
	WebPW     string    `json:"-" db:"webpw"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AccountRef is the id/login pair used by owner pickers.
type AccountRef struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

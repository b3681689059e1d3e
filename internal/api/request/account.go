package request

// CreateAccount defaults acl to User, grp to 0 and vhosts to 1 when omitted.
type CreateAccount struct {
	Login             string `json:"login" validate:"required,email,max=63"`
	FirstName         string `json:"fname" validate:"required,max=63"`
	LastName          string `json:"lname" validate:"required,max=63"`
	AltEmail          string `json:"altemail" validate:"omitempty,email,max=63"`
	ACL               *int   `json:"acl" validate:"omitempty,oneof=0 1 2 3 9"`
	Group             *int   `json:"grp" validate:"omitempty,min=0"`
	Vhosts            *int   `json:"vhosts" validate:"omitempty,min=0"`
	WebPW             string `json:"webpw" validate:"required,min=12"`
	WebPWConfirmation string `json:"webpw_confirmation" validate:"eqfield=WebPW"`
}

// UpdateAccount leaves acl, grp and vhosts nil when not submitted.
type UpdateAccount struct {
	Login             string `json:"login" validate:"required,email,max=63"`
	FirstName         string `json:"fname" validate:"required,max=63"`
	LastName          string `json:"lname" validate:"required,max=63"`
	AltEmail          string `json:"altemail" validate:"omitempty,email,max=63"`
	ACL               *int   `json:"acl" validate:"omitempty,oneof=0 1 2 3 9"`
	Group             *int   `json:"grp" validate:"omitempty,min=0"`
	Vhosts            *int   `json:"vhosts" validate:"omitempty,min=0"`
	WebPW             string `json:"webpw" validate:"omitempty,min=12"`
	WebPWConfirmation string `json:"webpw_confirmation" validate:"eqfield=WebPW"`
}

type BulkDelete struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

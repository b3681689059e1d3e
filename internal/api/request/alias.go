package request

type CreateAlias struct {
	VhostID int64  `json:"hid" validate:"required,gt=0"`
	Source  string `json:"source" validate:"required,max=63,localpart_or_email"`
	Target  string `json:"target" validate:"required,max=255"`
	Active  bool   `json:"active"`
	// Configure runs addalias after the row is stored. Defaults to true.
	Configure *bool `json:"configure_alias"`
}

type UpdateAlias struct {
	VhostID int64  `json:"hid" validate:"required,gt=0"`
	Source  string `json:"source" validate:"required,max=63,localpart_or_email"`
	Target  string `json:"target" validate:"required,max=255"`
	Active  bool   `json:"active"`
}

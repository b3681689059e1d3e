package request

type CreateMailbox struct {
	VhostID              int64  `json:"hid" validate:"required,gt=0"`
	Username             string `json:"username" validate:"required,max=63,localpart_or_email"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
	Quota                *int64 `json:"quota" validate:"omitempty,min=0"`
	Active               bool   `json:"active"`
	SpamFilter           bool   `json:"spamf"`
	// Setup runs addmailbox after the row is stored. Defaults to true.
	Setup *bool `json:"setup_mailbox"`
}

type UpdateMailbox struct {
	VhostID              int64  `json:"hid" validate:"required,gt=0"`
	Username             string `json:"username" validate:"required,max=63,localpart_or_email"`
	Password             string `json:"password" validate:"omitempty,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
	Quota                *int64 `json:"quota" validate:"omitempty,min=0"`
	Active               bool   `json:"active"`
	SpamFilter           bool   `json:"spamf"`
	// Move runs movemailbox when the address changed. Defaults to true.
	Move *bool `json:"move_mailbox"`
}

type ExecuteMailbox struct {
	Command string `json:"command" validate:"required,oneof=clear_spam rebuild check quota_reset"`
}

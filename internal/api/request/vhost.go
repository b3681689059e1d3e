package request

type CreateVhost struct {
	AccountID int64  `json:"aid" validate:"required,gt=0"`
	Domain    string `json:"domain" validate:"required,max=63"`
	Uname     string `json:"uname" validate:"omitempty,max=63"`
	UID       int    `json:"uid" validate:"min=1000"`
	GID       int    `json:"gid" validate:"min=1000"`
	Aliases   int    `json:"aliases" validate:"min=0"`
	Mailboxes int    `json:"mailboxes" validate:"min=0"`
	MailQuota int64  `json:"mailquota" validate:"min=0"`
	DiskQuota int64  `json:"diskquota" validate:"min=0"`
	Active    bool   `json:"active"`
	// Configure runs addvhost after the row is stored.
	Configure bool `json:"configure_domain"`
}

type UpdateVhost struct {
	AccountID int64  `json:"aid" validate:"required,gt=0"`
	Domain    string `json:"domain" validate:"required,max=63"`
	Uname     string `json:"uname" validate:"omitempty,max=63"`
	UID       int    `json:"uid" validate:"min=1000"`
	GID       int    `json:"gid" validate:"min=1000"`
	Aliases   int    `json:"aliases" validate:"min=0"`
	Mailboxes int    `json:"mailboxes" validate:"min=0"`
	MailQuota int64  `json:"mailquota" validate:"min=0"`
	DiskQuota int64  `json:"diskquota" validate:"min=0"`
	Active    bool   `json:"active"`
}

type ExecuteVhost struct {
	Command string `json:"command" validate:"required,oneof=restart status fix_permissions"`
}

package panelctl

// ApplyConfig declares virtual hosts with their mailboxes and aliases.
// Entries that already exist are left untouched.
type ApplyConfig struct {
	Vhosts []VhostDef `yaml:"vhosts"`
}

type VhostDef struct {
	Domain       string `yaml:"domain"`
	AccountID    int64  `yaml:"aid"`
	Uname        string `yaml:"uname"`
	UID          int    `yaml:"uid"`
	GID          int    `yaml:"gid"`
	MailboxLimit int    `yaml:"mailbox_limit"`
	AliasLimit   int    `yaml:"alias_limit"`
	MailQuota    int64  `yaml:"mailquota"`
	DiskQuota    int64  `yaml:"diskquota"`
	Active       *bool  `yaml:"active"`
	Configure    bool   `yaml:"configure_domain"`

	Mailboxes []MailboxDef `yaml:"mailboxes"`
	Aliases   []AliasDef   `yaml:"aliases"`
}

type MailboxDef struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Quota      *int64 `yaml:"quota"`
	Active     *bool  `yaml:"active"`
	SpamFilter bool   `yaml:"spamf"`
}

type AliasDef struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Active *bool  `yaml:"active"`
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

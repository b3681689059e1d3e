// Package address builds the canonical mail identifiers used by the panel and
// the provisioning tools.
package address

import (
	"net/mail"
	"strings"
)

// MailRoot is the parent directory of every mailbox home.
const MailRoot = "/var/mail/vhosts"

// Column widths of the stored mailbox address and home.
const (
	MaxAddressLen = 63
	MaxHomeLen    = 127
)

// Derive returns raw unchanged when it already contains "@", and
// raw@domain otherwise. It never fails and is idempotent.
func Derive(raw, domain string) string {
	if strings.Contains(raw, "@") {
		return raw
	}
	return raw + "@" + domain
}

// MailboxHome is the maildir location for localpart@domain.
func MailboxHome(domain, localpart string) string {
	return MailRoot + "/" + domain + "/" + localpart
}

// LocalPart returns everything before the first "@".
func LocalPart(address string) string {
	local, _, _ := strings.Cut(address, "@")
	return local
}

// NormalizeAliasSource returns the stored form of an alias source: a bare
// local-part when raw is qualified with the alias's own domain, raw otherwise.
func NormalizeAliasSource(raw, domain string) string {
	local, host, ok := strings.Cut(raw, "@")
	if ok && strings.EqualFold(host, domain) {
		return local
	}
	return raw
}

// ValidLocalPartOrEmail accepts a bare local-part, or a value containing "@"
// that parses as a single email address.
func ValidLocalPartOrEmail(s string) bool {
	if !strings.Contains(s, "@") {
		return true
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Count(s, "@") == 1
}

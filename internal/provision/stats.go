package provision

import (
	"strconv"
	"strings"

	"github.com/edvin/vpanel/internal/model"
)

// ParseStats parses mailboxstats output of the form
// "total:1024,inbox:768,spam:256,sent:128". Unknown keys are ignored. Any
// malformed pair or missing key yields zero stats and false.
func ParseStats(out string) (model.MailboxStats, bool) {
	values := map[string]int64{}
	for _, part := range strings.Split(strings.TrimSpace(out), ",") {
		key, raw, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return model.MailboxStats{}, false
		}
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return model.MailboxStats{}, false
		}
		values[strings.TrimSpace(key)] = n
	}

	for _, k := range []string{"total", "inbox", "spam", "sent"} {
		if _, ok := values[k]; !ok {
			return model.MailboxStats{}, false
		}
	}
	return model.MailboxStats{
		Total: values["total"],
		Inbox: values["inbox"],
		Spam:  values["spam"],
		Sent:  values["sent"],
	}, true
}

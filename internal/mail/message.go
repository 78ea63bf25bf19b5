// Package mail defines the message metadata contract consumed from the
// mail-retrieval collaborator, plus small parsing helpers shared by the
// extraction and tracking layers. Fetching, pagination, and OAuth live
// behind the Source interface and are not implemented here.
package mail

import (
	"regexp"
	"strings"
	"time"
)

// Message is the metadata and body content of one retrieved email.
type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	Subject  string    `json:"subject"`
	Sender   string    `json:"sender"` // raw From header
	Snippet  string    `json:"snippet"`
	Text     string    `json:"text"`
	HTML     string    `json:"html"`
	Date     time.Time `json:"date"`
}

var senderRe = regexp.MustCompile(`^(.*?)\s*<(.+)>`)

// ParseSender splits a From header into display name and address.
// Headers without angle brackets yield an empty name.
func ParseSender(header string) (name, addr string) {
	if m := senderRe.FindStringSubmatch(header); m != nil {
		name = strings.Trim(strings.TrimSpace(m[1]), `"`)
		addr = strings.TrimSpace(m[2])
		return name, addr
	}
	return "", strings.TrimSpace(header)
}

// Domain returns the lowercased domain part of an email address, or ""
// when addr has no @.
func Domain(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}

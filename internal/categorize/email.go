package categorize

import (
	"strings"
	"time"
)

// Email is the classifier input. It is never mutated.
type Email struct {
	ID       string    `json:"id,omitempty"`
	Sender   string    `json:"sender"`
	Subject  string    `json:"subject"`
	Content  string    `json:"content"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Metadata carries structured hints from the source platform. Every field
// is optional; zero values mean "not reported".
type Metadata struct {
	ToRecipients     []string   `json:"toRecipients,omitempty"`
	CCRecipients     []string   `json:"ccRecipients,omitempty"`
	IsReply          bool       `json:"isReply,omitempty"`
	IsForward        bool       `json:"isForward,omitempty"`
	IsCC             bool       `json:"isCc,omitempty"`
	SentByMe         bool       `json:"sentByMe,omitempty"`
	SentToMe         bool       `json:"sentToMe,omitempty"`
	HasReply         bool       `json:"hasReply,omitempty"`
	OriginalSentByMe bool       `json:"originalSentByMe,omitempty"`
	ConversationID   string     `json:"conversationId,omitempty"`
	InReplyTo        string     `json:"inReplyTo,omitempty"`
	Importance       string     `json:"importance,omitempty"`
	Platform         string     `json:"platform,omitempty"`
	SentDateTime     *time.Time `json:"sentDateTime,omitempty"`
	ReceivedDateTime *time.Time `json:"receivedDateTime,omitempty"`
}

// SenderDomain returns the lowercased domain of the sender address, or ""
// when the sender has no '@'. Display names such as "Jane <jane@x.com>"
// are handled.
func SenderDomain(sender string) string {
	at := strings.LastIndex(sender, "@")
	if at < 0 {
		return ""
	}
	domain := sender[at+1:]
	domain = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(domain), ">"))
	return strings.ToLower(domain)
}

func (e Email) combinedText() string {
	return strings.ToLower(e.Sender + " " + e.Subject + " " + e.Content)
}

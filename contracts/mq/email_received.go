package mq

import (
	"time"

	"unifiedinbox/internal/categorize"
)

// EmailReceivedPayload 邮件收到事件的 payload.
// When Raw is set it holds the full RFC 822 message and takes precedence
// over Sender/Subject/Body. Owner is the mailbox address the message was
// delivered to and drives the sent-by-me / sent-to-me flags of raw messages.
type EmailReceivedPayload struct {
	EmailID    int                  `json:"email_id"`
	UserID     int                  `json:"user_id"`
	Sender     string               `json:"sender"`
	Subject    string               `json:"subject"`
	Body       string               `json:"body"`
	Raw        string               `json:"raw,omitempty"`
	Owner      string               `json:"owner,omitempty"`
	Metadata   *categorize.Metadata `json:"metadata,omitempty"`
	ReceivedAt time.Time            `json:"received_at"`
}

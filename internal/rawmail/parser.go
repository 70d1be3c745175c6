// Package rawmail turns RFC 822 messages into categorization input.
package rawmail

import (
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"

	"unifiedinbox/internal/categorize"
)

// Parse reads a MIME message. owner, when non-empty, is the mailbox owner's
// address and is used to derive the sent-by-me / sent-to-me / cc flags.
func Parse(r io.Reader, owner string) (categorize.Email, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return categorize.Email{}, fmt.Errorf("failed to parse MIME message: %w", err)
	}

	from := firstAddress(env, "From")
	sender := env.GetHeader("From")
	if from != "" {
		sender = from
	}

	meta := &categorize.Metadata{
		ToRecipients: addresses(env, "To"),
		CCRecipients: addresses(env, "Cc"),
		InReplyTo:    strings.TrimSpace(env.GetHeader("In-Reply-To")),
		Importance:   importance(env),
	}
	meta.IsReply = meta.InReplyTo != ""
	meta.IsForward = hasForwardPrefix(env.GetHeader("Subject"))

	if refs := strings.Fields(env.GetHeader("References")); len(refs) > 0 {
		meta.ConversationID = refs[0]
	} else if meta.InReplyTo != "" {
		meta.ConversationID = meta.InReplyTo
	}

	if d, err := env.Date(); err == nil {
		meta.SentDateTime = &d
	}

	if owner = strings.ToLower(strings.TrimSpace(owner)); owner != "" {
		meta.SentByMe = strings.EqualFold(from, owner)
		inTo := containsAddress(meta.ToRecipients, owner)
		inCC := containsAddress(meta.CCRecipients, owner)
		meta.SentToMe = inTo || inCC
		meta.IsCC = inCC && !inTo
	}

	return categorize.Email{
		ID:       strings.Trim(env.GetHeader("Message-ID"), "<> "),
		Sender:   sender,
		Subject:  env.GetHeader("Subject"),
		Content:  strings.TrimSpace(env.Text),
		Metadata: meta,
	}, nil
}

func addresses(env *enmime.Envelope, header string) []string {
	list, err := env.AddressList(header)
	if err != nil {
		return nil
	}
	return flatten(list)
}

func firstAddress(env *enmime.Envelope, header string) string {
	if list := addresses(env, header); len(list) > 0 {
		return list[0]
	}
	return ""
}

func flatten(list []*mail.Address) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a != nil && a.Address != "" {
			out = append(out, strings.ToLower(a.Address))
		}
	}
	return out
}

func containsAddress(list []string, addr string) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}

// importance normalizes Importance / X-Priority headers to "high", "low" or "".
func importance(env *enmime.Envelope) string {
	switch strings.ToLower(strings.TrimSpace(env.GetHeader("Importance"))) {
	case "high":
		return "high"
	case "low":
		return "low"
	}
	prio := strings.TrimSpace(env.GetHeader("X-Priority"))
	switch {
	case strings.HasPrefix(prio, "1"), strings.HasPrefix(prio, "2"):
		return "high"
	case strings.HasPrefix(prio, "4"), strings.HasPrefix(prio, "5"):
		return "low"
	}
	return ""
}

func hasForwardPrefix(subject string) bool {
	s := strings.ToLower(strings.TrimSpace(subject))
	return strings.HasPrefix(s, "fwd:") || strings.HasPrefix(s, "fw:")
}
